package settlement

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// ProviderInitializer opens a hosted-payment transaction with the provider
// and returns the authorization URL the buyer is redirected to.
type ProviderInitializer interface {
	Initialize(ctx context.Context, email string, amountMinor int64, callbackURL, reference string) (string, error)
}

// Initiator builds the outbound checkout redirect for a payment attempt. The
// order id doubles as the provider-side transaction reference, which is what
// lets the webhook and the return path resolve to the same order later.
type Initiator struct {
	gateway   OrderGateway
	buyers    BuyerDirectory
	provider  ProviderInitializer
	returnURL func(orderID string) string
}

// NewInitiator constructs an Initiator. returnURL builds the callback URL
// pointing back at the return-confirmation entry for an order.
func NewInitiator(gateway OrderGateway, buyers BuyerDirectory, provider ProviderInitializer, returnURL func(orderID string) string) *Initiator {
	return &Initiator{
		gateway:   gateway,
		buyers:    buyers,
		provider:  provider,
		returnURL: returnURL,
	}
}

// BuildCheckoutRedirect initializes a provider transaction for the order and
// returns the hosted-payment URL. Callers must not redirect the buyer on
// error.
func (i *Initiator) BuildCheckoutRedirect(ctx context.Context, orderID string) (string, error) {
	order, err := i.gateway.Load(ctx, orderID)
	if err != nil {
		return "", err
	}

	email, err := i.buyers.CheckoutEmail(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("checkout email: %w", err)
	}

	// The provider expects the amount in minor units.
	amountMinor := order.Total.Mul(decimal.NewFromInt(MinorUnitFactor)).Round(0).IntPart()

	return i.provider.Initialize(ctx, email, amountMinor, i.returnURL(orderID), orderID)
}
