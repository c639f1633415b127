package settlement

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrOrderNotFound signals the order id does not resolve in the store.
var ErrOrderNotFound = errors.New("order not found")

// ErrVerificationUnavailable signals the provider could not be consulted at
// all (transport failure, timeout, unparsable response). Distinct from a
// provider-declared transaction failure, which is a Verification outcome.
var ErrVerificationUnavailable = errors.New("could not verify payment")

// Order is the slice of the store's order entity that settlement reads and
// writes. Total is in the store's major currency unit.
type Order struct {
	ID             string
	Status         OrderStatus
	Total          decimal.Decimal
	PaymentMessage string
}

// OrderGateway abstracts the order store. TransitionFromPending is the single
// serialization point for the two racing settlement entries: it must move the
// order out of pending atomically and report whether this caller won.
type OrderGateway interface {
	Load(ctx context.Context, orderID string) (Order, error)

	// TransitionFromPending sets status and payment message only if the
	// order is still pending. Returns false, nil when another caller
	// already moved the order to a terminal status.
	TransitionFromPending(ctx context.Context, orderID string, to OrderStatus, message string) (bool, error)

	// MarkPaymentComplete records the provider reference for a completed
	// payment. Safe to call more than once for the same order.
	MarkPaymentComplete(ctx context.Context, orderID, reference string) error
}

// BuyerDirectory resolves the checkout email for an order. Implemented by the
// checkout collaborator (or the order store when it carries the email).
type BuyerDirectory interface {
	CheckoutEmail(ctx context.Context, orderID string) (string, error)
}
