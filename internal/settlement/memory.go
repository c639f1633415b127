package settlement

import (
	"context"
	"errors"
	"sync"
)

// NewInMemoryOrderGateway constructs an in-memory order gateway.
func NewInMemoryOrderGateway() *InMemoryOrderGateway {
	return &InMemoryOrderGateway{
		orders:    make(map[string]Order),
		emails:    make(map[string]string),
		receipts:  make(map[string]string),
		markCalls: make(map[string]int),
	}
}

// InMemoryOrderGateway keeps orders in a map and enforces the same
// compare-and-set transition contract as the Postgres gateway. Used when no
// database is configured and throughout the tests.
type InMemoryOrderGateway struct {
	mu        sync.Mutex
	orders    map[string]Order
	emails    map[string]string
	receipts  map[string]string
	markCalls map[string]int
}

// Put seeds or replaces an order.
func (g *InMemoryOrderGateway) Put(order Order) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders[order.ID] = order
}

// SetBuyer records the checkout email for an order.
func (g *InMemoryOrderGateway) SetBuyer(orderID, email string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emails[orderID] = email
}

func (g *InMemoryOrderGateway) Load(_ context.Context, orderID string) (Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	order, ok := g.orders[orderID]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return order, nil
}

func (g *InMemoryOrderGateway) TransitionFromPending(_ context.Context, orderID string, to OrderStatus, message string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	order, ok := g.orders[orderID]
	if !ok {
		return false, ErrOrderNotFound
	}
	if order.Status != StatusPending {
		return false, nil
	}
	order.Status = to
	order.PaymentMessage = message
	g.orders[orderID] = order
	return true, nil
}

func (g *InMemoryOrderGateway) MarkPaymentComplete(_ context.Context, orderID, reference string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.markCalls[orderID]++
	if _, ok := g.receipts[orderID]; ok {
		return nil
	}
	g.receipts[orderID] = reference
	return nil
}

// CheckoutEmail returns the buyer email recorded for the order.
func (g *InMemoryOrderGateway) CheckoutEmail(_ context.Context, orderID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	email, ok := g.emails[orderID]
	if !ok || email == "" {
		return "", errors.New("buyer unavailable")
	}
	return email, nil
}

// Receipt returns the recorded payment reference, if any (for inspection).
func (g *InMemoryOrderGateway) Receipt(orderID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ref, ok := g.receipts[orderID]
	return ref, ok
}

// MarkCalls reports how often MarkPaymentComplete ran for the order (for
// inspection).
func (g *InMemoryOrderGateway) MarkCalls(orderID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.markCalls[orderID]
}
