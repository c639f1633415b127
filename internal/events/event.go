package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event records the outcome of one settlement attempt. Events are write-only
// fan-out for operators and audit; settlement decisions never read them back.
type Event struct {
	ID          uuid.UUID `json:"id"`
	OrderID     string    `json:"order_id"`
	Reference   string    `json:"reference"`
	Outcome     string    `json:"outcome"`
	AmountMinor int64     `json:"amount_minor"`
	Message     string    `json:"message,omitempty"`
	At          time.Time `json:"at"`
}

// Publisher abstracts publishing settlement events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
