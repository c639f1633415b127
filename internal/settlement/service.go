package settlement

import (
	"context"
	"fmt"
	"log"
	"time"

	"tollgate/internal/events"

	"github.com/google/uuid"
)

// ProviderVerifier issues the verify call against the payment provider.
// Single attempt: a transport failure surfaces as an error and the caller's
// own retry mechanism (webhook redelivery, buyer retry) is relied upon.
type ProviderVerifier interface {
	Verify(ctx context.Context, reference string) (Verification, error)
}

// Outcome classifies what a reconciliation entry did to the order.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeAlreadySettled
	OutcomeMismatch
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeAlreadySettled:
		return "already_settled"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Result carries the webhook outcome and the provider message for the
// acknowledgment body.
type Result struct {
	Outcome Outcome
	Message string
}

// ReturnResult reports whether the buyer-return entry completed the order.
type ReturnResult struct {
	Confirmed bool
}

// Service reconciles orders against provider-verified payment outcomes. The
// two entries may run concurrently for the same order; correctness rests on
// the gateway's TransitionFromPending compare-and-set, not on any in-process
// exclusion.
type Service struct {
	gateway   OrderGateway
	verifier  ProviderVerifier
	publisher events.Publisher
	logf      func(format string, args ...any)
}

// NewService constructs a Service. The publisher may be nil when no event
// sink is configured.
func NewService(gateway OrderGateway, verifier ProviderVerifier, publisher events.Publisher, logf func(format string, args ...any)) *Service {
	if logf == nil {
		logf = log.Printf
	}
	return &Service{
		gateway:   gateway,
		verifier:  verifier,
		publisher: publisher,
		logf:      logf,
	}
}

// HandleWebhook settles an order from the provider's server-to-server
// notification. The reference is the order id. The notification payload is
// never trusted; the transaction is re-verified with the provider.
func (s *Service) HandleWebhook(ctx context.Context, reference string) (Result, error) {
	order, err := s.gateway.Load(ctx, reference)
	if err != nil {
		return Result{}, err
	}
	if order.Status == StatusCompleted {
		return Result{Outcome: OutcomeAlreadySettled}, nil
	}

	verification, err := s.verifier.Verify(ctx, reference)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}

	decision := Decide(order.Total, order.Status, verification, AmountAtLeast)
	switch decision.Kind {
	case NoAction:
		return Result{Outcome: OutcomeAlreadySettled}, nil

	case Complete:
		moved, err := s.gateway.TransitionFromPending(ctx, order.ID, StatusCompleted, decision.Message)
		if err != nil {
			return Result{}, err
		}
		if !moved {
			return Result{Outcome: OutcomeAlreadySettled, Message: decision.Message}, nil
		}
		if err := s.gateway.MarkPaymentComplete(ctx, order.ID, reference); err != nil {
			return Result{}, err
		}
		s.publish(ctx, order, OutcomeCompleted, verification)
		return Result{Outcome: OutcomeCompleted, Message: decision.Message}, nil

	case AmountMismatch:
		moved, err := s.gateway.TransitionFromPending(ctx, order.ID, StatusCancelled, decision.Message)
		if err != nil {
			return Result{}, err
		}
		if moved {
			s.publish(ctx, order, OutcomeMismatch, verification)
		}
		return Result{Outcome: OutcomeMismatch, Message: decision.Message}, nil

	default: // Fail
		moved, err := s.gateway.TransitionFromPending(ctx, order.ID, StatusFailed, decision.Message)
		if err != nil {
			return Result{}, err
		}
		if moved {
			s.publish(ctx, order, OutcomeFailed, verification)
		}
		return Result{Outcome: OutcomeFailed, Message: decision.Message}, nil
	}
}

// ConfirmReturn settles an order when the buyer lands back from the hosted
// payment page. Only a pending order is acted on; the webhook is
// authoritative once it has landed, so any other state is a silent no-op.
// Completion requires the paid amount to match the total exactly.
func (s *Service) ConfirmReturn(ctx context.Context, orderID string) (ReturnResult, error) {
	order, err := s.gateway.Load(ctx, orderID)
	if err != nil {
		return ReturnResult{}, err
	}
	if order.Status != StatusPending {
		return ReturnResult{}, nil
	}

	verification, err := s.verifier.Verify(ctx, orderID)
	if err != nil {
		return ReturnResult{}, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}

	decision := Decide(order.Total, order.Status, verification, AmountExact)
	if decision.Kind != Complete {
		// Leave the order as-is; a later webhook delivery may still
		// settle it.
		return ReturnResult{}, nil
	}

	moved, err := s.gateway.TransitionFromPending(ctx, order.ID, StatusCompleted, decision.Message)
	if err != nil {
		return ReturnResult{}, err
	}
	if !moved {
		return ReturnResult{}, nil
	}
	if err := s.gateway.MarkPaymentComplete(ctx, order.ID, order.ID); err != nil {
		return ReturnResult{}, err
	}
	s.publish(ctx, order, OutcomeCompleted, verification)
	return ReturnResult{Confirmed: true}, nil
}

// publish emits a settlement event. Best effort: a sink failure is logged and
// never unwinds a settlement that already committed.
func (s *Service) publish(ctx context.Context, order Order, outcome Outcome, v Verification) {
	if s.publisher == nil {
		return
	}
	ev := events.Event{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Reference:   order.ID,
		Outcome:     outcome.String(),
		AmountMinor: v.AmountMinor,
		Message:     v.Message,
		At:          time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logf("publish settlement event for order %s: %v", order.ID, err)
	}
}
