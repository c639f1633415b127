package settlement

import "github.com/shopspring/decimal"

// MinorUnitFactor converts between the provider's minor currency unit (kobo)
// and the store's major unit (naira).
const MinorUnitFactor = 100

// Verification is the provider-reported outcome of checking one transaction
// reference. Constructed fresh from each verify call, never cached.
type Verification struct {
	Succeeded   bool
	AmountMinor int64
	Message     string
}

// AmountRule selects how the paid amount is matched against the order total.
type AmountRule int

const (
	// AmountAtLeast accepts overpayment. Used by the webhook entry.
	AmountAtLeast AmountRule = iota
	// AmountExact requires an exact match. Used by the buyer-return entry.
	AmountExact
)

// DecisionKind classifies the target transition for a verification outcome.
type DecisionKind int

const (
	NoAction DecisionKind = iota
	Complete
	AmountMismatch
	Fail
)

// Decision is the policy output: the transition to perform and the message to
// record on the order.
type Decision struct {
	Kind    DecisionKind
	Message string
}

const mismatchMessage = "Amount paid does not match order amount, this requires investigation"

// Decide maps a verification outcome onto an order transition. Pure: no I/O,
// no clock. Amount math is decimal so the equality boundary is exact.
func Decide(total decimal.Decimal, status OrderStatus, v Verification, rule AmountRule) Decision {
	if status == StatusCompleted {
		return Decision{Kind: NoAction}
	}
	if !v.Succeeded {
		return Decision{Kind: Fail, Message: v.Message}
	}

	paid := decimal.NewFromInt(v.AmountMinor).Div(decimal.NewFromInt(MinorUnitFactor))
	switch rule {
	case AmountExact:
		if !paid.Equal(total) {
			return Decision{Kind: AmountMismatch, Message: mismatchMessage}
		}
	default:
		if paid.LessThan(total) {
			return Decision{Kind: AmountMismatch, Message: mismatchMessage}
		}
	}
	return Decision{Kind: Complete, Message: v.Message}
}
