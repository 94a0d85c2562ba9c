package purchase

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindNotFound
	KindCapacityExceeded
	KindPaymentNotSettled
	KindAmountMismatch
	KindIntentConflict
	KindUpstreamUnavailable
	KindPartialCommitCompensated
	// KindCompensationFailed means inventory may be overstated and needs
	// manual reconciliation.
	KindCompensationFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindCapacityExceeded:
		return "capacity_exceeded"
	case KindPaymentNotSettled:
		return "payment_not_settled"
	case KindAmountMismatch:
		return "amount_mismatch"
	case KindIntentConflict:
		return "intent_conflict"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindPartialCommitCompensated:
		return "partial_commit_compensated"
	case KindCompensationFailed:
		return "compensation_failed"
	default:
		return "internal"
	}
}

// Error is a purchase failure with a message safe to show to the buyer.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindInternal if there is none.
func KindOf(err error) Kind {
	var purchaseErr *Error
	if errors.As(err, &purchaseErr) {
		return purchaseErr.Kind
	}
	return KindInternal
}

func capacityMessage(ticketName string, remaining int) string {
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("Not enough tickets available for %s. Only %d left.", ticketName, remaining)
}
