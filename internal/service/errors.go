package service

import "queuedesk/internal/apierror"

// DomainError is a recoverable, user-actionable failure surfaced verbatim to
// the caller with a stable code. The core never retries these automatically —
// the caller decides.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string { return e.Message }

var (
	ErrInvalidTransition = &DomainError{apierror.CodeInvalidTransition, "operation not valid in the entry's current status"}
	ErrCounterBusy       = &DomainError{apierror.CodeCounterBusy, "counter already holds an active entry"}
	ErrInvalidReorderSet = &DomainError{apierror.CodeInvalidReorderSet, "reorder list must exactly match the current waiting set"}
	ErrInvalidAmount     = &DomainError{apierror.CodeInvalidAmount, "amount must be greater than zero"}
	ErrOverpayment       = &DomainError{apierror.CodeOverpayment, "amount exceeds the remaining balance"}
	ErrTxnNotFound       = &DomainError{apierror.CodeTransactionNotFound, "transaction not found"}
	ErrEntityNotFound    = &DomainError{apierror.CodeEntityNotFound, "entity not found"}
	// ErrBusy means the entity's row lock could not be acquired in time.
	// Safe for the caller to retry with backoff after re-checking state.
	ErrBusy            = &DomainError{apierror.CodeBusy, "entity is busy, retry shortly"}
	ErrResetAlreadyRan = &DomainError{apierror.CodeResetAlreadyRan, "reset already ran for this date"}
	ErrResetFailed     = &DomainError{apierror.CodeResetFailed, "reset run failed"}
)
