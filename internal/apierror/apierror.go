// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// Stable machine-readable codes. Clients branch on Code, never on Detail text.
const (
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeCounterBusy         = "COUNTER_BUSY"
	CodeInvalidReorderSet   = "INVALID_REORDER_SET"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeOverpayment         = "OVERPAYMENT"
	CodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	CodeEntityNotFound      = "ENTITY_NOT_FOUND"
	CodeBusy                = "BUSY"
	CodeResetAlreadyRan     = "RESET_ALREADY_RAN"
	CodeResetFailed         = "RESET_FAILED"
	CodeInternal            = "INTERNAL"
	CodeValidation          = "VALIDATION"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeRateLimited         = "RATE_LIMITED"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func New(code, msg string) *APIError {
	return &APIError{Code: code, Detail: msg}
}

// Internal builds the generic 500 envelope. Detail is intentionally vague.
func Internal() *APIError {
	return &APIError{Code: CodeInternal, Detail: "internal server error"}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Code   string            `json:"code"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Code: CodeValidation, Detail: "validation error", Fields: fields}
}
