package core

import "errors"

// Error codes reported to clients.
const (
	ErrCodeValidation   = "validation_error"
	ErrCodeNotFound     = "not_found"
	ErrCodeStorage      = "storage_error"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeBadRequest   = "bad_request"
	ErrCodeRateLimited  = "rate_limited"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrStorage          = errors.New("storage error")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrBadRequest       = errors.New("bad request")
	ErrRateLimited      = errors.New("rate limited")
	ErrDelivery         = errors.New("delivery failed")
	ErrConnectionClosed = errors.New("connection closed")
)

var codeSentinels = map[string]error{
	ErrCodeValidation:   ErrValidation,
	ErrCodeNotFound:     ErrNotFound,
	ErrCodeStorage:      ErrStorage,
	ErrCodeUnauthorized: ErrUnauthorized,
	ErrCodeBadRequest:   ErrBadRequest,
	ErrCodeRateLimited:  ErrRateLimited,
}

// CoreError wraps a code and human-readable message.
// It matches the sentinel for its code with errors.Is.
type CoreError struct {
	Code    string
	Message string
	cause   error
}

func (e *CoreError) Error() string {
	return e.Message
}

// Unwrap exposes the code sentinel and the underlying cause.
func (e *CoreError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := codeSentinels[e.Code]; ok {
		errs = append(errs, s)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

func wrapCoreError(code, msg string, cause error) *CoreError {
	return &CoreError{Code: code, Message: msg, cause: cause}
}

// AsCoreError converts any error into a CoreError suitable for the wire.
// Errors without a code are reported as storage errors without leaking details.
func AsCoreError(err error) *CoreError {
	if err == nil {
		return nil
	}
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	return wrapCoreError(ErrCodeStorage, "internal error", err)
}
