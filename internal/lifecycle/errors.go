package lifecycle

import (
	"errors"
	"fmt"
)

// Error codes for illegal operations
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeInvalidDocument   = "INVALID_DOCUMENT"
	ErrCodeIllegalTransition = "ILLEGAL_TRANSITION"
	ErrCodeMissingXML        = "MISSING_XML"
	ErrCodeInvalidState      = "INVALID_STATE"
	ErrCodeInFlight          = "IN_FLIGHT"
	ErrCodeNoTransmitter     = "NO_TRANSMITTER"
	ErrCodeStoreFailure      = "STORE_FAILURE"
	ErrCodeStatusUnavailable = "STATUS_UNAVAILABLE"
)

// Error is an illegal operation on the registry. It is returned, never
// raised, and callers branch on Code.
type Error struct {
	Code       string
	DocumentID string
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Code, e.DocumentID, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.DocumentID, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new lifecycle error
func NewError(code, documentID, message string, cause error) *Error {
	return &Error{
		Code:       code,
		DocumentID: documentID,
		Message:    message,
		Cause:      cause,
	}
}

// ErrorCode returns the code of a lifecycle error in err's chain, or ""
func ErrorCode(err error) string {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Code
	}
	return ""
}
