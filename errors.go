package idlink

import (
	"errors"
	"fmt"
)

// ErrorKind is a machine-readable classification of an expected protocol
// failure. The HTTP layer maps kinds to status codes; the kinds themselves
// are the contract.
type ErrorKind string

const (
	ErrKindInvalidInput          ErrorKind = "invalid_input"
	ErrKindUnauthorized          ErrorKind = "unauthorized"
	ErrKindForbidden             ErrorKind = "forbidden"
	ErrKindInvalidRequestToken   ErrorKind = "invalid_request_token"
	ErrKindInvalidOrExpiredToken ErrorKind = "invalid_or_expired_token"
	ErrKindRequestExpired        ErrorKind = "request_expired"
	ErrKindRequestUsed           ErrorKind = "request_used"
	ErrKindIdentityAlreadyLinked ErrorKind = "identity_already_linked"
	ErrKindWouldLockOut          ErrorKind = "would_lock_out"
	ErrKindEmailTaken            ErrorKind = "email_taken"
	ErrKindInternal              ErrorKind = "internal"
)

// FlowError is a typed, expected protocol failure. All validation and
// precondition failures surface as FlowErrors; anything else crossing the
// protocol boundary is a genuine store/infrastructure error.
type FlowError struct {
	Kind    ErrorKind
	Message string
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewFlowError creates a FlowError with the given kind and message
func NewFlowError(kind ErrorKind, message string) *FlowError {
	return &FlowError{Kind: kind, Message: message}
}

// KindOf extracts the ErrorKind from an error, returning ErrKindInternal for
// anything that is not a FlowError.
func KindOf(err error) ErrorKind {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ErrKindInternal
}

// Store-level sentinel errors. Store implementations return these so the
// protocols can tell "not there" and "already there" apart from real failures.
var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrIdentityExists     = errors.New("identity already exists")
	ErrPrincipalNotFound  = errors.New("principal not found")
)
