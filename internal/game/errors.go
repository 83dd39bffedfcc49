package game

import (
	"errors"
	"fmt"
)

var (
	ErrMissingServerId = errors.New("missing server id")
	ErrNotIdentified   = errors.New("connection has not identified")
)

// Kind classifies errors by how they are surfaced to a connection.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is a malformed payload. Dropped and logged.
	KindValidation
	// KindAuthorization is a banned, non-whitelisted or non-operator user.
	KindAuthorization
	// KindNotFound is an unknown server instance.
	KindNotFound
	// KindTransientStore is a failed persistence call. Retried on the next trigger.
	KindTransientStore
	// KindProtocol is a well formed but unsupported request.
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not found"
	case KindTransientStore:
		return "transient store"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Error carries a Kind and the message shown to the client.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: err}
}

func NewAuthorizationError(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func NewNotFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func NewTransientStoreError(err error) *Error {
	return &Error{Kind: KindTransientStore, Message: "Server unavailable", Err: err}
}

func NewProtocolError(msg string) *Error {
	return &Error{Kind: KindProtocol, Message: msg}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error"
}
