package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/DFBlok/market-link-app/internal/models"
	"github.com/DFBlok/market-link-app/internal/store"
)

// Kind classifies service failures for the request boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFoundOrUnauthorized
	KindInvalidStateTransition
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindConflict:
		return "ConflictError"
	case KindNotFoundOrUnauthorized:
		return "NotFoundOrUnauthorized"
	case KindInvalidStateTransition:
		return "InvalidStateTransition"
	}
	return "InternalError"
}

// Error is a classified service error. Message is safe to show to callers;
// Err is the underlying cause and is only logged.
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

func (e *Error) Unwrap() error { return e.Err }

// ErrEmailExists is returned when an attempt is made to register an email that already exists.
var ErrEmailExists = &Error{Kind: KindConflict, Message: "User with this email already exists"}

func validationError(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func missingFieldsError(fields []string) error {
	return validationError("Missing required fields: %s", strings.Join(fields, ", "))
}

func notFound(what string) error {
	return &Error{Kind: KindNotFoundOrUnauthorized, Message: what + " not found or unauthorized"}
}

func internalError(op string, err error) error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: fmt.Errorf("%s: %w", op, err)}
}

// transitionError maps the inquiry state machine errors.
func transitionError(err error) error {
	switch {
	case errors.Is(err, models.ErrInquiryClosed):
		return &Error{Kind: KindInvalidStateTransition, Message: "Inquiry is closed", Err: err}
	case errors.Is(err, models.ErrAlreadyResponded):
		return &Error{Kind: KindInvalidStateTransition, Message: "Inquiry has already been responded to", Err: err}
	case errors.Is(err, models.ErrInvalidTransition):
		return &Error{Kind: KindInvalidStateTransition, Message: "Invalid status transition", Err: err}
	}
	return internalError("inquiry transition", err)
}

// storeError translates a store failure; ErrNotFound becomes NotFoundOrUnauthorized for what.
func storeError(op, what string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(what)
	}
	return internalError(op, err)
}

// KindOf classifies any error. Unclassified errors are internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// PublicMessage is the message a caller may see for err.
func PublicMessage(err error) string {
	var se *Error
	if errors.As(err, &se) && se.Kind != KindInternal {
		return se.Message
	}
	return "Internal server error"
}
