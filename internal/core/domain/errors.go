package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindValidation       ErrorKind = "validation_error"
	KindForbidden        ErrorKind = "forbidden"
	KindAlreadyCompleted ErrorKind = "already_completed"
	KindMissingLocation  ErrorKind = "missing_location"
	KindTooFar           ErrorKind = "too_far"
)

// Error is the error type every core operation fails with. Anything else
// reaching the HTTP boundary is treated as internal.
type Error struct {
	Kind    ErrorKind
	Message string
	Field   string

	// Set for KindTooFar.
	DistanceMeters int
	RadiusMeters   int
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func ErrNotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func ErrValidation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func ErrForbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func ErrAlreadyCompleted() *Error {
	return &Error{Kind: KindAlreadyCompleted, Message: "visit is already completed"}
}

func ErrMissingLocation() *Error {
	return &Error{Kind: KindMissingLocation, Message: "a GPS location is required to validate presence"}
}

func ErrTooFar(distance, radius int) *Error {
	return &Error{
		Kind:           KindTooFar,
		Message:        fmt.Sprintf("too far from the family (%d m), move within %d m", distance, radius),
		DistanceMeters: distance,
		RadiusMeters:   radius,
	}
}

// KindOf returns the kind of a domain error anywhere in err's chain, or "".
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
