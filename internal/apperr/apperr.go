// Package apperr carries the domain error taxonomy. Services return *Error
// values with a discriminated Kind so callers branch on the kind instead of
// inspecting message strings.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidTransition   Kind = "invalid_transition"
	KindNotAuthorized       Kind = "not_authorized"
	KindInsufficientCredits Kind = "insufficient_credits"
	KindAlreadyPaid         Kind = "already_paid"
	KindAlreadyRefunded     Kind = "already_refunded"
	KindDuplicateReview     Kind = "duplicate_review"
	KindBookingNotCompleted Kind = "booking_not_completed"
	KindGateway             Kind = "gateway_error"
	KindNotFound            Kind = "not_found"
	KindValidation          Kind = "validation"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap keeps the underlying cause (e.g. a raw gateway failure) inspectable via
// errors.Unwrap while tagging it with a kind.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Transition builds the InvalidTransition error carrying the current state and
// the attempted operation.
func Transition(current, attempted string) *Error {
	return Newf(KindInvalidTransition, "cannot %s booking in %s status", attempted, current)
}

// KindOf extracts the kind from err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
