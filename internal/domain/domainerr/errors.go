// Package domainerr classifies domain failures into the categories callers
// act on: fix the input, treat as a business signal, or report a bug.
package domainerr

import (
	"errors"

	"giftcircle/internal/store"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthorized
	KindInvalidTransition
	KindDeleteVerificationFailed
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindDeleteVerificationFailed:
		return "delete_verification_failed"
	default:
		return "internal"
	}
}

// Error is a categorized failure with a stable machine code and a
// human-readable reason.
type Error struct {
	Kind   Kind
	Code   string
	Reason string
}

func New(kind Kind, code, reason string) *Error {
	return &Error{Kind: kind, Code: code, Reason: reason}
}

func (e *Error) Error() string {
	return e.Reason
}

func Validation(reason string) error {
	return &Error{Kind: KindValidation, Code: "invalid_request", Reason: reason}
}

type wrapped struct {
	sentinel *Error
	cause    error
}

func (w *wrapped) Error() string {
	return w.sentinel.Reason + ": " + w.cause.Error()
}

func (w *wrapped) Unwrap() []error {
	return []error{w.sentinel, w.cause}
}

// Wrap attaches a cause to a sentinel so both errors.Is(err, sentinel) and
// errors.As on the cause keep working.
func Wrap(sentinel *Error, cause error) error {
	if cause == nil {
		return sentinel
	}
	return &wrapped{sentinel: sentinel, cause: cause}
}

func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	var verification *store.DeleteVerificationFailed
	if errors.As(err, &verification) {
		return KindDeleteVerificationFailed
	}
	var constraint *store.ConstraintViolation
	if errors.As(err, &constraint) {
		return KindConflict
	}
	if errors.Is(err, store.ErrNotFound) {
		return KindNotFound
	}
	return KindInternal
}

// CodeOf returns the machine code for err, derived from its kind when no
// domain error is present in the chain.
func CodeOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	switch KindOf(err) {
	case KindDeleteVerificationFailed:
		return "delete_verification_failed"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal_error"
	}
}

// ReasonOf returns the user-facing reason. Internal errors never leak their
// message.
func ReasonOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Reason
	}
	switch KindOf(err) {
	case KindDeleteVerificationFailed:
		return "delete was not applied by the store"
	case KindConflict:
		return "conflicting write"
	case KindNotFound:
		return "not found"
	default:
		return "internal error"
	}
}
