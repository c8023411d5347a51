package core

import (
	"errors"
	"fmt"
)

// Kind classifies ledger failures so callers can map them to responses.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindUpload            Kind = "upload"
	KindPersistence       Kind = "persistence"
	// KindCanceled marks an operation abandoned before its first write because
	// the caller's context ended.
	KindCanceled Kind = "canceled"
)

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrUpload            = &Error{Kind: KindUpload}
	ErrPersistence       = &Error{Kind: KindPersistence}
	ErrCanceled          = &Error{Kind: KindCanceled}
)

// Error is the typed result every ledger operation fails with.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of op and message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Message: msg}
}

func NotFound(op, msg string) error {
	return &Error{Kind: KindNotFound, Op: op, Message: msg}
}

func InsufficientFunds(op, msg string) error {
	return &Error{Kind: KindInsufficientFunds, Op: op, Message: msg}
}

func UploadFailed(op string, err error) error {
	return &Error{Kind: KindUpload, Op: op, Message: "failed to upload image", Err: err}
}

func Persistence(op string, err error) error {
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}

// Canceled wraps a context error; errors.Is still matches context.Canceled
// and context.DeadlineExceeded through it.
func Canceled(op string, err error) error {
	return &Error{Kind: KindCanceled, Op: op, Message: "request cancelled", Err: err}
}

// KindOf returns the kind of a ledger error, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the user-facing message of a ledger error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
