// File: internal/errs/errs.go
// Brief: Error taxonomy shared by discovery, prechecks, lifecycle and config delivery.

// Package errs classifies kycstack failures so the CLI can pick a hint and tests can assert on
// the failure class with errors.Is.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for each failure class. Match with errors.Is.
var (
	ErrNotFound                = errors.New("not found")
	ErrInvariantViolation      = errors.New("invariant violation")
	ErrProviderOperationFailed = errors.New("provider operation failed")
	ErrPreconditionDeclined    = errors.New("aborted")
	ErrConfiguration           = errors.New("configuration error")
)

// Error is a classified failure. Kind is one of the package sentinels.
type Error struct {
	Kind    error
	Message string
	// Detail carries diagnostic output returned by the provider, if any.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Message != "" {
		b.WriteString(e.Message)
	} else if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Invariant(format string, args ...any) error {
	return &Error{Kind: ErrInvariantViolation, Message: "invariant violation: " + fmt.Sprintf(format, args...)}
}

func Declined(question string) error {
	q := strings.TrimSpace(question)
	if i := strings.IndexByte(q, '\n'); i >= 0 {
		q = strings.TrimSpace(q[:i])
	}
	return &Error{Kind: ErrPreconditionDeclined, Message: "aborted by operator", Detail: q}
}

func Configuration(format string, args ...any) error {
	return &Error{Kind: ErrConfiguration, Message: fmt.Sprintf(format, args...)}
}

// ProviderFailed wraps a terminal provider failure. detail is the provider's own diagnostic.
func ProviderFailed(op string, detail string, cause error) error {
	return &Error{Kind: ErrProviderOperationFailed, Message: op + " failed", Detail: strings.TrimSpace(detail), Err: cause}
}

// KindOf returns the sentinel for err, or nil when err is unclassified.
func KindOf(err error) error {
	for _, kind := range []error{ErrPreconditionDeclined, ErrConfiguration, ErrInvariantViolation, ErrProviderOperationFailed, ErrNotFound} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
