// Package errors provides the shared error shapes used across the swarm core.
//
// Two layers coexist deliberately: OperationError gives every component a
// uniform "failed to X, component: Y, resource: Z, cause: ..." string used in
// logs and event-log entries, while go-faster/errors is used at call sites
// that need Wrap/Is/As chains without hand-writing every Unwrap.
package errors

import (
	"fmt"
	"strings"

	faster "github.com/go-faster/errors"
)

// OperationError describes a failed operation with enough structure to log
// and to match on in tests, without forcing every caller to define its own
// error type.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	var b strings.Builder
	b.WriteString("failed to ")
	b.WriteString(e.Operation)
	if e.Component != "" {
		b.WriteString(", component: ")
		b.WriteString(e.Component)
	}
	if e.Resource != "" {
		b.WriteString(", resource: ")
		b.WriteString(e.Resource)
	}
	if e.Cause != nil {
		b.WriteString(", cause: ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo is the terse form used where component/resource context isn't
// available at the call site.
func FailedTo(action string, cause error) error {
	if cause == nil {
		return faster.New(fmt.Sprintf("failed to %s", action))
	}
	return faster.Wrapf(cause, "failed to %s", action)
}

// Wrap delegates to go-faster/errors so every package gets consistent
// stack-aware wrapping without importing it directly everywhere.
func Wrap(err error, msg string) error {
	return faster.Wrap(err, msg)
}

// Wrapf is the formatted form of Wrap.
func Wrapf(err error, format string, args ...any) error {
	return faster.Wrapf(err, format, args...)
}

// Is and As re-export so callers only need this package.
func Is(err, target error) bool { return faster.Is(err, target) }
func As(err error, target any) bool {
	return faster.As(err, target)
}

// Sentinel error kinds from spec.md §7, used for classification at the
// orchestrator boundary rather than string matching.
var (
	ErrConfiguration       = faster.New("configuration error")
	ErrCancelled            = faster.New("cancelled")
	ErrTimeout              = faster.New("timeout")
	ErrInferenceFailure     = faster.New("inference failure")
	ErrParseFailure         = faster.New("parse failure")
	ErrIllegalTransition    = faster.New("illegal state transition")
	ErrMaxIterations        = faster.New("max iterations exhausted")
	ErrBudgetExhausted      = faster.New("budget exhausted")
)
