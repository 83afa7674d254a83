package errors

import (
	"fmt"
	"testing"
)

func TestOperationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *OperationError
		expected string
	}{
		{
			name: "full error",
			err: &OperationError{
				Operation: "apply hunk",
				Component: "patch-engine",
				Resource:  "src/lib.rs",
				Cause:     fmt.Errorf("no window scored above min_similarity"),
			},
			expected: "failed to apply hunk, component: patch-engine, resource: src/lib.rs, cause: no window scored above min_similarity",
		},
		{
			name: "minimal error",
			err: &OperationError{
				Operation: "parse diagnostics",
				Cause:     fmt.Errorf("malformed json"),
			},
			expected: "failed to parse diagnostics, cause: malformed json",
		},
		{
			name: "no cause",
			err: &OperationError{
				Operation: "transition state",
				Component: "orchestrator",
			},
			expected: "failed to transition state, component: orchestrator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("OperationError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := &OperationError{Operation: "test", Cause: cause}

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("OperationError.Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := &OperationError{Operation: "test"}
	if unwrapped := errNoCause.Unwrap(); unwrapped != nil {
		t.Errorf("OperationError.Unwrap() with no cause = %v, want nil", unwrapped)
	}
}

func TestFailedTo(t *testing.T) {
	err := FailedTo("spawn gate", fmt.Errorf("exec: not found"))
	if err == nil {
		t.Fatal("FailedTo() returned nil")
	}
	want := "failed to spawn gate: exec: not found"
	if err.Error() != want {
		t.Errorf("FailedTo() = %q, want %q", err.Error(), want)
	}
}

func TestFailedTo_NoCause(t *testing.T) {
	err := FailedTo("resolve issue", nil)
	if err == nil {
		t.Fatal("FailedTo() returned nil")
	}
	if err.Error() != "failed to resolve issue" {
		t.Errorf("FailedTo() = %q", err.Error())
	}
}
