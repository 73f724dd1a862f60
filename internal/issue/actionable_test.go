// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "merge schema"},
			expected: "failed to merge schema",
		},
		{
			name: "operation with resource",
			err: &ActionableError{
				Operation: "read local schema",
				Resource:  "schemas/schema-form.json",
			},
			expected: "failed to read local schema: schemas/schema-form.json",
		},
		{
			name: "operation with cause",
			err: &ActionableError{
				Operation: "load config",
				Cause:     errors.New("unknown field"),
			},
			expected: "failed to load config: unknown field",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "parse fragment",
				Resource:  "dep.jar!schemas/a.json",
				Cause:     errors.New("unexpected end of input"),
			},
			expected: "failed to parse fragment: dep.jar!schemas/a.json: unexpected end of input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_ErrorsIs(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("sentinel")
	cause := fmt.Errorf("wrapped: %w", sentinel)
	wrapped := &ActionableError{Operation: "test", Cause: cause}

	if !errors.Is(wrapped, sentinel) {
		t.Error("errors.Is should find the sentinel through the cause")
	}
}

type joined struct{ errs []error }

func (j joined) Error() string   { return "joined" }
func (j joined) Unwrap() []error { return j.errs }

func TestChain(t *testing.T) {
	t.Parallel()

	leaf := errors.New("leaf")
	other := errors.New("other")
	root := fmt.Errorf("outer: %w", joined{errs: []error{leaf, other}})

	got := Chain(root)
	want := []string{"outer: joined", "joined", "leaf", "other"}
	if len(got) != len(want) {
		t.Fatalf("Chain() = %v, want %d errors", got, len(want))
	}
	for i, err := range got {
		if err.Error() != want[i] {
			t.Errorf("Chain()[%d] = %q, want %q", i, err.Error(), want[i])
		}
	}

	if Chain(nil) != nil {
		t.Error("Chain(nil) should be empty")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name:     "simple error non-verbose",
			err:      &ActionableError{Operation: "load config"},
			contains: []string{"failed to load config"},
		},
		{
			name: "error with suggestions",
			err: &ActionableError{
				Operation:   "read local schema",
				Resource:    "schema-form.json",
				Suggestions: []string{"Pass --local", "Check file permissions"},
			},
			contains: []string{
				"failed to read local schema: schema-form.json",
				"• Pass --local",
				"• Check file permissions",
			},
		},
		{
			name: "error chain in verbose mode",
			err: &ActionableError{
				Operation: "load config",
				Cause:     errors.New("syntax error"),
			},
			verbose:  true,
			contains: []string{"Error chain:", "1. syntax error"},
		},
		{
			name: "no error chain in non-verbose",
			err: &ActionableError{
				Operation: "load config",
				Cause:     errors.New("syntax error"),
			},
			contains: []string{"failed to load config: syntax error"},
			excludes: []string{"Error chain:"},
		},
		{
			name: "nested error chain verbose",
			err: &ActionableError{
				Operation: "merge schema",
				Cause: &ActionableError{
					Operation: "write output",
					Cause:     errors.New("read-only file system"),
				},
			},
			verbose: true,
			contains: []string{
				"1. failed to write output: read-only file system",
				"2. read-only file system",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.err.Format(tt.verbose)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Format() missing %q\ngot:\n%s", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("Format() should not contain %q\ngot:\n%s", s, got)
				}
			}
		})
	}
}

func TestActionableError_HasSuggestions(t *testing.T) {
	t.Parallel()

	if !(&ActionableError{Operation: "x", Suggestions: []string{"Try this"}}).HasSuggestions() {
		t.Error("HasSuggestions() should return true when suggestions present")
	}
	if (&ActionableError{Operation: "x"}).HasSuggestions() {
		t.Error("HasSuggestions() should return false when no suggestions")
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      func() *ErrorContext
		wantNil    bool
		checkError func(t *testing.T, err *ActionableError)
	}{
		{
			name:  "minimal with operation",
			setup: func() *ErrorContext { return NewErrorContext().WithOperation("scan archives") },
			checkError: func(t *testing.T, err *ActionableError) {
				t.Helper()
				if err.Operation != "scan archives" {
					t.Errorf("Operation = %q", err.Operation)
				}
			},
		},
		{
			name:    "missing operation returns nil",
			setup:   func() *ErrorContext { return NewErrorContext().WithResource("some/path") },
			wantNil: true,
		},
		{
			name: "full context",
			setup: func() *ErrorContext {
				return NewErrorContext().
					WithOperation("load config").
					WithResource("schemabundle.cue").
					WithSuggestion("Check syntax").
					WithSuggestions("Run 'schemabundle config show'").
					WithIssue(ConfigLoadFailedId).
					Wrap(errors.New("parse error"))
			},
			checkError: func(t *testing.T, err *ActionableError) {
				t.Helper()
				if err.Resource != "schemabundle.cue" {
					t.Errorf("Resource = %q", err.Resource)
				}
				if len(err.Suggestions) != 2 {
					t.Errorf("Suggestions count = %d, want 2", len(err.Suggestions))
				}
				if err.Issue != ConfigLoadFailedId {
					t.Errorf("Issue = %d, want %d", err.Issue, ConfigLoadFailedId)
				}
				if err.Cause == nil || err.Cause.Error() != "parse error" {
					t.Errorf("Cause = %v", err.Cause)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.setup().Build()
			if tt.wantNil {
				if err != nil {
					t.Errorf("Build() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Build() returned nil, want error")
			}
			tt.checkError(t, err)
		})
	}
}

func TestErrorContext_BuildError(t *testing.T) {
	t.Parallel()

	err := NewErrorContext().WithOperation("test").BuildError()
	var ae *ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("BuildError() = %T, want *ActionableError", err)
	}

	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() = %v, want untyped nil when operation missing", err)
	}
}

func TestWrapWithContext(t *testing.T) {
	t.Parallel()

	cause := errors.New("original error")
	err := WrapWithContext(cause, "write output", "/out/schema-form.json")
	if err == nil {
		t.Fatal("WrapWithContext returned nil")
	}
	if err.Operation != "write output" || err.Resource != "/out/schema-form.json" {
		t.Errorf("WrapWithContext() = %+v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("Cause should be the original error")
	}
	if WrapWithContext(nil, "test", "resource") != nil {
		t.Error("WrapWithContext(nil) should return nil")
	}
}

func TestErrorContext_Reuse(t *testing.T) {
	t.Parallel()

	ctx := NewErrorContext().
		WithOperation("parse fragment").
		WithResource("dep.jar!schemas/a.json")

	err1 := ctx.Wrap(errors.New("error 1")).Build()
	err2 := ctx.Wrap(errors.New("error 2")).Build()

	if err1.Cause.Error() == err2.Cause.Error() {
		t.Error("Reused context should allow different causes")
	}
	if err1.Operation != err2.Operation {
		t.Error("Reused context should preserve operation")
	}
}
