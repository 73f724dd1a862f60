// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"errors"
	"fmt"
)

const (
	// KindMissingInput means the local schema file does not exist.
	KindMissingInput Kind = iota + 1
	// KindInvalidLocalDocument means the local schema file is not a JSON
	// object, or its external-definitions member is not an object.
	KindInvalidLocalDocument
	// KindFragmentParse means a matched fragment is not valid JSON.
	KindFragmentParse
	// KindFragmentRead means a matched entry of an opened archive could not be read.
	KindFragmentRead
	// KindSource means the candidate fragments could not be enumerated.
	KindSource
	// KindOutputWrite means the output file could not be written.
	KindOutputWrite
)

var (
	// ErrMissingInput is the sentinel error for KindMissingInput.
	ErrMissingInput = errors.New("local schema file not found")
	// ErrInvalidLocalDocument is the sentinel error for KindInvalidLocalDocument.
	ErrInvalidLocalDocument = errors.New("invalid local schema")
	// ErrFragmentParse is the sentinel error for KindFragmentParse.
	ErrFragmentParse = errors.New("cannot parse schema fragment")
	// ErrFragmentRead is the sentinel error for KindFragmentRead.
	ErrFragmentRead = errors.New("cannot read schema fragment")
	// ErrSource is the sentinel error for KindSource.
	ErrSource = errors.New("cannot enumerate schema fragments")
	// ErrOutputWrite is the sentinel error for KindOutputWrite.
	ErrOutputWrite = errors.New("cannot write output schema")
)

type (
	// Kind classifies a fatal bundling failure.
	Kind int

	// Error is the single structured failure a bundling run returns. It
	// wraps both the sentinel of its Kind and the underlying cause, so
	// errors.Is works for either.
	Error struct {
		Kind Kind
		// Resource names what failed: a file path, or "archive!entry" for
		// fragments.
		Resource string
		Err      error
	}
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindMissingInput:
		return "MissingInput"
	case KindInvalidLocalDocument:
		return "InvalidLocalDocument"
	case KindFragmentParse:
		return "FragmentParseError"
	case KindFragmentRead:
		return "FragmentReadError"
	case KindSource:
		return "SourceError"
	case KindOutputWrite:
		return "OutputWriteError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindMissingInput:
		return ErrMissingInput
	case KindInvalidLocalDocument:
		return ErrInvalidLocalDocument
	case KindFragmentParse:
		return ErrFragmentParse
	case KindFragmentRead:
		return ErrFragmentRead
	case KindSource:
		return ErrSource
	case KindOutputWrite:
		return ErrOutputWrite
	default:
		return nil
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.sentinel()
	if msg == nil {
		msg = errors.New(e.Kind.String())
	}
	switch {
	case e.Resource != "" && e.Err != nil:
		return fmt.Sprintf("%v: %s: %v", msg, e.Resource, e.Err)
	case e.Resource != "":
		return fmt.Sprintf("%v: %s", msg, e.Resource)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", msg, e.Err)
	default:
		return msg.Error()
	}
}

// Unwrap exposes the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}
