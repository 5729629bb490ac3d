package dwarf

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by this package matches exactly one of
// these with errors.Is.
var (
	// ErrIO reports that the underlying file could not be opened or read.
	ErrIO = errors.New("io error")
	// ErrFormat reports a container without the expected debug sections.
	ErrFormat = errors.New("format error")
	// ErrCorrupt reports a violated structural invariant: a length, an
	// offset bound or a missing terminator.
	ErrCorrupt = errors.New("corrupt debug info")
	// ErrUnsupported reports a form, opcode or table kind outside the
	// implemented set.
	ErrUnsupported = errors.New("unsupported")
	// ErrNotFound reports an absent auxiliary table or referenced offset.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState reports use of a view after its Session was closed.
	ErrInvalidState = errors.New("invalid state")
)

// Error carries the kind of a decode failure and where it happened.
type Error struct {
	Kind    error
	Op      string
	Section string
	Offset  uint64
	// Form is set when the failure concerns an attribute form.
	Form Form
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("dwarf: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Section != "" {
		fmt.Fprintf(&b, " in %s at 0x%x", e.Section, e.Offset)
	}
	if e.Form != 0 {
		fmt.Fprintf(&b, " (form %s)", e.Form)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches the error kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func corruptf(section string, off uint64, format string, args ...any) error {
	return &Error{Kind: ErrCorrupt, Section: section, Offset: off, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(section string, off uint64, format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Section: section, Offset: off, Msg: fmt.Sprintf(format, args...)}
}

func unsupportedf(section string, off uint64, format string, args ...any) error {
	return &Error{Kind: ErrUnsupported, Section: section, Offset: off, Msg: fmt.Sprintf(format, args...)}
}

func unsupportedForm(section string, off uint64, form Form, msg string) error {
	return &Error{Kind: ErrUnsupported, Section: section, Offset: off, Form: form, Msg: msg}
}

func ioError(op string, err error) error {
	return &Error{Kind: ErrIO, Op: op, Err: err}
}

func formatError(op, msg string) error {
	return &Error{Kind: ErrFormat, Op: op, Msg: msg}
}

var errClosed = &Error{Kind: ErrInvalidState, Msg: "session is closed"}
