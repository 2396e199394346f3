// Package errs defines the error taxonomy shared by the buffer, props,
// volume and format packages.
//
// Every failure is an *Error carrying a Kind. Use errors.Is against the kind
// sentinels (ErrRange, ErrStructural, ...) to classify a failure, or against
// the coded sentinels (ErrDuplicateChunk, ...) to match one specific case.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind string

const (
	KindResource   Kind = "resource"
	KindRange      Kind = "range"
	KindConversion Kind = "conversion"
	KindValidity   Kind = "validity"
	KindStructural Kind = "structural"
	KindIO         Kind = "io"
)

// Code identifies a specific failure within a kind.
type Code string

const (
	CodeDuplicateChunk         Code = "DUPLICATE_CHUNK"
	CodeNotRectangular         Code = "NOT_RECTANGULAR"
	CodeNotABranch             Code = "NOT_A_BRANCH"
	CodeCoordinateOutOfRange   Code = "COORDINATE_OUT_OF_RANGE"
	CodeSizeMismatch           Code = "SIZE_MISMATCH"
	CodeIndexed                Code = "ALREADY_INDEXED"
	CodeNoFormat               Code = "NO_FORMAT"
	CodeUnsupportedConversion  Code = "UNSUPPORTED_CONVERSION"
	CodeLossyConversion        Code = "LOSSY_CONVERSION"
	CodeReleased               Code = "RELEASED"
	CodeInsufficientProperties Code = "INSUFFICIENT_PROPERTIES"
	CodeForeignChunk           Code = "FOREIGN_CHUNK"
)

// Error is the structured error type.
type Error struct {
	Kind    Kind
	Code    Code   // optional
	Op      string // operation that failed, e.g. "buffer.ConvertTo"
	Format  string // active format descriptor, set for KindIO
	Message string
	Cause   error
}

// Sentinels for errors.Is.
var (
	ErrResource   = &Error{Kind: KindResource}
	ErrRange      = &Error{Kind: KindRange}
	ErrConversion = &Error{Kind: KindConversion}
	ErrValidity   = &Error{Kind: KindValidity}
	ErrStructural = &Error{Kind: KindStructural}
	ErrIO         = &Error{Kind: KindIO}

	ErrDuplicateChunk        = &Error{Kind: KindStructural, Code: CodeDuplicateChunk}
	ErrNotRectangular        = &Error{Kind: KindStructural, Code: CodeNotRectangular}
	ErrNotABranch            = &Error{Kind: KindStructural, Code: CodeNotABranch}
	ErrCoordinateOutOfRange  = &Error{Kind: KindRange, Code: CodeCoordinateOutOfRange}
	ErrSizeMismatch          = &Error{Kind: KindRange, Code: CodeSizeMismatch}
	ErrIndexed               = &Error{Kind: KindStructural, Code: CodeIndexed}
	ErrNoFormat              = &Error{Kind: KindIO, Code: CodeNoFormat}
	ErrUnsupportedConversion = &Error{Kind: KindConversion, Code: CodeUnsupportedConversion}
	ErrLossyConversion       = &Error{Kind: KindConversion, Code: CodeLossyConversion}
	ErrReleased              = &Error{Kind: KindValidity, Code: CodeReleased}
	ErrInsufficient          = &Error{Kind: KindValidity, Code: CodeInsufficientProperties}
	ErrForeignChunk          = &Error{Kind: KindStructural, Code: CodeForeignChunk}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind) + " error"
		if e.Code != "" {
			msg += " (" + string(e.Code) + ")"
		}
	}
	if e.Format != "" {
		msg = e.Format + ": " + msg
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by kind, and by code when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// New creates an error of the given kind.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Coded creates an error that matches the coded sentinel s.
func Coded(s *Error, op, format string, args ...any) *Error {
	return &Error{Kind: s.Kind, Code: s.Code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around cause.
func Wrap(kind Kind, op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IO wraps the failure of format descriptor name.
func IO(op, name string, cause error) *Error {
	return &Error{Kind: KindIO, Op: op, Format: name, Message: "descriptor failed", Cause: cause}
}

// FormatOf returns the descriptor recorded in the first IO error of the chain.
func FormatOf(err error) string {
	var e *Error
	for errors.As(err, &e) {
		if e.Kind == KindIO && e.Format != "" {
			return e.Format
		}
		err = e.Cause
	}
	return ""
}

// KindOf returns the kind of the outermost *Error in the chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
