// Package vmerr defines the structured runtime and compile-time error
// taxonomy. Errors are values, never panics: every fallible
// core operation returns (Value, error) or error, and a *vmerr.Error
// implements the standard error interface so callers can use errors.Is/As.
package vmerr

import "fmt"

// Kind identifies a runtime-error category from the taxonomy.
type Kind string

const (
	InvalidOperation  Kind = "InvalidOperation"
	TypeMismatch      Kind = "TypeMismatch"
	NameUnbound       Kind = "NameUnbound"
	ConstAssignment   Kind = "ConstAssignment"
	ArityMismatch     Kind = "ArityMismatch"
	UnknownNamedArg   Kind = "UnknownNamedArg"
	DuplicateNamedArg Kind = "DuplicateNamedArg"
	MissingRequiredArg Kind = "MissingRequiredArg"
	CallOnNonCallable Kind = "CallOnNonCallable"
	NativeError       Kind = "NativeError"
	DivisionByZero    Kind = "DivisionByZero"
	PatternMatchFailure Kind = "PatternMatchFailure"
)

// Error is the concrete runtime-error value. IndexOutOfBounds and
// KeyMissing are deliberately not Kinds here: they never raise, they
// evaluate to Nil, so they never reach this type.
type Error struct {
	Kind     Kind
	Message  string
	Function string // best-effort: enclosing function name at fault time
	PC       int    // best-effort: program counter within Function.Code
	Wrapped  error
}

func (e *Error) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("%s: %s (in %s at pc=%d)", e.Kind, e.Message, e.Function, e.PC)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New builds an Error with no position information yet attached; callers
// in internal/interp attach Function/PC via WithSite before the error
// crosses a call boundary.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a NativeError that carries an underlying Go error verbatim,
// propagated as-is from a native function.
func Wrap(err error) *Error {
	return &Error{Kind: NativeError, Message: err.Error(), Wrapped: err}
}

// WithSite returns a copy of e with Function/PC attached, used by the
// interpreter at the point an error is about to propagate across a call
// boundary ("Propagation").
func (e *Error) WithSite(function string, pc int) *Error {
	cp := *e
	if cp.Function == "" {
		cp.Function = function
	}
	cp.PC = pc
	return &cp
}

// Is supports errors.Is comparisons against a Kind-only sentinel:
// errors.Is(err, &vmerr.Error{Kind: vmerr.ConstAssignment}) matches any
// error of that Kind; a target with a Message must also match the message.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	if te.Message == "" {
		return e.Kind == te.Kind
	}
	return e.Kind == te.Kind && e.Message == te.Message
}

// CompileError is a structured compile-time failure, carrying source
// position when the AST node that produced it still has one attached.
type CompileError struct {
	Message string
	Line    int
	Column  int
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compile error at %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("compile error: %s", e.Message)
}

func NewCompileError(line, col int, format string, args ...any) *CompileError {
	return &CompileError{Message: fmt.Sprintf(format, args...), Line: line, Column: col}
}
