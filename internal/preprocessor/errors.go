package preprocessor

import (
	"errors"
	"fmt"
)

// Kind classifies a fatal preprocessing error.
type Kind int

const (
	IOError         Kind = iota + 1 // cannot open an input, include or output path
	SyntaxError                     // malformed directive, macro block or invocation
	StructuralError                 // an included unit declares further includes
	InvocationError                 // macro called with the wrong argument count
)

func (k Kind) String() string {
	switch k {
	case IOError:
		return "io error"
	case SyntaxError:
		return "syntax error"
	case StructuralError:
		return "structural error"
	case InvocationError:
		return "invocation error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a positioned diagnostic. Line is 1-based; zero means the error
// concerns the unit as a whole.
type Error struct {
	Kind Kind
	Path string
	Line int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var where string
	switch {
	case e.Path != "" && e.Line > 0:
		where = fmt.Sprintf("%s(%d): ", e.Path, e.Line)
	case e.Path != "":
		where = e.Path + ": "
	}
	if e.Err != nil {
		return fmt.Sprintf("%s%s: %v", where, e.Msg, e.Err)
	}
	return where + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error of the same kind with no position,
// so errors.Is(err, &Error{Kind: SyntaxError}) matches any syntax error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Path == "" && t.Line == 0 && t.Msg == ""
}

func errorf(kind Kind, path string, line int, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error found in err's tree, or 0.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
