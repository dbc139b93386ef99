package mapper

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether to abort or continue.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig       // unknown model, missing header, bad option
	KindParse        // malformed CSV or JSON
	KindIO           // open, create, write, rename
	KindNetwork      // timeout, connection failure, empty escalation result
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration error"
	case KindParse:
		return "parse error"
	case KindIO:
		return "i/o error"
	case KindNetwork:
		return "network error"
	}
	return "error"
}

// Error is an error tagged with its Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds an *Error. A nil err yields nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an *Error from a format string.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the outermost *Error in err's chain.
// A *ParseError without an enclosing *Error reports KindParse.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return KindParse
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ParseError represents a malformed row in a delimited table.
type ParseError struct {
	Source  string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", e.Source, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}
