package errors

import (
	"errors"
	"fmt"
)

// Kind classifies where in a run an error came from.
type Kind string

const (
	KindInternal  Kind = "internal"
	KindConfig    Kind = "config"
	KindRetrieval Kind = "retrieval"
	KindStorage   Kind = "storage"
	KindExport    Kind = "export"
)

// Error represents a universal error type between the stages of a run.
type Error struct {
	Kind    Kind
	Err     error // The error this wraps
	Details []Detail
}

type Detail struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s, details: %v", e.Kind, e.Err, e.Details)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds an [Error] from whatever it is handed: a string or error becomes
// the wrapped error, a [Kind] sets the kind, and details are appended.
func E(args ...any) *Error {
	ret := &Error{
		Kind:    KindInternal,
		Err:     nil,
		Details: nil,
	}

	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			ret.Err = errors.New(arg)
		case error:
			ret.Err = arg
		case Kind:
			ret.Kind = arg
		case Detail:
			ret.Details = append(ret.Details, arg)
		case []Detail:
			ret.Details = append(ret.Details, arg...)
		}
	}

	return ret
}

// KindOf reports the kind of the first [Error] in err's chain, or
// [KindInternal] if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
