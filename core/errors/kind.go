package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a rejected operation so callers can react without matching
// individual sentinels.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindValidation covers malformed input: bad amounts, out-of-range
	// parameters, unknown games.
	KindValidation
	// KindResource covers balances that cannot back the operation.
	KindResource
	// KindAuthorization covers callers without the required authority.
	KindAuthorization
	// KindState covers operations attempted in the wrong lifecycle phase.
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindResource:
		return "resource"
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Error is a classified error. Sentinels built with New compare by identity,
// so errors.Is keeps working through fmt.Errorf wrapping.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil && e.Msg != "" {
		return e.Msg + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns a classified sentinel error.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a kind to an existing error. Nil stays nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Wrapf attaches a kind and context to an existing error.
func Wrapf(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the outermost classification found in the chain.
func KindOf(err error) Kind {
	var classified *Error
	if stderrors.As(err, &classified) {
		if classified.Kind == KindUnknown && classified.Err != nil {
			return KindOf(classified.Err)
		}
		return classified.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
