package identity

import (
	"errors"
	"fmt"
)

// OpError is a typed operation error with a stable Op + Kind contract for callers/tests.
//   - Kind MUST be one of the sentinel kinds.
//   - Msg is safe to show to the caller; never put secrets or store details in it.
//   - Cause keeps the underlying failure for logs. It is never rendered to clients.
type OpError struct {
	Op    string
	Kind  error
	Msg   string
	Cause error
}

func (e OpError) Error() string {
	s := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e OpError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// E builds an OpError.
func E(op string, kind error, msg string) error {
	return OpError{Op: op, Kind: kind, Msg: msg}
}

// Internal wraps an infrastructure failure. The caller only ever sees "internal error".
func Internal(op string, cause error) error {
	return OpError{Op: op, Kind: ErrInternal, Cause: cause}
}

// KindOf returns the caller-facing kind of the outermost OpError in err.
// Anything unclassified is internal.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var oe OpError
	if !errors.As(err, &oe) {
		return ErrInternal
	}
	if oe.Kind == ErrNotActive {
		return ErrUnauthorized
	}
	for _, k := range Kinds {
		if oe.Kind == k {
			return k
		}
	}
	return ErrInternal
}

// MessageOf returns the caller-safe message carried by err, or "" if none.
// Internal errors never carry one.
func MessageOf(err error) string {
	var oe OpError
	if !errors.As(err, &oe) || errors.Is(oe.Kind, ErrInternal) {
		return ""
	}
	return oe.Msg
}

// IsConflict reports whether err represents ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsNotActive reports whether err represents ErrNotActive.
func IsNotActive(err error) bool { return errors.Is(err, ErrNotActive) }
