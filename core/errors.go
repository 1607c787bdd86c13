package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so handlers can map it to an HTTP status
// without string matching.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound            // requested meeting or artifact does not exist
	KindValidation          // caller input rejected before any work
	KindProvider            // upstream model API call failed
	KindCorrupt             // persisted artifact is unreadable or inconsistent
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindProvider:
		return "provider"
	case KindCorrupt:
		return "corrupt"
	default:
		return "internal"
	}
}

// Error tags a wrapped cause with a kind. Op names the failing operation,
// e.g. "index.build".
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and operation name.
func E(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Ef is E with fmt.Errorf formatting for the cause.
func Ef(kind ErrorKind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the kind tagged anywhere in err's chain, KindInternal if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsProvider(err error) bool   { return KindOf(err) == KindProvider }
func IsCorrupt(err error) bool    { return KindOf(err) == KindCorrupt }
