package ledger

import (
	"errors"
	"fmt"
)

// Kind identifies a class of ledger failure. Kind names are stable contract
// surface for callers.
type Kind string

const (
	KindDoubleEntryMismatch Kind = "DoubleEntryMismatch"
	KindInvalidAmount       Kind = "InvalidAmount"
	KindInvalidAccount      Kind = "InvalidAccount"
	KindInvalidAccounts     Kind = "InvalidAccounts"
	KindInvalidOwner        Kind = "InvalidOwner"
	KindInvalidClub         Kind = "InvalidClub"
	KindTransactionNotFound Kind = "TransactionNotFound"
	KindInvalidState        Kind = "InvalidState"
	KindInternalError       Kind = "InternalError"
)

// Error is a typed ledger error. All validation failures are raised before
// any write; KindInternalError wraps persistence failures after validation
// passed.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of err if it is (or wraps) a ledger error,
// otherwise KindInternalError.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternalError
}

// IsKind reports whether err is a ledger error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
