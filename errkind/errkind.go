// Package errkind is the tagged-union error model used across the node:
// ledger, transaction and network failures are all reported as a Kind plus
// a human reason, rather than ad hoc sentinel errors per package. Not
// grounded on the teacher (which panics via blockchain.Handle on almost
// every failure path); this shape follows the typed-error-kind convention
// spec.md §7 calls for.
package errkind

import (
	"errors"
	"fmt"
)

// Kind classifies the failure so callers can branch on it without string
// matching.
type Kind int

const (
	InvalidAddress Kind = iota
	InvalidTransaction
	InsufficientFunds
	InvalidBlock
	StoreError
	NetworkError
	Crypto
	Config
)

func (k Kind) String() string {
	switch k {
	case InvalidAddress:
		return "InvalidAddress"
	case InvalidTransaction:
		return "InvalidTransaction"
	case InsufficientFunds:
		return "InsufficientFunds"
	case InvalidBlock:
		return "InvalidBlock"
	case StoreError:
		return "StoreError"
	case NetworkError:
		return "NetworkError"
	case Crypto:
		return "Crypto"
	case Config:
		return "Config"
	default:
		return "Unknown"
	}
}

// Error is the concrete tagged-union value: a Kind, a free-form reason, and
// (for InsufficientFunds) the two operands the caller needs to report a
// useful message.
type Error struct {
	Kind   Kind
	Reason string
	Have   int64 // only meaningful for InsufficientFunds
	Need   int64 // only meaningful for InsufficientFunds
	Err    error // wrapped lower-level cause, if any
}

func (e *Error) Error() string {
	if e.Kind == InsufficientFunds {
		return fmt.Sprintf("%s: have %d, need %d", e.Kind, e.Have, e.Need)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind with a formatted reason.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a lower-level cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: err}
}

// InsufficientFundsError builds the one kind that carries structured
// operands instead of (only) a free-form reason.
func InsufficientFundsError(have, need int64) *Error {
	return &Error{Kind: InsufficientFunds, Have: have, Need: need}
}

// Is reports whether err, or the first *Error found by unwrapping its
// chain with errors.As, is of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
