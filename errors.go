package apothecary

import (
	"errors"
	"fmt"
)

// Kind classifies an error. Callers branch on kinds, never on messages.
type Kind string

// Error kinds.
const (
	KindCartNotFound        Kind = "cart_not_found"
	KindItemNotFound        Kind = "item_not_found"
	KindCartAlreadySettled  Kind = "cart_already_settled"
	KindInvalidQuantity     Kind = "invalid_quantity"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindStorageFailure      Kind = "storage_failure"
	KindInvalidInput        Kind = "invalid_input"
	KindTransactionNotFound Kind = "transaction_not_found"
)

// Error is the discriminated error returned by every shop operation.
// Two errors are equal under errors.Is when their kinds match, so a
// message-specialized error still matches its sentinel.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("apothecary: %s: %v", msg, e.Err)
	}
	return "apothecary: " + msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinel errors, one per kind.
var (
	ErrCartNotFound        = &Error{Kind: KindCartNotFound, Message: "cart not found"}
	ErrItemNotFound        = &Error{Kind: KindItemNotFound, Message: "item not found"}
	ErrCartAlreadySettled  = &Error{Kind: KindCartAlreadySettled, Message: "cart already settled"}
	ErrInvalidQuantity     = &Error{Kind: KindInvalidQuantity, Message: "invalid quantity"}
	ErrInsufficientStock   = &Error{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrStorageFailure      = &Error{Kind: KindStorageFailure, Message: "storage failure"}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrTransactionNotFound = &Error{Kind: KindTransactionNotFound, Message: "transaction not found"}
)

// Errorf builds an error of kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// StorageError wraps a backend failure. Errors that already carry a kind
// are returned unchanged.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindStorageFailure, Message: op, Err: err}
}

// KindOf returns the kind carried by err, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotFound returns true for missing carts, items and transactions.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCartNotFound) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsRetryable returns true if the caller may try the whole operation
// again. Only storage failures qualify; the shop itself never retries.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageFailure)
}
