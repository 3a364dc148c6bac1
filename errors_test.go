package apothecary_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/apothecary"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := apothecary.Errorf(apothecary.KindInsufficientStock, "RED_POTION: have 2, want 3")
	wrapped := fmt.Errorf("checkout: %w", err)

	if !errors.Is(wrapped, apothecary.ErrInsufficientStock) {
		t.Error("specialized error should match its sentinel")
	}
	if errors.Is(wrapped, apothecary.ErrCartNotFound) {
		t.Error("different kinds must not match")
	}
	if apothecary.KindOf(wrapped) != apothecary.KindInsufficientStock {
		t.Errorf("KindOf: got %q", apothecary.KindOf(wrapped))
	}
}

func TestStorageError(t *testing.T) {
	cause := errors.New("connection reset")
	err := apothecary.StorageError("append gold entries", cause)

	if !errors.Is(err, apothecary.ErrStorageFailure) {
		t.Error("expected storage failure kind")
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be unwrappable")
	}
	if !apothecary.IsRetryable(err) {
		t.Error("storage failures are retryable")
	}

	kinded := apothecary.ErrCartNotFound
	if got := apothecary.StorageError("get cart", kinded); got != error(kinded) {
		t.Errorf("kinded errors pass through unchanged, got %v", got)
	}
	if apothecary.StorageError("noop", nil) != nil {
		t.Error("nil stays nil")
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		err       error
		notFound  bool
		retryable bool
	}{
		{apothecary.ErrCartNotFound, true, false},
		{apothecary.ErrItemNotFound, true, false},
		{apothecary.ErrTransactionNotFound, true, false},
		{apothecary.ErrCartAlreadySettled, false, false},
		{apothecary.ErrStorageFailure, false, true},
		{errors.New("foreign"), false, false},
	}

	for _, tt := range tests {
		if got := apothecary.IsNotFound(tt.err); got != tt.notFound {
			t.Errorf("IsNotFound(%v) = %v", tt.err, got)
		}
		if got := apothecary.IsRetryable(tt.err); got != tt.retryable {
			t.Errorf("IsRetryable(%v) = %v", tt.err, got)
		}
	}
	if apothecary.KindOf(errors.New("foreign")) != "" {
		t.Error("foreign errors have no kind")
	}
}

func TestErrorMessage(t *testing.T) {
	if got := apothecary.ErrCartNotFound.Error(); got != "apothecary: cart not found" {
		t.Errorf("got %q", got)
	}
	err := &apothecary.Error{Kind: apothecary.KindStorageFailure, Message: "ping", Err: errors.New("refused")}
	if got := err.Error(); got != "apothecary: ping: refused" {
		t.Errorf("got %q", got)
	}
}
