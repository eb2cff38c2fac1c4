package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestOutcomeUnknownErrorUnwrap(t *testing.T) {
	cause := context.Canceled
	err := error(&OutcomeUnknownError{TxHash: "0xpending", Cause: cause})

	if !errors.Is(err, ErrOutcomeUnknown) {
		t.Fatalf("expected ErrOutcomeUnknown in chain")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cause in chain")
	}

	// Wrapping must preserve both the marker and the hash.
	wrapped := fmt.Errorf("record claim on chain: %w", err)
	if !errors.Is(wrapped, ErrOutcomeUnknown) {
		t.Fatalf("expected ErrOutcomeUnknown through wrap")
	}
	var unknown *OutcomeUnknownError
	if !errors.As(wrapped, &unknown) {
		t.Fatalf("expected OutcomeUnknownError through wrap, got %T", wrapped)
	}
	if unknown.TxHash != "0xpending" {
		t.Fatalf("expected tx hash to survive wrapping, got %q", unknown.TxHash)
	}
}

func TestOutcomeUnknownErrorCauses(t *testing.T) {
	// Deadline, cancel and poll errors all mark the same unknown outcome.
	for _, cause := range []error{context.DeadlineExceeded, context.Canceled, errors.New("rpc: connection reset")} {
		err := error(&OutcomeUnknownError{TxHash: "0xabc", Cause: cause})
		if !errors.Is(err, ErrOutcomeUnknown) {
			t.Fatalf("cause %v: expected ErrOutcomeUnknown", cause)
		}
		if !errors.Is(err, cause) {
			t.Fatalf("cause %v: expected cause preserved", cause)
		}
	}
}
