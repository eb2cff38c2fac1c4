package ledger

import (
	"errors"
	"testing"
)

func TestDecodeClaimState(t *testing.T) {
	cases := []struct {
		raw  uint64
		want ClaimState
	}{
		{0, NotClaimed},
		{1, Claimed},
		{2, Airdropped},
	}
	for _, tc := range cases {
		got, err := DecodeClaimState(tc.raw)
		if err != nil {
			t.Fatalf("decode %d: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("decode %d: got %v want %v", tc.raw, got, tc.want)
		}
	}
}

func TestDecodeClaimStateOutOfRange(t *testing.T) {
	for _, raw := range []uint64{3, 7, 255} {
		_, err := DecodeClaimState(raw)
		if err == nil {
			t.Fatalf("expected protocol mismatch for %d", raw)
		}
		var mismatch *ProtocolMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("expected ProtocolMismatchError, got %T", err)
		}
		if mismatch.Value != raw {
			t.Fatalf("expected value %d in error, got %d", raw, mismatch.Value)
		}
	}
}
