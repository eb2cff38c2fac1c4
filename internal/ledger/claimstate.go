package ledger

import "fmt"

// ClaimState is the per-user-per-project claim enumeration tracked on-chain.
// Transitions are forward-only: NotClaimed -> Claimed -> Airdropped.
type ClaimState uint8

const (
	NotClaimed ClaimState = 0
	Claimed    ClaimState = 1
	Airdropped ClaimState = 2
)

func (s ClaimState) String() string {
	switch s {
	case NotClaimed:
		return "not_claimed"
	case Claimed:
		return "claimed"
	case Airdropped:
		return "airdropped"
	}
	return fmt.Sprintf("claim_state(%d)", uint8(s))
}

// ProtocolMismatchError means the chain returned a claim-state value outside
// the known enumeration. The client and contract disagree; the operation
// must halt rather than guess.
type ProtocolMismatchError struct {
	Value uint64
}

func (e *ProtocolMismatchError) Error() string {
	return fmt.Sprintf("on-chain claim state %d is outside the known enumeration", e.Value)
}

// DecodeClaimState maps the raw on-chain value into the enumeration.
func DecodeClaimState(v uint64) (ClaimState, error) {
	switch v {
	case 0:
		return NotClaimed, nil
	case 1:
		return Claimed, nil
	case 2:
		return Airdropped, nil
	}
	return 0, &ProtocolMismatchError{Value: v}
}
