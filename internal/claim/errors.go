package claim

import (
	"errors"
	"fmt"
)

// Validation failures and ChainRejectedError leave on-chain state untouched
// and are safe to retry immediately. PartialFailureError means the chain is
// ahead of the record store and only the reconciliation sweep may repair it.
var (
	ErrProjectNotFound   = errors.New("project not found")
	ErrClaimClosed       = errors.New("claiming is not open for this project")
	ErrClaimLimitReached = errors.New("claim limit reached for this project")
	ErrAlreadyClaimed    = errors.New("user has already claimed this NFT")
)

// ChainRejectedError means the claim transaction mined but reverted.
// On-chain state did not advance, so the caller may retry from the claim
// state check.
type ChainRejectedError struct {
	TxHash string
}

func (e *ChainRejectedError) Error() string {
	return fmt.Sprintf("claim transaction %s was rejected on chain", e.TxHash)
}

// PartialFailureError means the chain confirmed the claim but an off-chain
// write failed afterwards. Never retried automatically: the chain already
// shows Claimed, so a retry would hit ErrAlreadyClaimed without repairing
// the missing record.
type PartialFailureError struct {
	TxHash string
	Err    error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("claim confirmed on chain (tx %s) but off-chain record failed: %v", e.TxHash, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
