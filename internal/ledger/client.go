package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
)

// Client abstracts the on-chain airdrop tracker contract.
//
// Every mutating call goes through the same submit/wait/interpret protocol
// and returns a TxResult. A TxResult with Success=false means the transaction
// was mined but reverted: that is a normal business outcome, not an error.
// An error return means the transaction was never accepted (network, signing,
// gas) and on-chain state did not change.
type Client interface {
	DoesProjectExist(ctx context.Context, projectID string) (bool, error)
	GetClaimState(ctx context.Context, projectID, userID string) (ClaimState, error)
	GetEligibleUsersForAirdrop(ctx context.Context, projectID string) ([]string, error)
	CheckProjectAuthorization(ctx context.Context, projectID, address string) (bool, error)
	GetNFTInfo(ctx context.Context, projectID string) (NFTInfo, error)
	WalletBalance(ctx context.Context, address string) (Balance, error)

	CreateProject(ctx context.Context, projectID, nftContractAddress, tokenID string) (TxResult, error)
	RecordClaim(ctx context.Context, projectID, userID string) (TxResult, error)
	RecordWalletAddress(ctx context.Context, userID, walletAddress string) (TxResult, error)
	UpdateEligibleUsersForAirdrop(ctx context.Context, projectID string) (TxResult, error)
}

// HealthChecker is implemented by clients backed by a live RPC connection.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// TxResult reports the outcome of a mined transaction. The hash is always
// set so callers can reconcile later even when Success is false.
type TxResult struct {
	Success     bool
	TxHash      string
	BlockNumber uint64
}

// NFTInfo is the (contract, token) pair a project mirrors on-chain.
type NFTInfo struct {
	ContractAddress string
	TokenID         string
}

// Balance is a wallet balance in both wei and ether denominations.
type Balance struct {
	Address string
	Wei     *big.Int
	Eth     string
}

// ErrOutcomeUnknown marks a transaction that was accepted for submission but
// whose confirmation wait failed: deadline expired, caller context canceled,
// or the receipt poll errored. The transaction may still mine.
var ErrOutcomeUnknown = errors.New("transaction outcome unknown")

// OutcomeUnknownError carries the hash of a submitted transaction whose
// outcome is unknown. Callers must resume by polling chain state for the
// hash, never resubmit; this is not a submission failure and is not safe
// to retry blindly.
type OutcomeUnknownError struct {
	TxHash string
	Cause  error
}

func (e *OutcomeUnknownError) Error() string {
	return fmt.Sprintf("transaction %s outcome unknown: %v", e.TxHash, e.Cause)
}

func (e *OutcomeUnknownError) Unwrap() []error { return []error{ErrOutcomeUnknown, e.Cause} }
