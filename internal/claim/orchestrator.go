// Package claim holds the claim-reconciliation workflow: the orchestration
// that keeps the on-chain ledger (authoritative for entitlement) and the
// off-chain record store (authoritative for history) consistent without a
// cross-store transaction.
package claim

import (
	"context"
	"fmt"
	"time"

	"airdroptracker/internal/ledger"
	"airdroptracker/internal/store"

	"github.com/rs/zerolog"
)

// Orchestrator drives the claim workflow. It holds no locks: the ledger's
// read-then-write of claim state is the only double-claim gate. The chain
// serializes transactions, so of two racing claims at most one mines
// successfully.
type Orchestrator struct {
	store  store.Store
	ledger ledger.Client
	log    zerolog.Logger
	now    func() time.Time
}

func NewOrchestrator(s store.Store, l ledger.Client, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:  s,
		ledger: l,
		log:    log,
		now:    time.Now,
	}
}

// ClaimResult is returned after a fully recorded claim.
type ClaimResult struct {
	MintID    string     `json:"mintId"`
	MintCount int        `json:"mintCount"`
	Mint      store.Mint `json:"mint"`
}

// Claim lets user uid claim the project's NFT at most once.
//
// Order matters: every off-chain write happens strictly after the on-chain
// confirmation. Any failure before the ledger write leaves both sides
// untouched; a failure after it returns PartialFailureError for the sweep
// to repair.
func (o *Orchestrator) Claim(ctx context.Context, projectID, uid string) (*ClaimResult, error) {
	project, err := o.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}

	if !project.ClaimOpen {
		return nil, ErrClaimClosed
	}

	if project.ClaimLimit > 0 && project.MintCount >= project.ClaimLimit {
		return nil, ErrClaimLimitReached
	}

	// The chain is authoritative for "has this user already claimed". A
	// previously failed off-chain write must not allow a second mint here.
	state, err := o.ledger.GetClaimState(ctx, projectID, uid)
	if err != nil {
		return nil, fmt.Errorf("claim state for %s/%s: %w", projectID, uid, err)
	}
	if state != ledger.NotClaimed {
		return nil, ErrAlreadyClaimed
	}

	result, err := o.ledger.RecordClaim(ctx, projectID, uid)
	if err != nil {
		return nil, fmt.Errorf("record claim on chain: %w", err)
	}
	if !result.Success {
		o.log.Warn().Str("project_id", projectID).Str("uid", uid).Str("tx_hash", result.TxHash).
			Msg("claim transaction rejected on chain")
		return nil, &ChainRejectedError{TxHash: result.TxHash}
	}

	now := o.now()
	if err := o.store.SetProjectLatestClaimAt(ctx, projectID, now); err != nil {
		return nil, &PartialFailureError{TxHash: result.TxHash, Err: err}
	}

	mint := store.SnapshotMint(project, uid, now, ledger.Claimed, result.TxHash)
	mintID, err := o.store.CreateMint(ctx, mint)
	if err != nil {
		return nil, &PartialFailureError{TxHash: result.TxHash, Err: err}
	}
	mint.ID = mintID

	// Recount from stored mints rather than incrementing in memory so
	// concurrent claims across processes converge on the true count.
	count, err := o.store.GetProjectMintCount(ctx, projectID)
	if err != nil {
		return nil, &PartialFailureError{TxHash: result.TxHash, Err: err}
	}
	if err := o.store.SetProjectMintCount(ctx, projectID, count); err != nil {
		return nil, &PartialFailureError{TxHash: result.TxHash, Err: err}
	}

	o.log.Info().Str("project_id", projectID).Str("uid", uid).Str("mint_id", mintID).
		Int("mint_count", count).Str("tx_hash", result.TxHash).Msg("claim recorded")

	return &ClaimResult{MintID: mintID, MintCount: count, Mint: mint}, nil
}

// UserMints returns the user's claim history.
func (o *Orchestrator) UserMints(ctx context.Context, uid string) ([]store.Mint, error) {
	return o.store.GetUserMints(ctx, uid)
}

// RefreshEligibility triggers the on-chain eligibility recomputation for a
// project. The adapter logs authorization and NFT metadata before the write;
// the record store is untouched, the orchestrator's read path reconciles.
func (o *Orchestrator) RefreshEligibility(ctx context.Context, projectID string) (ledger.TxResult, error) {
	return o.ledger.UpdateEligibleUsersForAirdrop(ctx, projectID)
}

// CreateProject mirrors a new project on-chain and persists the off-chain
// record. The on-chain write comes first so a store failure leaves a
// recoverable (chain-only) project rather than an unmirrored one.
func (o *Orchestrator) CreateProject(ctx context.Context, project *store.Project) (ledger.TxResult, error) {
	exists, err := o.ledger.DoesProjectExist(ctx, project.ID)
	if err != nil {
		return ledger.TxResult{}, fmt.Errorf("check project on chain: %w", err)
	}

	result := ledger.TxResult{Success: true}
	if !exists {
		result, err = o.ledger.CreateProject(ctx, project.ID, project.NFTContractAddress, project.TokenID)
		if err != nil {
			return ledger.TxResult{}, fmt.Errorf("create project on chain: %w", err)
		}
		if !result.Success {
			return result, &ChainRejectedError{TxHash: result.TxHash}
		}
	}

	if err := o.store.SaveProject(ctx, project); err != nil {
		return result, &PartialFailureError{TxHash: result.TxHash, Err: err}
	}
	return result, nil
}

// LinkWallet records the user's wallet on-chain and saves the off-chain
// user record, same write ordering as Claim.
func (o *Orchestrator) LinkWallet(ctx context.Context, uid, walletAddress string) (ledger.TxResult, error) {
	result, err := o.ledger.RecordWalletAddress(ctx, uid, walletAddress)
	if err != nil {
		return ledger.TxResult{}, fmt.Errorf("record wallet on chain: %w", err)
	}
	if !result.Success {
		return result, &ChainRejectedError{TxHash: result.TxHash}
	}

	user := &store.User{UID: uid, WalletAddress: walletAddress, UpdatedAt: o.now()}
	if err := o.store.SaveUser(ctx, user); err != nil {
		return result, &PartialFailureError{TxHash: result.TxHash, Err: err}
	}
	return result, nil
}
