package store

import (
	"time"

	"airdroptracker/internal/ledger"
)

// Project is the off-chain record of an airdrop project. The on-chain mirror
// holds the authoritative (contract, token) pair and eligibility set;
// MintCount and LatestClaimAt are derived here from Mint records.
type Project struct {
	ID                 string    `json:"projectId"`
	Title              string    `json:"title"`
	From               string    `json:"from"`
	Description        string    `json:"description"`
	Image              string    `json:"image"`
	NFTContractAddress string    `json:"nftContractAddress"`
	TokenID            string    `json:"tokenId"`
	ClaimOpen          bool      `json:"claimOpen"`
	ClaimLimit         int       `json:"claimLimit,omitempty"` // 0 means unlimited
	MintCount          int       `json:"mintCount"`
	LatestClaimAt      time.Time `json:"latestClaimAt,omitzero"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Mint is the immutable history record of one successful claim. Project
// display fields are copied at claim time so later project edits never
// rewrite history.
type Mint struct {
	ID                 string            `json:"mintId"`
	ProjectID          string            `json:"projectId"`
	UID                string            `json:"uid"`
	From               string            `json:"from"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	Image              string            `json:"image"`
	NFTContractAddress string            `json:"nftContractAddress"`
	TokenID            string            `json:"tokenId"`
	Timestamp          time.Time         `json:"timestamp"`
	BaseClaimState     ledger.ClaimState `json:"baseClaimState"`
	RecordClaimTxHash  string            `json:"recordClaimTxHash"`
	Repaired           bool              `json:"repaired,omitempty"` // created by the reconciliation sweep
}

// User holds the primary wallet used for on-chain identity correlation.
// Written by the account-linking flow; the claim workflow only reads it.
type User struct {
	UID           string    `json:"uid"`
	WalletAddress string    `json:"walletAddress"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// SnapshotMint builds a Mint from the project's current display fields.
func SnapshotMint(p *Project, uid string, at time.Time, state ledger.ClaimState, txHash string) Mint {
	return Mint{
		ProjectID:          p.ID,
		UID:                uid,
		From:               p.From,
		Title:              p.Title,
		Description:        p.Description,
		Image:              p.Image,
		NFTContractAddress: p.NFTContractAddress,
		TokenID:            p.TokenID,
		Timestamp:          at,
		BaseClaimState:     state,
		RecordClaimTxHash:  txHash,
	}
}
