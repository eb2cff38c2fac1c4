package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
)

// FakeClient emulates the tracker contract in memory. Used by tests and by
// keyless local runs. Transaction hashes are deterministic digests of the
// call payload so idempotent retries are observable.
type FakeClient struct {
	mu       sync.Mutex
	projects map[string]NFTInfo
	states   map[string]ClaimState
	eligible map[string][]string
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		projects: make(map[string]NFTInfo),
		states:   make(map[string]ClaimState),
		eligible: make(map[string][]string),
	}
}

func stateKey(projectID, userID string) string {
	return projectID + "/" + userID
}

func fakeHash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// SetClaimState seeds a claim state directly, bypassing the transition rules.
func (f *FakeClient) SetClaimState(projectID, userID string, state ClaimState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[stateKey(projectID, userID)] = state
}

// SetEligibleUsers seeds the eligibility set for a project.
func (f *FakeClient) SetEligibleUsers(projectID string, users []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eligible[projectID] = append([]string(nil), users...)
}

func (f *FakeClient) DoesProjectExist(_ context.Context, projectID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.projects[projectID]
	return ok, nil
}

func (f *FakeClient) GetClaimState(_ context.Context, projectID, userID string) (ClaimState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[stateKey(projectID, userID)], nil
}

func (f *FakeClient) GetEligibleUsersForAirdrop(_ context.Context, projectID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.eligible[projectID]...), nil
}

func (f *FakeClient) CheckProjectAuthorization(_ context.Context, projectID, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.projects[projectID]
	return ok, nil
}

func (f *FakeClient) GetNFTInfo(_ context.Context, projectID string) (NFTInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.projects[projectID]
	if !ok {
		return NFTInfo{}, fmt.Errorf("project %s not recorded on chain", projectID)
	}
	return info, nil
}

func (f *FakeClient) WalletBalance(_ context.Context, address string) (Balance, error) {
	if address == "" {
		return Balance{}, fmt.Errorf("missing wallet address")
	}
	return Balance{Address: address, Wei: big.NewInt(0), Eth: "0.0"}, nil
}

func (f *FakeClient) CreateProject(_ context.Context, projectID, nftContractAddress, tokenID string) (TxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hash := fakeHash("createProject", projectID, nftContractAddress, tokenID)
	if _, exists := f.projects[projectID]; exists {
		return TxResult{Success: false, TxHash: hash}, nil
	}
	f.projects[projectID] = NFTInfo{ContractAddress: nftContractAddress, TokenID: tokenID}
	return TxResult{Success: true, TxHash: hash, BlockNumber: uint64(len(f.projects))}, nil
}

// RecordClaim mirrors the contract's revert-on-repeat behavior: a second
// claim for the same (project, user) mines but fails.
func (f *FakeClient) RecordClaim(_ context.Context, projectID, userID string) (TxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hash := fakeHash("recordClaim", projectID, userID)
	key := stateKey(projectID, userID)
	if f.states[key] != NotClaimed {
		return TxResult{Success: false, TxHash: hash}, nil
	}
	f.states[key] = Claimed
	return TxResult{Success: true, TxHash: hash, BlockNumber: 1}, nil
}

func (f *FakeClient) RecordWalletAddress(_ context.Context, userID, walletAddress string) (TxResult, error) {
	if walletAddress == "" {
		return TxResult{}, fmt.Errorf("missing wallet address")
	}
	return TxResult{Success: true, TxHash: fakeHash("recordWalletAddress", userID, walletAddress), BlockNumber: 1}, nil
}

func (f *FakeClient) UpdateEligibleUsersForAirdrop(_ context.Context, projectID string) (TxResult, error) {
	return TxResult{Success: true, TxHash: fakeHash("updateEligibleUsersForAirdrop", projectID), BlockNumber: 1}, nil
}
