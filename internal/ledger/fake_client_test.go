package ledger

import (
	"context"
	"testing"
)

func TestFakeClientClaimTransitions(t *testing.T) {
	ctx := context.Background()
	fake := NewFakeClient()

	state, err := fake.GetClaimState(ctx, "p1", "u1")
	if err != nil {
		t.Fatalf("claim state: %v", err)
	}
	if state != NotClaimed {
		t.Fatalf("expected NotClaimed, got %v", state)
	}

	first, err := fake.RecordClaim(ctx, "p1", "u1")
	if err != nil {
		t.Fatalf("record claim: %v", err)
	}
	if !first.Success || first.TxHash == "" {
		t.Fatalf("expected successful claim with hash, got %+v", first)
	}

	state, _ = fake.GetClaimState(ctx, "p1", "u1")
	if state != Claimed {
		t.Fatalf("expected Claimed, got %v", state)
	}

	// Second claim mines but reverts; the hash is still reported.
	second, err := fake.RecordClaim(ctx, "p1", "u1")
	if err != nil {
		t.Fatalf("second record claim: %v", err)
	}
	if second.Success {
		t.Fatalf("expected revert on double claim")
	}
	if second.TxHash == "" {
		t.Fatalf("expected tx hash on reverted claim")
	}
}

func TestFakeClientProjects(t *testing.T) {
	ctx := context.Background()
	fake := NewFakeClient()

	exists, _ := fake.DoesProjectExist(ctx, "p1")
	if exists {
		t.Fatalf("expected project to be absent")
	}

	res, err := fake.CreateProject(ctx, "p1", "0xabc", "7")
	if err != nil || !res.Success {
		t.Fatalf("create project: %v %+v", err, res)
	}

	exists, _ = fake.DoesProjectExist(ctx, "p1")
	if !exists {
		t.Fatalf("expected project to exist")
	}

	info, err := fake.GetNFTInfo(ctx, "p1")
	if err != nil {
		t.Fatalf("nft info: %v", err)
	}
	if info.ContractAddress != "0xabc" || info.TokenID != "7" {
		t.Fatalf("unexpected nft info: %+v", info)
	}

	dup, err := fake.CreateProject(ctx, "p1", "0xabc", "7")
	if err != nil {
		t.Fatalf("duplicate create: %v", err)
	}
	if dup.Success {
		t.Fatalf("expected duplicate create to revert")
	}
}
