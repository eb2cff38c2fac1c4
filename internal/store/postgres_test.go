package store

import (
	"context"
	"os"
	"testing"
	"time"

	"airdroptracker/internal/ledger"
)

func TestPostgresStoreLifecycle(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	prj := &Project{
		ID:                 "test-project",
		Title:              "Test Drop",
		From:               "test",
		NFTContractAddress: "0x0000000000000000000000000000000000000001",
		TokenID:            "1",
		ClaimOpen:          true,
		ClaimLimit:         5,
	}
	if err := s.SaveProject(ctx, prj); err != nil {
		t.Fatalf("save project: %v", err)
	}

	got, err := s.GetProject(ctx, prj.ID)
	if err != nil || got == nil {
		t.Fatalf("get project: %v %v", got, err)
	}
	if got.Title != prj.Title || got.ClaimLimit != 5 {
		t.Fatalf("unexpected project: %+v", got)
	}

	id, err := s.CreateMint(ctx, Mint{
		ProjectID:         prj.ID,
		UID:               "test-user",
		Title:             prj.Title,
		Timestamp:         time.Now().UTC(),
		BaseClaimState:    ledger.Claimed,
		RecordClaimTxHash: "0xhash",
	})
	if err != nil || id == "" {
		t.Fatalf("create mint: %v id=%q", err, id)
	}

	count, err := s.GetProjectMintCount(ctx, prj.ID)
	if err != nil || count < 1 {
		t.Fatalf("mint count: %d %v", count, err)
	}

	mints, err := s.GetUserMints(ctx, "test-user")
	if err != nil || len(mints) == 0 {
		t.Fatalf("user mints: %v %v", mints, err)
	}
	if mints[0].BaseClaimState != ledger.Claimed {
		t.Fatalf("unexpected claim state: %v", mints[0].BaseClaimState)
	}
}
