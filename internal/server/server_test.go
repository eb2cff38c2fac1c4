package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"airdroptracker/internal/claim"
	"airdroptracker/internal/config"
	"airdroptracker/internal/ledger"
	"airdroptracker/internal/store"

	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T) (*Server, *store.MemoryStore, *ledger.FakeClient) {
	t.Helper()
	cfg := &config.Config{HTTPPort: 0, FakeLedger: true}
	st := store.NewMemoryStore()
	led := ledger.NewFakeClient()
	log := zerolog.Nop()
	orch := claim.NewOrchestrator(st, led, log)
	rec := claim.NewReconciler(st, led, log)
	return NewServer(cfg, orch, rec, st, led, log), st, led
}

func doRequest(s *Server, method, path, uid string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if uid != "" {
		req.Header.Set("X-User-Id", uid)
	}
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func seedProject(t *testing.T, st *store.MemoryStore, id string, open bool, limit int) {
	t.Helper()
	err := st.SaveProject(context.Background(), &store.Project{
		ID:                 id,
		Title:              "Genesis Drop",
		From:               "studio",
		NFTContractAddress: "0x0000000000000000000000000000000000000001",
		TokenID:            "7",
		ClaimOpen:          open,
		ClaimLimit:         limit,
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
}

func TestMintEndToEnd(t *testing.T) {
	s, st, _ := newTestServer(t)
	seedProject(t, st, "p1", true, 2)

	// u1 claims once.
	rec := doRequest(s, http.MethodPost, "/api/v1/mint", "u1", map[string]string{"projectId": "p1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var result claim.ClaimResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.MintCount != 1 || result.Mint.BaseClaimState != ledger.Claimed {
		t.Fatalf("unexpected result: %+v", result)
	}

	// u1 again: conflict, count unchanged.
	rec = doRequest(s, http.MethodPost, "/api/v1/mint", "u1", map[string]string{"projectId": "p1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double claim, got %d", rec.Code)
	}
	if count, _ := st.GetProjectMintCount(context.Background(), "p1"); count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	// u2 fills the limit, u3 is refused.
	rec = doRequest(s, http.MethodPost, "/api/v1/mint", "u2", map[string]string{"projectId": "p1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("u2 expected 201, got %d", rec.Code)
	}
	rec = doRequest(s, http.MethodPost, "/api/v1/mint", "u3", map[string]string{"projectId": "p1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("u3 expected 409 (limit reached), got %d", rec.Code)
	}
}

// pendingLedger simulates a claim transaction whose confirmation wait
// failed after submission.
type pendingLedger struct {
	*ledger.FakeClient
}

func (p *pendingLedger) RecordClaim(context.Context, string, string) (ledger.TxResult, error) {
	return ledger.TxResult{}, &ledger.OutcomeUnknownError{TxHash: "0xpending", Cause: context.DeadlineExceeded}
}

func TestMintUnknownOutcomeMapsToGatewayTimeout(t *testing.T) {
	cfg := &config.Config{HTTPPort: 0, FakeLedger: true}
	st := store.NewMemoryStore()
	led := &pendingLedger{FakeClient: ledger.NewFakeClient()}
	log := zerolog.Nop()
	orch := claim.NewOrchestrator(st, led, log)
	s := NewServer(cfg, orch, claim.NewReconciler(st, led, log), st, led, log)
	seedProject(t, st, "p1", true, 0)

	rec := doRequest(s, http.MethodPost, "/api/v1/mint", "u1", map[string]string{"projectId": "p1"})
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504 for unknown outcome, got %d: %s", rec.Code, rec.Body.String())
	}
	if count, _ := st.GetProjectMintCount(context.Background(), "p1"); count != 0 {
		t.Fatalf("expected no mints, got %d", count)
	}
}

func TestRequestIDEchoedOnResponse(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id on response")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec2 := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec2, req)
	if got := rec2.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}

func TestMintRequiresUser(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/v1/mint", "", map[string]string{"projectId": "p1"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMintUnknownProject(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/v1/mint", "u1", map[string]string{"projectId": "ghost"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMintClosedProject(t *testing.T) {
	s, st, _ := newTestServer(t)
	seedProject(t, st, "p1", false, 0)

	rec := doRequest(s, http.MethodPost, "/api/v1/mint", "u1", map[string]string{"projectId": "p1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestMintHistory(t *testing.T) {
	s, st, _ := newTestServer(t)
	seedProject(t, st, "p1", true, 0)

	if rec := doRequest(s, http.MethodPost, "/api/v1/mint", "u1", map[string]string{"projectId": "p1"}); rec.Code != http.StatusCreated {
		t.Fatalf("claim: %d", rec.Code)
	}

	rec := doRequest(s, http.MethodGet, "/api/v1/mint", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var mints []store.Mint
	if err := json.Unmarshal(rec.Body.Bytes(), &mints); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(mints) != 1 || mints[0].ProjectID != "p1" {
		t.Fatalf("unexpected history: %+v", mints)
	}
}

func TestClaimOpenPatch(t *testing.T) {
	s, st, _ := newTestServer(t)
	seedProject(t, st, "p1", false, 0)

	rec := doRequest(s, http.MethodPatch, "/api/v1/projects/p1/claimOpen", "", map[string]bool{"claimOpen": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	prj, _ := st.GetProject(context.Background(), "p1")
	if !prj.ClaimOpen {
		t.Fatalf("expected claimOpen=true")
	}

	rec = doRequest(s, http.MethodPatch, "/api/v1/projects/ghost/claimOpen", "", map[string]bool{"claimOpen": true})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown project, got %d", rec.Code)
	}
}

func TestCreateProjectEndpoint(t *testing.T) {
	s, st, led := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/projects", "", map[string]any{
		"projectId":          "p1",
		"title":              "Genesis Drop",
		"nftContractAddress": "0x0000000000000000000000000000000000000001",
		"tokenId":            "7",
		"claimOpen":          true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	exists, _ := led.DoesProjectExist(context.Background(), "p1")
	if !exists {
		t.Fatalf("expected on-chain mirror")
	}
	prj, _ := st.GetProject(context.Background(), "p1")
	if prj == nil || prj.Title != "Genesis Drop" {
		t.Fatalf("unexpected stored project: %+v", prj)
	}
}

func TestReconcileEndpoint(t *testing.T) {
	s, st, led := newTestServer(t)
	seedProject(t, st, "p1", true, 0)

	led.SetClaimState("p1", "u2", ledger.Claimed)
	led.SetEligibleUsers("p1", []string{"u2"})

	rec := doRequest(s, http.MethodPost, "/api/v1/projects/p1/reconcile", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report claim.SweepReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Repaired != 1 {
		t.Fatalf("expected 1 repair, got %+v", report)
	}

	mints, _ := st.GetUserMints(context.Background(), "u2")
	if len(mints) != 1 || !mints[0].Repaired {
		t.Fatalf("expected repaired mint: %+v", mints)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" {
		t.Fatalf("expected healthy, got %q", body.Status)
	}
}

func TestLinkWalletEndpoint(t *testing.T) {
	s, st, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/v1/user/wallet", "u1",
		map[string]string{"walletAddress": "0x0000000000000000000000000000000000000002"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	u, _ := st.GetUser(context.Background(), "u1")
	if u == nil || u.WalletAddress == "" {
		t.Fatalf("expected linked wallet, got %+v", u)
	}

	rec = doRequest(s, http.MethodGet, "/api/v1/user", "u1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
