package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"airdroptracker/internal/claim"
	"airdroptracker/internal/config"
	"airdroptracker/internal/ledger"
	"airdroptracker/internal/store"

	"github.com/rs/zerolog"
)

// Server exposes the claim workflow over HTTP. Authentication is handled by
// the fronting proxy, which passes the verified user id in X-User-Id.
type Server struct {
	cfg         *config.Config
	orch        *claim.Orchestrator
	reconciler  *claim.Reconciler
	store       store.Store
	ledger      ledger.Client
	httpServer  *http.Server
	metrics     *metricsRegistry
	log         zerolog.Logger
	dbHealthFn  func(context.Context) error
	rpcHealthFn func(context.Context) error
}

func NewServer(cfg *config.Config, orch *claim.Orchestrator, reconciler *claim.Reconciler, st store.Store, led ledger.Client, log zerolog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		orch:       orch,
		reconciler: reconciler,
		store:      st,
		ledger:     led,
		metrics:    newMetricsRegistry(),
		log:        log,
	}

	if checker, ok := st.(interface{ Ping(context.Context) error }); ok {
		s.dbHealthFn = checker.Ping
	}
	if checker, ok := led.(ledger.HealthChecker); ok {
		s.rpcHealthFn = checker.Ping
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/mint", s.handleMint)
	mux.HandleFunc("GET /api/v1/mint", s.handleMintHistory)
	mux.HandleFunc("POST /api/v1/user/wallet", s.handleLinkWallet)
	mux.HandleFunc("GET /api/v1/user", s.handleGetUser)
	mux.HandleFunc("POST /api/v1/projects", s.handleCreateProject)
	mux.HandleFunc("GET /api/v1/projects", s.handleListProjects)
	mux.HandleFunc("GET /api/v1/projects/{id}", s.handleGetProject)
	mux.HandleFunc("PATCH /api/v1/projects/{id}/claimOpen", s.handleClaimOpen)
	mux.HandleFunc("POST /api/v1/projects/{id}/eligibility/refresh", s.handleRefreshEligibility)
	mux.HandleFunc("GET /api/v1/projects/{id}/eligibility", s.handleGetEligibility)
	mux.HandleFunc("POST /api/v1/projects/{id}/reconcile", s.handleReconcile)
	mux.Handle("GET /api/v1/metrics", s.metrics.handler())
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           requestIDMiddleware(mux),
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("API listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// RunSweep is the scheduled entry point for the reconciliation sweep.
func (s *Server) RunSweep(ctx context.Context) {
	reports, err := s.reconciler.SweepAll(ctx)
	if err != nil {
		s.metrics.incSweep("failed")
		s.log.Error().Err(err).Msg("reconciliation sweep failed")
		return
	}
	s.metrics.incSweep("ok")
	for _, rep := range reports {
		s.metrics.addRepairs(rep.Repaired)
	}
}

type mintRequest struct {
	ProjectID string `json:"projectId"`
}

type walletRequest struct {
	WalletAddress string `json:"walletAddress"`
}

type claimOpenRequest struct {
	ClaimOpen bool `json:"claimOpen"`
}

type txResponse struct {
	Success     bool   `json:"success"`
	TxHash      string `json:"txHash,omitempty"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var payload mintRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json payload")
		return
	}
	if strings.TrimSpace(payload.ProjectID) == "" {
		writeError(w, http.StatusBadRequest, "projectId is required")
		return
	}

	result, err := s.orch.Claim(r.Context(), payload.ProjectID, uid)
	if err != nil {
		s.metrics.incClaim(claimStatus(err))
		s.writeClaimError(w, err)
		return
	}

	s.metrics.incClaim("success")
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleMintHistory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	mints, err := s.orch.UserMints(r.Context(), uid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load mint history")
		return
	}
	if mints == nil {
		mints = []store.Mint{}
	}
	writeJSON(w, http.StatusOK, mints)
}

func (s *Server) handleLinkWallet(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var payload walletRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json payload")
		return
	}
	if strings.TrimSpace(payload.WalletAddress) == "" {
		writeError(w, http.StatusBadRequest, "walletAddress is required")
		return
	}

	result, err := s.orch.LinkWallet(r.Context(), uid, payload.WalletAddress)
	if err != nil {
		s.writeClaimError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txResponse{Success: result.Success, TxHash: result.TxHash, BlockNumber: result.BlockNumber})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	user, err := s.store.GetUser(r.Context(), uid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	resp := struct {
		store.User
		Balance *ledger.Balance `json:"balance,omitempty"`
	}{User: *user}

	if user.WalletAddress != "" {
		if bal, err := s.ledger.WalletBalance(r.Context(), user.WalletAddress); err != nil {
			s.log.Warn().Err(err).Str("uid", uid).Msg("wallet balance read failed")
		} else {
			resp.Balance = &bal
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var project store.Project
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json payload")
		return
	}
	if project.ID == "" || project.NFTContractAddress == "" || project.TokenID == "" {
		writeError(w, http.StatusBadRequest, "projectId, nftContractAddress and tokenId are required")
		return
	}

	result, err := s.orch.CreateProject(r.Context(), &project)
	if err != nil {
		s.writeClaimError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Project store.Project `json:"project"`
		Tx      txResponse    `json:"tx"`
	}{project, txResponse{Success: result.Success, TxHash: result.TxHash, BlockNumber: result.BlockNumber}})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	if projects == nil {
		projects = []store.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load project")
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleClaimOpen(w http.ResponseWriter, r *http.Request) {
	var payload claimOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json payload")
		return
	}

	id := r.PathValue("id")
	if err := s.store.SetProjectClaimOpen(r.Context(), id, payload.ClaimOpen); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update project")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projectId": id, "claimOpen": payload.ClaimOpen})
}

func (s *Server) handleRefreshEligibility(w http.ResponseWriter, r *http.Request) {
	result, err := s.orch.RefreshEligibility(r.Context(), r.PathValue("id"))
	if err != nil {
		s.metrics.incRefresh("failed")
		s.writeClaimError(w, err)
		return
	}
	status := "ok"
	if !result.Success {
		status = "rejected"
	}
	s.metrics.incRefresh(status)
	writeJSON(w, http.StatusOK, txResponse{Success: result.Success, TxHash: result.TxHash, BlockNumber: result.BlockNumber})
}

func (s *Server) handleGetEligibility(w http.ResponseWriter, r *http.Request) {
	users, err := s.ledger.GetEligibleUsersForAirdrop(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to read eligibility: "+err.Error())
		return
	}
	if users == nil {
		users = []string{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := s.reconciler.SweepProject(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, claim.ErrProjectNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		s.metrics.incSweep("failed")
		writeError(w, http.StatusInternalServerError, "sweep failed: "+err.Error())
		return
	}
	s.metrics.incSweep("ok")
	s.metrics.addRepairs(report.Repaired)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overallHealthy := true

	rpcInfo := struct {
		Connected bool    `json:"connected"`
		LatencyMs float64 `json:"latency_ms"`
		Error     string  `json:"error,omitempty"`
	}{}

	if s.rpcHealthFn != nil {
		start := time.Now()
		rpcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.rpcHealthFn(rpcCtx); err != nil {
			rpcInfo.Connected = false
			rpcInfo.Error = err.Error()
			overallHealthy = false
		} else {
			rpcInfo.Connected = true
			rpcInfo.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
		}
	} else {
		rpcInfo.Connected = true
	}

	dbInfo := struct {
		Connected bool   `json:"connected"`
		Error     string `json:"error,omitempty"`
	}{Connected: true}

	if s.dbHealthFn != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.dbHealthFn(dbCtx); err != nil {
			dbInfo.Connected = false
			dbInfo.Error = err.Error()
			overallHealthy = false
		}
	}

	status := "healthy"
	code := http.StatusOK
	if !overallHealthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, struct {
		Status   string `json:"status"`
		RPC      any    `json:"rpc"`
		Database any    `json:"database"`
	}{status, rpcInfo, dbInfo})
}

// writeClaimError maps workflow errors onto HTTP statuses. Partial failures
// and protocol mismatches surface as 500s with enough detail to reconcile.
func (s *Server) writeClaimError(w http.ResponseWriter, err error) {
	var (
		rejected *claim.ChainRejectedError
		partial  *claim.PartialFailureError
		mismatch *ledger.ProtocolMismatchError
	)

	switch {
	case errors.Is(err, claim.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, claim.ErrClaimClosed),
		errors.Is(err, claim.ErrClaimLimitReached),
		errors.Is(err, claim.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &rejected):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &partial):
		s.log.Error().Err(err).Str("tx_hash", partial.TxHash).Msg("partial claim failure, sweep required")
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &mismatch):
		s.log.Error().Err(err).Msg("claim state protocol mismatch")
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, ledger.ErrOutcomeUnknown):
		// Submitted but unconfirmed: not safe to retry blindly, the caller
		// must re-check claim state first.
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func claimStatus(err error) string {
	var rejected *claim.ChainRejectedError
	var partial *claim.PartialFailureError
	switch {
	case errors.Is(err, claim.ErrProjectNotFound):
		return "not_found"
	case errors.Is(err, claim.ErrClaimClosed):
		return "closed"
	case errors.Is(err, claim.ErrClaimLimitReached):
		return "limit_reached"
	case errors.Is(err, claim.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.As(err, &rejected):
		return "chain_rejected"
	case errors.As(err, &partial):
		return "partial_failure"
	case errors.Is(err, ledger.ErrOutcomeUnknown):
		return "outcome_unknown"
	}
	return "error"
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-Id header")
		return "", false
	}
	return uid, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestIDMiddleware assigns an id to requests that arrive without one and
// echoes it on the response so callers can correlate logs.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = fmt.Sprintf("%d", time.Now().UnixNano())
			r.Header.Set("X-Request-Id", id)
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}
