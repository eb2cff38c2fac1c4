package claim

import (
	"context"
	"fmt"
	"time"

	"airdroptracker/internal/ledger"
	"airdroptracker/internal/store"

	"github.com/rs/zerolog"
)

// Reconciler detects and repairs the one unsafe gap in the claim workflow:
// a crash between the on-chain confirmation and the Mint write leaves the
// chain showing Claimed with no off-chain record. The sweep compares the
// ledger's claim states against stored mints and re-creates what is missing.
type Reconciler struct {
	store  store.Store
	ledger ledger.Client
	log    zerolog.Logger
	now    func() time.Time
}

func NewReconciler(s store.Store, l ledger.Client, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:  s,
		ledger: l,
		log:    log,
		now:    time.Now,
	}
}

// SweepReport summarizes one reconciliation pass over a project.
type SweepReport struct {
	ProjectID string `json:"projectId"`
	Checked   int    `json:"checked"`
	Repaired  int    `json:"repaired"`
	Errors    int    `json:"errors"`
}

// SweepProject repairs missing Mint records for one project. A repaired
// mint snapshots the project's current fields: the claim-time snapshot was
// lost with the crash, and current fields are the closest truthful value.
// The original tx hash is unknown by then, so the record is flagged instead.
func (r *Reconciler) SweepProject(ctx context.Context, projectID string) (SweepReport, error) {
	report := SweepReport{ProjectID: projectID}

	project, err := r.store.GetProject(ctx, projectID)
	if err != nil {
		return report, fmt.Errorf("load project %s: %w", projectID, err)
	}
	if project == nil {
		return report, ErrProjectNotFound
	}

	// The eligibility list is the sweep's enumeration domain: the contract
	// keeps claimed users in it, so a missing mint is always discoverable
	// here. A user dropped from the list after claiming would be invisible
	// to the sweep.
	users, err := r.ledger.GetEligibleUsersForAirdrop(ctx, projectID)
	if err != nil {
		return report, fmt.Errorf("eligible users for %s: %w", projectID, err)
	}

	mints, err := r.store.GetProjectMints(ctx, projectID)
	if err != nil {
		return report, fmt.Errorf("stored mints for %s: %w", projectID, err)
	}
	recorded := make(map[string]bool, len(mints))
	for _, m := range mints {
		recorded[m.UID] = true
	}

	for _, uid := range users {
		if recorded[uid] {
			continue
		}
		report.Checked++

		state, err := r.ledger.GetClaimState(ctx, projectID, uid)
		if err != nil {
			report.Errors++
			r.log.Error().Err(err).Str("project_id", projectID).Str("uid", uid).
				Msg("sweep: claim state read failed")
			continue
		}
		if state == ledger.NotClaimed {
			continue
		}

		mint := store.SnapshotMint(project, uid, r.now(), state, "")
		mint.Repaired = true
		mintID, err := r.store.CreateMint(ctx, mint)
		if err != nil {
			report.Errors++
			r.log.Error().Err(err).Str("project_id", projectID).Str("uid", uid).
				Msg("sweep: repair mint write failed")
			continue
		}
		report.Repaired++
		r.log.Warn().Str("project_id", projectID).Str("uid", uid).Str("mint_id", mintID).
			Stringer("claim_state", state).Msg("sweep: repaired missing mint record")
	}

	if report.Repaired > 0 {
		count, err := r.store.GetProjectMintCount(ctx, projectID)
		if err != nil {
			return report, fmt.Errorf("recount mints for %s: %w", projectID, err)
		}
		if err := r.store.SetProjectMintCount(ctx, projectID, count); err != nil {
			return report, fmt.Errorf("persist mint count for %s: %w", projectID, err)
		}
	}

	return report, nil
}

// SweepAll runs SweepProject over every stored project. Per-project failures
// are logged and counted, not fatal to the sweep.
func (r *Reconciler) SweepAll(ctx context.Context) ([]SweepReport, error) {
	projects, err := r.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	reports := make([]SweepReport, 0, len(projects))
	for _, p := range projects {
		report, err := r.SweepProject(ctx, p.ID)
		if err != nil {
			report.Errors++
			r.log.Error().Err(err).Str("project_id", p.ID).Msg("sweep: project pass failed")
		}
		reports = append(reports, report)
	}
	return reports, nil
}
