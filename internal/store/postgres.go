package store

import (
	"context"
	"errors"
	"time"

	"airdroptracker/internal/ledger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    from_name TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    image TEXT NOT NULL DEFAULT '',
    nft_contract_address TEXT NOT NULL DEFAULT '',
    token_id TEXT NOT NULL DEFAULT '',
    claim_open BOOLEAN NOT NULL DEFAULT FALSE,
    claim_limit INT NOT NULL DEFAULT 0,
    mint_count INT NOT NULL DEFAULT 0,
    latest_claim_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS mints (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    uid TEXT NOT NULL,
    from_name TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    image TEXT NOT NULL DEFAULT '',
    nft_contract_address TEXT NOT NULL DEFAULT '',
    token_id TEXT NOT NULL DEFAULT '',
    ts TIMESTAMPTZ NOT NULL,
    base_claim_state SMALLINT NOT NULL,
    record_claim_tx_hash TEXT NOT NULL DEFAULT '',
    repaired BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS mints_project_idx ON mints (project_id);
CREATE INDEX IF NOT EXISTS mints_uid_idx ON mints (uid);

CREATE TABLE IF NOT EXISTS users (
    uid TEXT PRIMARY KEY,
    wallet_address TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// NewPostgresStore connects using the DSN and ensures the tables exist.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, createTablesSQL); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

const projectColumns = `id, title, from_name, description, image, nft_contract_address,
token_id, claim_open, claim_limit, mint_count, latest_claim_at, created_at`

func scanProject(row pgx.Row) (*Project, error) {
	var prj Project
	var latest *time.Time
	err := row.Scan(&prj.ID, &prj.Title, &prj.From, &prj.Description, &prj.Image,
		&prj.NFTContractAddress, &prj.TokenID, &prj.ClaimOpen, &prj.ClaimLimit,
		&prj.MintCount, &latest, &prj.CreatedAt)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		prj.LatestClaimAt = *latest
	}
	return &prj, nil
}

func (p *PostgresStore) GetProject(ctx context.Context, id string) (*Project, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	prj, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return prj, err
}

func (p *PostgresStore) SaveProject(ctx context.Context, prj *Project) error {
	if prj.CreatedAt.IsZero() {
		prj.CreatedAt = time.Now().UTC()
	}
	var latest *time.Time
	if !prj.LatestClaimAt.IsZero() {
		latest = &prj.LatestClaimAt
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO projects (id, title, from_name, description, image, nft_contract_address,
    token_id, claim_open, claim_limit, mint_count, latest_claim_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE
SET title = EXCLUDED.title,
    from_name = EXCLUDED.from_name,
    description = EXCLUDED.description,
    image = EXCLUDED.image,
    nft_contract_address = EXCLUDED.nft_contract_address,
    token_id = EXCLUDED.token_id,
    claim_open = EXCLUDED.claim_open,
    claim_limit = EXCLUDED.claim_limit
`, prj.ID, prj.Title, prj.From, prj.Description, prj.Image, prj.NFTContractAddress,
		prj.TokenID, prj.ClaimOpen, prj.ClaimLimit, prj.MintCount, latest, prj.CreatedAt)
	return err
}

func (p *PostgresStore) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		prj, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *prj)
	}
	return out, rows.Err()
}

func (p *PostgresStore) SetProjectClaimOpen(ctx context.Context, id string, open bool) error {
	return p.updateProject(ctx, `UPDATE projects SET claim_open = $2 WHERE id = $1`, id, open)
}

func (p *PostgresStore) SetProjectLatestClaimAt(ctx context.Context, id string, at time.Time) error {
	return p.updateProject(ctx, `UPDATE projects SET latest_claim_at = $2 WHERE id = $1`, id, at)
}

func (p *PostgresStore) SetProjectMintCount(ctx context.Context, id string, count int) error {
	return p.updateProject(ctx, `UPDATE projects SET mint_count = $2 WHERE id = $1`, id, count)
}

func (p *PostgresStore) updateProject(ctx context.Context, sql string, args ...any) error {
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) CreateMint(ctx context.Context, m Mint) (string, error) {
	m.ID = uuid.NewString()
	_, err := p.pool.Exec(ctx, `
INSERT INTO mints (id, project_id, uid, from_name, title, description, image,
    nft_contract_address, token_id, ts, base_claim_state, record_claim_tx_hash, repaired)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`, m.ID, m.ProjectID, m.UID, m.From, m.Title, m.Description, m.Image,
		m.NFTContractAddress, m.TokenID, m.Timestamp, int16(m.BaseClaimState), m.RecordClaimTxHash, m.Repaired)
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func (p *PostgresStore) GetProjectMintCount(ctx context.Context, projectID string) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM mints WHERE project_id = $1`, projectID).Scan(&count)
	return count, err
}

const mintColumns = `id, project_id, uid, from_name, title, description, image,
nft_contract_address, token_id, ts, base_claim_state, record_claim_tx_hash, repaired`

func (p *PostgresStore) GetProjectMints(ctx context.Context, projectID string) ([]Mint, error) {
	return p.queryMints(ctx, `SELECT `+mintColumns+` FROM mints WHERE project_id = $1 ORDER BY ts DESC`, projectID)
}

func (p *PostgresStore) GetUserMints(ctx context.Context, uid string) ([]Mint, error) {
	return p.queryMints(ctx, `SELECT `+mintColumns+` FROM mints WHERE uid = $1 ORDER BY ts DESC`, uid)
}

func (p *PostgresStore) queryMints(ctx context.Context, sql string, args ...any) ([]Mint, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Mint
	for rows.Next() {
		var m Mint
		var state int16
		err := rows.Scan(&m.ID, &m.ProjectID, &m.UID, &m.From, &m.Title, &m.Description,
			&m.Image, &m.NFTContractAddress, &m.TokenID, &m.Timestamp, &state,
			&m.RecordClaimTxHash, &m.Repaired)
		if err != nil {
			return nil, err
		}
		m.BaseClaimState = ledger.ClaimState(state)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *PostgresStore) GetUser(ctx context.Context, uid string) (*User, error) {
	var u User
	err := p.pool.QueryRow(ctx, `SELECT uid, wallet_address, updated_at FROM users WHERE uid = $1`, uid).
		Scan(&u.UID, &u.WalletAddress, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (p *PostgresStore) SaveUser(ctx context.Context, u *User) error {
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO users (uid, wallet_address, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (uid) DO UPDATE
SET wallet_address = EXCLUDED.wallet_address,
    updated_at = EXCLUDED.updated_at
`, u.UID, u.WalletAddress, u.UpdatedAt)
	return err
}
