package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by updates targeting a missing record. Point reads
// signal absence with (nil, nil) instead.
var ErrNotFound = errors.New("record not found")

// Store persists projects, mints and users. It offers no compare-and-swap;
// the claim workflow relies on the ledger as the only concurrency gate and
// treats everything here as derived state.
type Store interface {
	GetProject(ctx context.Context, id string) (*Project, error)
	SaveProject(ctx context.Context, p *Project) error
	ListProjects(ctx context.Context) ([]Project, error)
	SetProjectClaimOpen(ctx context.Context, id string, open bool) error
	SetProjectLatestClaimAt(ctx context.Context, id string, at time.Time) error
	SetProjectMintCount(ctx context.Context, id string, count int) error

	// CreateMint inserts the record and returns the server-generated id.
	// Mints are never updated or deleted.
	CreateMint(ctx context.Context, m Mint) (string, error)
	GetProjectMintCount(ctx context.Context, projectID string) (int, error)
	GetProjectMints(ctx context.Context, projectID string) ([]Mint, error)
	GetUserMints(ctx context.Context, uid string) ([]Mint, error)

	GetUser(ctx context.Context, uid string) (*User, error)
	SaveUser(ctx context.Context, u *User) error
}

// MemoryStore is mostly for testing.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]Project
	mints    map[string]Mint
	users    map[string]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects: make(map[string]Project),
		mints:    make(map[string]Mint),
		users:    make(map[string]User),
	}
}

func (m *MemoryStore) GetProject(_ context.Context, id string) (*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) SaveProject(_ context.Context, p *Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = *p
	return nil
}

func (m *MemoryStore) ListProjects(_ context.Context) ([]Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SetProjectClaimOpen(_ context.Context, id string, open bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return ErrNotFound
	}
	p.ClaimOpen = open
	m.projects[id] = p
	return nil
}

func (m *MemoryStore) SetProjectLatestClaimAt(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return ErrNotFound
	}
	p.LatestClaimAt = at
	m.projects[id] = p
	return nil
}

func (m *MemoryStore) SetProjectMintCount(_ context.Context, id string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return ErrNotFound
	}
	p.MintCount = count
	m.projects[id] = p
	return nil
}

func (m *MemoryStore) CreateMint(_ context.Context, mint Mint) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mint.ID = uuid.NewString()
	m.mints[mint.ID] = mint
	return mint.ID, nil
}

func (m *MemoryStore) GetProjectMintCount(_ context.Context, projectID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, mint := range m.mints {
		if mint.ProjectID == projectID {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) GetProjectMints(_ context.Context, projectID string) ([]Mint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Mint
	for _, mint := range m.mints {
		if mint.ProjectID == projectID {
			out = append(out, mint)
		}
	}
	sortMints(out)
	return out, nil
}

func (m *MemoryStore) GetUserMints(_ context.Context, uid string) ([]Mint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Mint
	for _, mint := range m.mints {
		if mint.UID == uid {
			out = append(out, mint)
		}
	}
	sortMints(out)
	return out, nil
}

func (m *MemoryStore) GetUser(_ context.Context, uid string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[uid]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MemoryStore) SaveUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UID] = *u
	return nil
}

func sortMints(mints []Mint) {
	sort.Slice(mints, func(i, j int) bool {
		if mints[i].Timestamp.Equal(mints[j].Timestamp) {
			return mints[i].ID < mints[j].ID
		}
		return mints[i].Timestamp.After(mints[j].Timestamp)
	})
}
