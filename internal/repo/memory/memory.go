package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SafalBhandari12/sysMonitoring/internal/domain"
	"github.com/SafalBhandari12/sysMonitoring/internal/repo"
)

type rollupKey struct {
	endpoint domain.EndpointID
	day      time.Time
}

// Store is an in-memory implementation of every port. Used by tests and
// when DATABASE_URL is unset.
type Store struct {
	mu        sync.RWMutex
	domains   map[domain.DomainID]*domain.MonitoredDomain
	byHost    map[string]domain.DomainID
	endpoints map[domain.EndpointID]*domain.MonitoredEndpoint
	records   []*domain.ProbeRecord
	rollups   map[rollupKey]*domain.DailyRollup
}

func New() *Store {
	return &Store{
		domains:   make(map[domain.DomainID]*domain.MonitoredDomain),
		byHost:    make(map[string]domain.DomainID),
		endpoints: make(map[domain.EndpointID]*domain.MonitoredEndpoint),
		records:   make([]*domain.ProbeRecord, 0, 128),
		rollups:   make(map[rollupKey]*domain.DailyRollup),
	}
}

// ---- DomainStore ----

func (m *Store) AddDomain(ctx context.Context, d *domain.MonitoredDomain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byHost[d.Host]; exists {
		return fmt.Errorf("domain %q already registered: %w", d.Host, domain.ErrConflict)
	}
	if d.ID == "" {
		d.ID = domain.DomainID(uuid.NewString())
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	cp := *d
	m.domains[d.ID] = &cp
	m.byHost[d.Host] = d.ID
	return nil
}

func (m *Store) DomainByHost(ctx context.Context, host string) (*domain.MonitoredDomain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byHost[host]
	if !ok {
		return nil, fmt.Errorf("domain %q: %w", host, domain.ErrNotFound)
	}
	cp := *m.domains[id]
	return &cp, nil
}

func (m *Store) DueDomains(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*domain.MonitoredDomain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var due []*domain.MonitoredDomain
	for _, d := range m.domains {
		if d.VerificationStatus == domain.StatusVerified {
			continue
		}
		if d.Attempts >= maxAttempts {
			continue
		}
		if d.NextAttemptAt.After(now) {
			continue
		}
		cp := *d
		due = append(due, &cp)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(due[j].NextAttemptAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *Store) SaveVerification(ctx context.Context, d *domain.MonitoredDomain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.domains[d.ID]
	if !ok {
		return fmt.Errorf("domain %q: %w", d.ID, domain.ErrNotFound)
	}
	cur.VerificationStatus = d.VerificationStatus
	cur.Attempts = d.Attempts
	cur.LastAttemptAt = d.LastAttemptAt
	cur.NextAttemptAt = d.NextAttemptAt
	cur.VerifiedAt = d.VerifiedAt
	cur.UpdatedAt = time.Now().UTC()
	return nil
}

// ---- EndpointStore ----

func (m *Store) AddEndpoint(ctx context.Context, e *domain.MonitoredEndpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.domains[e.DomainID]; !ok {
		return fmt.Errorf("domain %q: %w", e.DomainID, domain.ErrNotFound)
	}
	for _, ex := range m.endpoints {
		if ex.DomainID == e.DomainID && ex.Path == e.Path {
			return fmt.Errorf("endpoint %q already registered for domain: %w", e.Path, domain.ErrConflict)
		}
	}
	if e.ID == "" {
		e.ID = domain.EndpointID(uuid.NewString())
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	cp := *e
	m.endpoints[e.ID] = &cp
	return nil
}

func (m *Store) EndpointByID(ctx context.Context, id domain.EndpointID) (*domain.MonitoredEndpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.endpoints[id]
	if !ok {
		return nil, fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (m *Store) EndpointByURL(ctx context.Context, host, path string) (*domain.MonitoredEndpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byHost[host]
	if !ok {
		return nil, fmt.Errorf("domain %q: %w", host, domain.ErrNotFound)
	}
	for _, e := range m.endpoints {
		if e.DomainID == id && e.Path == path {
			cp := *e
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("endpoint %s%s: %w", host, path, domain.ErrNotFound)
}

func (m *Store) ListEndpoints(ctx context.Context) ([]*domain.MonitoredEndpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.MonitoredEndpoint, 0, len(m.endpoints))
	for _, e := range m.endpoints {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Store) DueEndpoints(ctx context.Context, now time.Time, limit int) ([]repo.ProbeTarget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type cand struct {
		t       repo.ProbeTarget
		updated time.Time
	}
	var cands []cand
	for _, e := range m.endpoints {
		d := m.domains[e.DomainID]
		if d == nil || d.VerificationStatus != domain.StatusVerified {
			continue
		}
		if e.ClaimedUntil != nil && e.ClaimedUntil.After(now) {
			continue
		}
		cands = append(cands, cand{
			t: repo.ProbeTarget{
				ID:      e.ID,
				Host:    d.Host,
				Path:    e.Path,
				Method:  e.Method,
				Headers: e.Headers,
				Body:    e.Body,
			},
			updated: e.UpdatedAt,
		})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].updated.Before(cands[j].updated) })
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]repo.ProbeTarget, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.t)
	}
	return out, nil
}

func (m *Store) ClaimEndpoint(ctx context.Context, id domain.EndpointID, until time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.endpoints[id]
	if !ok {
		return false, fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	now := time.Now().UTC()
	if e.ClaimedUntil != nil && e.ClaimedUntil.After(now) {
		return false, nil
	}
	u := until.UTC()
	e.ClaimedUntil = &u
	return true, nil
}

func (m *Store) ReleaseEndpoint(ctx context.Context, id domain.EndpointID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.endpoints[id]
	if !ok {
		return fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	e.ClaimedUntil = nil
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Store) SetSummary(ctx context.Context, id domain.EndpointID, s domain.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.endpoints[id]
	if !ok {
		return fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	e.Summary = s
	return nil
}

// ---- ResultStore ----

// RecordProbe holds the store lock across both writes, so the record and
// its rollup move together and concurrent folds never lose increments.
func (m *Store) RecordProbe(ctx context.Context, rec *domain.ProbeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.endpoints[rec.EndpointID]; !ok {
		return fmt.Errorf("endpoint %q: %w", rec.EndpointID, domain.ErrNotFound)
	}
	cp := *rec
	m.records = append(m.records, &cp)

	key := rollupKey{endpoint: rec.EndpointID, day: domain.DayOf(rec.CheckedAt)}
	r, ok := m.rollups[key]
	if !ok {
		r = &domain.DailyRollup{EndpointID: rec.EndpointID, Day: key.day}
		m.rollups[key] = r
	}
	r.Fold(rec)
	return nil
}

func (m *Store) RollupsSince(ctx context.Context, id domain.EndpointID, since time.Time) ([]domain.DailyRollup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.DailyRollup
	for key, r := range m.rollups {
		if key.endpoint != id || key.day.Before(domain.DayOf(since)) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (m *Store) LatenciesSince(ctx context.Context, id domain.EndpointID, since time.Time) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []float64
	for _, rec := range m.records {
		if rec.EndpointID != id || rec.CheckedAt.Before(since) {
			continue
		}
		out = append(out, rec.ResponseTimeMs)
	}
	return out, nil
}

func (m *Store) RecentRollups(ctx context.Context, id domain.EndpointID, limit int) ([]domain.DailyRollup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.DailyRollup
	for key, r := range m.rollups {
		if key.endpoint != id {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.After(out[j].Day) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
