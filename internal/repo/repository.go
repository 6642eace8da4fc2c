package repo

import (
	"context"
	"time"

	"github.com/SafalBhandari12/sysMonitoring/internal/domain"
)

// Ports (interfaces) — swap in any DB adapter later.

// ProbeTarget is a due endpoint joined with its domain's hostname, ready
// for the scheduler to probe.
type ProbeTarget struct {
	ID      domain.EndpointID
	Host    string
	Path    string
	Method  string
	Headers map[string]string
	Body    map[string]string
}

type EndpointStore interface {
	// AddEndpoint persists a new endpoint. Returns domain.ErrConflict when
	// the (domain, path) pair is already registered.
	AddEndpoint(ctx context.Context, e *domain.MonitoredEndpoint) error
	EndpointByID(ctx context.Context, id domain.EndpointID) (*domain.MonitoredEndpoint, error)
	// EndpointByURL resolves a normalized host + path to its endpoint.
	EndpointByURL(ctx context.Context, host, path string) (*domain.MonitoredEndpoint, error)
	ListEndpoints(ctx context.Context) ([]*domain.MonitoredEndpoint, error)
	// DueEndpoints selects endpoints whose owning domain is VERIFIED and
	// whose probe lease is absent or expired, least-recently-updated
	// first, up to limit.
	DueEndpoints(ctx context.Context, now time.Time, limit int) ([]ProbeTarget, error)
	// ClaimEndpoint takes the probe lease until the given expiry. It is a
	// conditional update: false means another cycle holds a live lease.
	ClaimEndpoint(ctx context.Context, id domain.EndpointID, until time.Time) (bool, error)
	// ReleaseEndpoint clears the lease and bumps updated_at so the
	// endpoint goes to the back of the due queue.
	ReleaseEndpoint(ctx context.Context, id domain.EndpointID) error
	SetSummary(ctx context.Context, id domain.EndpointID, s domain.Summary) error
}

type DomainStore interface {
	// AddDomain persists a new domain. Returns domain.ErrConflict when the
	// hostname is already registered.
	AddDomain(ctx context.Context, d *domain.MonitoredDomain) error
	DomainByHost(ctx context.Context, host string) (*domain.MonitoredDomain, error)
	// DueDomains selects domains eligible for a verification attempt:
	// not VERIFIED, attempts below the cap, next attempt time reached;
	// ordered by next attempt time ascending, up to limit.
	DueDomains(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*domain.MonitoredDomain, error)
	// SaveVerification persists the post-attempt state of a domain
	// (status, attempts, timestamps) as one update.
	SaveVerification(ctx context.Context, d *domain.MonitoredDomain) error
}

type ResultStore interface {
	// RecordProbe atomically appends the probe record and folds it into
	// the (endpoint, day) rollup bucket. Concurrent writers on the same
	// bucket must not lose increments.
	RecordProbe(ctx context.Context, rec *domain.ProbeRecord) error
	// RollupsSince returns rollup buckets on or after the given day.
	RollupsSince(ctx context.Context, id domain.EndpointID, since time.Time) ([]domain.DailyRollup, error)
	// LatenciesSince returns raw probe latencies observed since the given
	// instant.
	LatenciesSince(ctx context.Context, id domain.EndpointID, since time.Time) ([]float64, error)
	// RecentRollups returns up to limit buckets, most recent day first.
	RecentRollups(ctx context.Context, id domain.EndpointID, limit int) ([]domain.DailyRollup, error)
}
