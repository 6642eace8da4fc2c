package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/SafalBhandari12/sysMonitoring/internal/domain"
	"github.com/SafalBhandari12/sysMonitoring/internal/repo"
)

var _ repo.DomainStore = (*Store)(nil)
var _ repo.EndpointStore = (*Store)(nil)
var _ repo.ResultStore = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// ---- DomainStore ----

func (s *Store) AddDomain(ctx context.Context, d *domain.MonitoredDomain) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	_, err := s.pool.Exec(ctx,
		`INSERT INTO domains
		   (id, host, verification_status, verification_code, verification_attempts,
		    last_verification_at, next_verification_at, verified_at, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		string(d.ID), d.Host, string(d.VerificationStatus), d.VerificationCode, d.Attempts,
		d.LastAttemptAt, d.NextAttemptAt, d.VerifiedAt, d.CreatedAt, d.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("domain %q already registered: %w", d.Host, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert domain: %w", err)
	}
	return nil
}

const domainCols = `id, host, verification_status, verification_code, verification_attempts,
       last_verification_at, next_verification_at, verified_at, created_at, updated_at`

func scanDomain(row pgx.Row) (*domain.MonitoredDomain, error) {
	var d domain.MonitoredDomain
	var id, status string
	if err := row.Scan(&id, &d.Host, &status, &d.VerificationCode, &d.Attempts,
		&d.LastAttemptAt, &d.NextAttemptAt, &d.VerifiedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.ID = domain.DomainID(id)
	d.VerificationStatus = domain.VerificationStatus(status)
	return &d, nil
}

func (s *Store) DomainByHost(ctx context.Context, host string) (*domain.MonitoredDomain, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+domainCols+` FROM domains WHERE host = $1`, host)
	d, err := scanDomain(row)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("domain %q: %w", host, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get domain: %w", err)
	}
	return d, nil
}

func (s *Store) DueDomains(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*domain.MonitoredDomain, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+domainCols+`
		   FROM domains
		  WHERE verification_status <> 'VERIFIED'
		    AND verification_attempts < $2
		    AND next_verification_at <= $1
		  ORDER BY next_verification_at ASC
		  LIMIT $3`,
		now, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("due domains: %w", err)
	}
	defer rows.Close()

	var out []*domain.MonitoredDomain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) SaveVerification(ctx context.Context, d *domain.MonitoredDomain) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE domains
		    SET verification_status = $2,
		        verification_attempts = $3,
		        last_verification_at = $4,
		        next_verification_at = $5,
		        verified_at = $6,
		        updated_at = now()
		  WHERE id = $1`,
		string(d.ID), string(d.VerificationStatus), d.Attempts,
		d.LastAttemptAt, d.NextAttemptAt, d.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("save verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("domain %q: %w", d.ID, domain.ErrNotFound)
	}
	return nil
}

// ---- EndpointStore ----

func (s *Store) AddEndpoint(ctx context.Context, e *domain.MonitoredEndpoint) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	headers, body := marshalJSONMap(e.Headers), marshalJSONMap(e.Body)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO endpoints
		   (id, domain_id, name, path, method, headers, body, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		string(e.ID), string(e.DomainID), e.Name, e.Path, e.Method, headers, body,
		e.CreatedAt, e.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("endpoint %q already registered for domain: %w", e.Path, domain.ErrConflict)
	}
	if isFKViolation(err) {
		return fmt.Errorf("domain %q: %w", e.DomainID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("insert endpoint: %w", err)
	}
	return nil
}

const endpointCols = `id, domain_id, name, path, method, headers, body, claimed_until,
       uptime_percent, avg_response_time_ms, p90_ms, p99_ms, created_at, updated_at`

func scanEndpoint(row pgx.Row) (*domain.MonitoredEndpoint, error) {
	var e domain.MonitoredEndpoint
	var id, domainID string
	var headers, body []byte
	if err := row.Scan(&id, &domainID, &e.Name, &e.Path, &e.Method, &headers, &body,
		&e.ClaimedUntil, &e.Summary.UptimePercent, &e.Summary.AverageResponseTimeMs,
		&e.Summary.P90Ms, &e.Summary.P99Ms, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.ID = domain.EndpointID(id)
	e.DomainID = domain.DomainID(domainID)
	e.Headers = unmarshalJSONMap(headers)
	e.Body = unmarshalJSONMap(body)
	return &e, nil
}

func (s *Store) EndpointByID(ctx context.Context, id domain.EndpointID) (*domain.MonitoredEndpoint, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+endpointCols+` FROM endpoints WHERE id = $1`, string(id))
	e, err := scanEndpoint(row)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get endpoint: %w", err)
	}
	return e, nil
}

func (s *Store) EndpointByURL(ctx context.Context, host, path string) (*domain.MonitoredEndpoint, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT e.id, e.domain_id, e.name, e.path, e.method, e.headers, e.body, e.claimed_until,
		        e.uptime_percent, e.avg_response_time_ms, e.p90_ms, e.p99_ms, e.created_at, e.updated_at
		   FROM endpoints e
		   JOIN domains d ON d.id = e.domain_id
		  WHERE d.host = $1 AND e.path = $2`, host, path)
	e, err := scanEndpoint(row)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("endpoint %s%s: %w", host, path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get endpoint by url: %w", err)
	}
	return e, nil
}

func (s *Store) ListEndpoints(ctx context.Context) ([]*domain.MonitoredEndpoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+endpointCols+` FROM endpoints ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list endpoints: %w", err)
	}
	defer rows.Close()

	var out []*domain.MonitoredEndpoint
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan endpoint: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) DueEndpoints(ctx context.Context, now time.Time, limit int) ([]repo.ProbeTarget, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.id, d.host, e.path, e.method, e.headers, e.body
		   FROM endpoints e
		   JOIN domains d ON d.id = e.domain_id
		  WHERE d.verification_status = 'VERIFIED'
		    AND (e.claimed_until IS NULL OR e.claimed_until <= $1)
		  ORDER BY e.updated_at ASC
		  LIMIT $2`,
		now, limit)
	if err != nil {
		return nil, fmt.Errorf("due endpoints: %w", err)
	}
	defer rows.Close()

	var out []repo.ProbeTarget
	for rows.Next() {
		var t repo.ProbeTarget
		var id string
		var headers, body []byte
		if err := rows.Scan(&id, &t.Host, &t.Path, &t.Method, &headers, &body); err != nil {
			return nil, fmt.Errorf("scan due endpoint: %w", err)
		}
		t.ID = domain.EndpointID(id)
		t.Headers = unmarshalJSONMap(headers)
		t.Body = unmarshalJSONMap(body)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ClaimEndpoint is a conditional update: it only wins when no live lease
// exists, so concurrent cycles cannot probe the same endpoint.
func (s *Store) ClaimEndpoint(ctx context.Context, id domain.EndpointID, until time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE endpoints
		    SET claimed_until = $2
		  WHERE id = $1
		    AND (claimed_until IS NULL OR claimed_until <= now())`,
		string(id), until,
	)
	if err != nil {
		return false, fmt.Errorf("claim endpoint: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ReleaseEndpoint(ctx context.Context, id domain.EndpointID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE endpoints SET claimed_until = NULL, updated_at = now() WHERE id = $1`,
		string(id),
	)
	if err != nil {
		return fmt.Errorf("release endpoint: %w", err)
	}
	return nil
}

func (s *Store) SetSummary(ctx context.Context, id domain.EndpointID, sum domain.Summary) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE endpoints
		    SET uptime_percent = $2,
		        avg_response_time_ms = $3,
		        p90_ms = $4,
		        p99_ms = $5
		  WHERE id = $1`,
		string(id), sum.UptimePercent, sum.AverageResponseTimeMs, sum.P90Ms, sum.P99Ms,
	)
	if err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("endpoint %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ---- ResultStore ----

// RecordProbe runs both writes in one transaction. The rollup fold is a
// single ON CONFLICT arithmetic update, so racing writers on the same
// (endpoint, day) bucket serialize at the row and nothing is lost.
func (s *Store) RecordProbe(ctx context.Context, rec *domain.ProbeRecord) error {
	up := 0
	if rec.Outcome == domain.OutcomeUp {
		up = 1
	}
	day := domain.DayOf(rec.CheckedAt)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO probe_records
		   (endpoint_id, outcome, status_code, response_time_ms, checked_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		string(rec.EndpointID), string(rec.Outcome), rec.StatusCode, rec.ResponseTimeMs, rec.CheckedAt,
	)
	if isFKViolation(err) {
		return fmt.Errorf("endpoint %q: %w", rec.EndpointID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("insert probe record: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO daily_rollups
		   (endpoint_id, day, total_count, up_count, avg_response_time_ms, max_response_time_ms, uptime_percent)
		 VALUES ($1, $2, 1, $3, $4, $4, $3 * 100.0)
		 ON CONFLICT (endpoint_id, day)
		 DO UPDATE SET
		   total_count = daily_rollups.total_count + 1,
		   up_count = daily_rollups.up_count + EXCLUDED.up_count,
		   avg_response_time_ms =
		     (daily_rollups.avg_response_time_ms * daily_rollups.total_count + EXCLUDED.avg_response_time_ms)
		       / (daily_rollups.total_count + 1),
		   max_response_time_ms = GREATEST(daily_rollups.max_response_time_ms, EXCLUDED.max_response_time_ms),
		   uptime_percent =
		     (daily_rollups.up_count + EXCLUDED.up_count) * 100.0 / (daily_rollups.total_count + 1)`,
		string(rec.EndpointID), day, up, rec.ResponseTimeMs,
	)
	if err != nil {
		return fmt.Errorf("upsert rollup: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) RollupsSince(ctx context.Context, id domain.EndpointID, since time.Time) ([]domain.DailyRollup, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT endpoint_id, day, total_count, up_count, avg_response_time_ms, max_response_time_ms, uptime_percent
		   FROM daily_rollups
		  WHERE endpoint_id = $1 AND day >= $2
		  ORDER BY day ASC`,
		string(id), domain.DayOf(since))
	if err != nil {
		return nil, fmt.Errorf("rollups since: %w", err)
	}
	defer rows.Close()
	return scanRollups(rows)
}

func (s *Store) RecentRollups(ctx context.Context, id domain.EndpointID, limit int) ([]domain.DailyRollup, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT endpoint_id, day, total_count, up_count, avg_response_time_ms, max_response_time_ms, uptime_percent
		   FROM daily_rollups
		  WHERE endpoint_id = $1
		  ORDER BY day DESC
		  LIMIT $2`,
		string(id), limit)
	if err != nil {
		return nil, fmt.Errorf("recent rollups: %w", err)
	}
	defer rows.Close()
	return scanRollups(rows)
}

func scanRollups(rows pgx.Rows) ([]domain.DailyRollup, error) {
	var out []domain.DailyRollup
	for rows.Next() {
		var r domain.DailyRollup
		var id string
		if err := rows.Scan(&id, &r.Day, &r.TotalCount, &r.UpCount,
			&r.AvgResponseMs, &r.MaxResponseMs, &r.UptimePercent); err != nil {
			return nil, fmt.Errorf("scan rollup: %w", err)
		}
		r.EndpointID = domain.EndpointID(id)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) LatenciesSince(ctx context.Context, id domain.EndpointID, since time.Time) ([]float64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT response_time_ms
		   FROM probe_records
		  WHERE endpoint_id = $1 AND checked_at >= $2`,
		string(id), since)
	if err != nil {
		return nil, fmt.Errorf("latencies since: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan latency: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ---- helpers ----

func marshalJSONMap(m map[string]string) []byte {
	if len(m) == 0 {
		return nil
	}
	b, _ := json.Marshal(m)
	return b
}

func unmarshalJSONMap(b []byte) map[string]string {
	if len(b) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}
