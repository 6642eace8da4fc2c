package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SafalBhandari12/sysMonitoring/internal/domain"
)

func seedVerifiedDomain(t *testing.T, s *Store, host string) *domain.MonitoredDomain {
	t.Helper()
	now := time.Now().UTC()
	d := &domain.MonitoredDomain{
		Host:               host,
		VerificationStatus: domain.StatusVerified,
		VerificationCode:   "code-" + host,
		VerifiedAt:         &now,
	}
	if err := s.AddDomain(context.Background(), d); err != nil {
		t.Fatalf("AddDomain: %v", err)
	}
	return d
}

func TestStore_AddDomain_DuplicateHostConflicts(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.AddDomain(ctx, &domain.MonitoredDomain{Host: "example.com", VerificationStatus: domain.StatusPending}); err != nil {
		t.Fatalf("AddDomain: %v", err)
	}
	err := s.AddDomain(ctx, &domain.MonitoredDomain{Host: "example.com", VerificationStatus: domain.StatusPending})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestStore_AddEndpoint_DuplicatePathConflicts(t *testing.T) {
	ctx := context.Background()
	s := New()
	d := seedVerifiedDomain(t, s, "example.com")

	e := &domain.MonitoredEndpoint{DomainID: d.ID, Name: "health", Path: "/health", Method: "GET"}
	if err := s.AddEndpoint(ctx, e); err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}
	if e.ID == "" {
		t.Fatalf("expected endpoint ID to be set")
	}

	dup := &domain.MonitoredEndpoint{DomainID: d.ID, Name: "again", Path: "/health", Method: "GET"}
	if err := s.AddEndpoint(ctx, dup); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}

	// same path under a different domain is fine
	d2 := seedVerifiedDomain(t, s, "other.com")
	if err := s.AddEndpoint(ctx, &domain.MonitoredEndpoint{DomainID: d2.ID, Path: "/health", Method: "GET"}); err != nil {
		t.Fatalf("AddEndpoint other domain: %v", err)
	}
}

func TestStore_DueEndpoints_FiltersUnverifiedAndClaimed(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()

	verified := seedVerifiedDomain(t, s, "up.com")
	pending := &domain.MonitoredDomain{Host: "pending.com", VerificationStatus: domain.StatusPending}
	if err := s.AddDomain(ctx, pending); err != nil {
		t.Fatalf("AddDomain: %v", err)
	}

	e1 := &domain.MonitoredEndpoint{DomainID: verified.ID, Path: "/a", Method: "GET"}
	e2 := &domain.MonitoredEndpoint{DomainID: verified.ID, Path: "/b", Method: "GET"}
	e3 := &domain.MonitoredEndpoint{DomainID: pending.ID, Path: "/c", Method: "GET"}
	for _, e := range []*domain.MonitoredEndpoint{e1, e2, e3} {
		if err := s.AddEndpoint(ctx, e); err != nil {
			t.Fatalf("AddEndpoint: %v", err)
		}
	}

	// claim e2 so it is skipped
	ok, err := s.ClaimEndpoint(ctx, e2.ID, now.Add(time.Minute))
	if err != nil || !ok {
		t.Fatalf("ClaimEndpoint: ok=%v err=%v", ok, err)
	}

	due, err := s.DueEndpoints(ctx, now, 100)
	if err != nil {
		t.Fatalf("DueEndpoints: %v", err)
	}
	if len(due) != 1 || due[0].ID != e1.ID {
		t.Fatalf("want only e1 due, got %+v", due)
	}
	if due[0].Host != "up.com" {
		t.Fatalf("expected host joined onto target, got %q", due[0].Host)
	}
}

func TestStore_ClaimEndpoint_ExpiredLeaseIsReclaimable(t *testing.T) {
	ctx := context.Background()
	s := New()
	d := seedVerifiedDomain(t, s, "example.com")
	e := &domain.MonitoredEndpoint{DomainID: d.ID, Path: "/health", Method: "GET"}
	if err := s.AddEndpoint(ctx, e); err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}

	past := time.Now().UTC().Add(-time.Minute)
	if ok, _ := s.ClaimEndpoint(ctx, e.ID, past); !ok {
		t.Fatalf("first claim should win")
	}
	// lease already expired, so a new cycle may claim again
	if ok, _ := s.ClaimEndpoint(ctx, e.ID, time.Now().UTC().Add(time.Minute)); !ok {
		t.Fatalf("expired lease should be reclaimable")
	}
	// live lease blocks
	if ok, _ := s.ClaimEndpoint(ctx, e.ID, time.Now().UTC().Add(time.Minute)); ok {
		t.Fatalf("live lease should block a second claim")
	}

	if err := s.ReleaseEndpoint(ctx, e.ID); err != nil {
		t.Fatalf("ReleaseEndpoint: %v", err)
	}
	if ok, _ := s.ClaimEndpoint(ctx, e.ID, time.Now().UTC().Add(time.Minute)); !ok {
		t.Fatalf("released endpoint should be claimable")
	}
}

func TestStore_RecordProbe_ConcurrentFoldsLoseNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	d := seedVerifiedDomain(t, s, "example.com")
	e := &domain.MonitoredEndpoint{DomainID: d.ID, Path: "/health", Method: "GET"}
	if err := s.AddEndpoint(ctx, e); err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}

	const n = 200
	day := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out := domain.OutcomeUp
			if i%2 == 1 {
				out = domain.OutcomeDown
			}
			rec := &domain.ProbeRecord{
				EndpointID:     e.ID,
				Outcome:        out,
				StatusCode:     200,
				ResponseTimeMs: 100,
				CheckedAt:      day,
			}
			if err := s.RecordProbe(ctx, rec); err != nil {
				t.Errorf("RecordProbe: %v", err)
			}
		}(i)
	}
	wg.Wait()

	rollups, err := s.RollupsSince(ctx, e.ID, day.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("RollupsSince: %v", err)
	}
	if len(rollups) != 1 {
		t.Fatalf("want one bucket, got %d", len(rollups))
	}
	r := rollups[0]
	if r.TotalCount != n || r.UpCount != n/2 {
		t.Fatalf("lost updates: total=%d up=%d want %d/%d", r.TotalCount, r.UpCount, n, n/2)
	}
	if r.UptimePercent != 50 {
		t.Fatalf("uptime want 50, got %f", r.UptimePercent)
	}

	lats, err := s.LatenciesSince(ctx, e.ID, day.Add(-time.Hour))
	if err != nil {
		t.Fatalf("LatenciesSince: %v", err)
	}
	if len(lats) != n {
		t.Fatalf("want %d raw latencies, got %d", n, len(lats))
	}
}

func TestStore_RecentRollups_MostRecentFirstAndCapped(t *testing.T) {
	ctx := context.Background()
	s := New()
	d := seedVerifiedDomain(t, s, "example.com")
	e := &domain.MonitoredEndpoint{DomainID: d.ID, Path: "/health", Method: "GET"}
	if err := s.AddEndpoint(ctx, e); err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}

	base := time.Date(2025, 8, 1, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := &domain.ProbeRecord{
			EndpointID: e.ID,
			Outcome:    domain.OutcomeUp,
			StatusCode: 200,
			CheckedAt:  base.AddDate(0, 0, i),
		}
		if err := s.RecordProbe(ctx, rec); err != nil {
			t.Fatalf("RecordProbe: %v", err)
		}
	}

	out, err := s.RecentRollups(ctx, e.ID, 3)
	if err != nil {
		t.Fatalf("RecentRollups: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("want 3 buckets, got %d", len(out))
	}
	if !out[0].Day.After(out[1].Day) || !out[1].Day.After(out[2].Day) {
		t.Fatalf("not most-recent-first: %v %v %v", out[0].Day, out[1].Day, out[2].Day)
	}
}

func TestStore_DueDomains_OrderAndCaps(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()

	mk := func(host string, status domain.VerificationStatus, attempts int, next time.Time) *domain.MonitoredDomain {
		d := &domain.MonitoredDomain{
			Host:               host,
			VerificationStatus: status,
			Attempts:           attempts,
			NextAttemptAt:      next,
		}
		if err := s.AddDomain(ctx, d); err != nil {
			t.Fatalf("AddDomain %s: %v", host, err)
		}
		return d
	}

	mk("later.com", domain.StatusPending, 0, now.Add(-time.Minute))
	mk("earlier.com", domain.StatusFailed, 2, now.Add(-time.Hour))
	mk("future.com", domain.StatusPending, 0, now.Add(time.Hour))
	mk("exhausted.com", domain.StatusFailed, 20, now.Add(-time.Hour))
	mk("done.com", domain.StatusVerified, 1, now.Add(-time.Hour))

	due, err := s.DueDomains(ctx, now, 20, 1000)
	if err != nil {
		t.Fatalf("DueDomains: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("want 2 due domains, got %d", len(due))
	}
	if due[0].Host != "earlier.com" || due[1].Host != "later.com" {
		t.Fatalf("wrong order: %s, %s", due[0].Host, due[1].Host)
	}
}
