package stats

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SafalBhandari12/sysMonitoring/internal/domain"
	"github.com/SafalBhandari12/sysMonitoring/internal/repo/memory"
)

func seedEndpoint(t *testing.T, s *memory.Store) *domain.MonitoredEndpoint {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	d := &domain.MonitoredDomain{
		Host:               "example.com",
		VerificationStatus: domain.StatusVerified,
		VerificationCode:   "code",
		VerifiedAt:         &now,
	}
	if err := s.AddDomain(ctx, d); err != nil {
		t.Fatalf("AddDomain: %v", err)
	}
	e := &domain.MonitoredEndpoint{DomainID: d.ID, Name: "health", Path: "/health", Method: "GET"}
	if err := s.AddEndpoint(ctx, e); err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}
	return e
}

func record(t *testing.T, s *memory.Store, id domain.EndpointID, out domain.Outcome, ms float64, at time.Time) {
	t.Helper()
	rec := &domain.ProbeRecord{
		EndpointID:     id,
		Outcome:        out,
		StatusCode:     200,
		ResponseTimeMs: ms,
		CheckedAt:      at,
	}
	if err := s.RecordProbe(context.Background(), rec); err != nil {
		t.Fatalf("RecordProbe: %v", err)
	}
}

func TestAggregator_ComputesWindowSummary(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := seedEndpoint(t, store)
	now := time.Now().UTC()

	// 3 up + 1 down inside the window, latencies 100,200,300,400
	record(t, store, e.ID, domain.OutcomeUp, 100, now.Add(-time.Hour))
	record(t, store, e.ID, domain.OutcomeUp, 200, now.AddDate(0, 0, -1))
	record(t, store, e.ID, domain.OutcomeUp, 300, now.AddDate(0, 0, -2))
	record(t, store, e.ID, domain.OutcomeDown, 400, now.AddDate(0, 0, -3))
	// outside the 90-day window: must be invisible
	record(t, store, e.ID, domain.OutcomeDown, 9000, now.AddDate(0, 0, -120))

	agg := NewAggregator(zap.NewNop(), store, store, time.Hour)
	if err := agg.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	got, err := store.EndpointByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("EndpointByID: %v", err)
	}
	if got.Summary.UptimePercent != 75 {
		t.Fatalf("uptime want 75, got %d", got.Summary.UptimePercent)
	}
	if got.Summary.AverageResponseTimeMs != 250 {
		t.Fatalf("avg want 250, got %d", got.Summary.AverageResponseTimeMs)
	}
	// sorted latencies 100,200,300,400: p90 = 370, p99 = 397
	if got.Summary.P90Ms != 370 {
		t.Fatalf("p90 want 370, got %d", got.Summary.P90Ms)
	}
	if got.Summary.P99Ms != 397 {
		t.Fatalf("p99 want 397, got %d", got.Summary.P99Ms)
	}
}

func TestAggregator_IdempotentWithoutNewRecords(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := seedEndpoint(t, store)
	now := time.Now().UTC()

	record(t, store, e.ID, domain.OutcomeUp, 120, now.Add(-time.Hour))
	record(t, store, e.ID, domain.OutcomeTimeout, 60000, now.Add(-2*time.Hour))

	agg := NewAggregator(zap.NewNop(), store, store, time.Hour)
	if err := agg.RunOnce(ctx); err != nil {
		t.Fatalf("first RunOnce: %v", err)
	}
	first, _ := store.EndpointByID(ctx, e.ID)

	if err := agg.RunOnce(ctx); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	second, _ := store.EndpointByID(ctx, e.ID)

	if first.Summary != second.Summary {
		t.Fatalf("re-run changed summary: %+v vs %+v", first.Summary, second.Summary)
	}
}

func TestAggregator_NoDataYieldsZeroes(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := seedEndpoint(t, store)

	agg := NewAggregator(zap.NewNop(), store, store, time.Hour)
	if err := agg.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	got, _ := store.EndpointByID(ctx, e.ID)
	if got.Summary != (domain.Summary{}) {
		t.Fatalf("want zero summary with no data, got %+v", got.Summary)
	}
}
