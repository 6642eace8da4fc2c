package stats

import (
	"context"
	"math"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/SafalBhandari12/sysMonitoring/internal/domain"
	"github.com/SafalBhandari12/sysMonitoring/internal/repo"
)

// WindowDays is the trailing window every summary figure is computed over.
const WindowDays = 90

// Aggregator recomputes each endpoint's denormalized summary: uptime from
// the rollup buckets (O(days), no raw scan) and average/p90/p99 from the
// raw latency distribution in the same window. A failure for one endpoint
// is logged and the sweep continues.
type Aggregator struct {
	Logger    *zap.Logger
	Endpoints repo.EndpointStore
	Results   repo.ResultStore
	Interval  time.Duration
}

func NewAggregator(logger *zap.Logger, es repo.EndpointStore, rs repo.ResultStore, interval time.Duration) *Aggregator {
	return &Aggregator{
		Logger:    logger,
		Endpoints: es,
		Results:   rs,
		Interval:  interval,
	}
}

// Run starts the loop. It does an immediate pass, then runs each tick.
// Stops when ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) {
	if a.Interval == 0 {
		a.Logger.Info("aggregator_disabled")
		return
	}
	t := time.NewTicker(a.Interval)
	defer t.Stop()

	a.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			a.Logger.Info("aggregator_stopped")
			return
		case <-t.C:
			a.RunOnce(ctx)
		}
	}
}

// RunOnce sweeps every endpoint. The returned error aggregates per-item
// failures for logging and tests; the sweep never aborts early.
func (a *Aggregator) RunOnce(ctx context.Context) error {
	endpoints, err := a.Endpoints.ListEndpoints(ctx)
	if err != nil {
		a.Logger.Warn("aggregate_list_error", zap.Error(err))
		return err
	}

	now := time.Now().UTC()
	var errs error
	for _, e := range endpoints {
		if err := a.aggregateOne(ctx, e.ID, now); err != nil {
			a.Logger.Warn("aggregate_endpoint_error",
				zap.String("endpoint_id", string(e.ID)),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (a *Aggregator) aggregateOne(ctx context.Context, id domain.EndpointID, now time.Time) error {
	since := now.AddDate(0, 0, -WindowDays)

	rollups, err := a.Results.RollupsSince(ctx, id, since)
	if err != nil {
		return err
	}
	var total, up int
	for _, r := range rollups {
		total += r.TotalCount
		up += r.UpCount
	}
	uptime := 0
	if total > 0 {
		uptime = int(math.Round(float64(up) / float64(total) * 100))
	}

	lats, err := a.Results.LatenciesSince(ctx, id, since)
	if err != nil {
		return err
	}
	SortSamples(lats)

	sum := domain.Summary{
		UptimePercent:         uptime,
		AverageResponseTimeMs: domain.RoundMs(Mean(lats)),
		P90Ms:                 domain.RoundMs(Percentile(lats, 0.90)),
		P99Ms:                 domain.RoundMs(Percentile(lats, 0.99)),
	}
	return a.Endpoints.SetSummary(ctx, id, sum)
}
