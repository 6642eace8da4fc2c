package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SafalBhandari12/sysMonitoring/internal/domain"
	"github.com/SafalBhandari12/sysMonitoring/internal/probe"
	"github.com/SafalBhandari12/sysMonitoring/internal/repo"
)

// Executor performs one health check. Satisfied by *probe.Prober.
type Executor interface {
	Execute(ctx context.Context, req probe.Request) probe.Result
}

// Prober drives the probe cycle: each tick it selects due endpoints under
// verified domains (least-recently-updated first, capped per cycle) and
// works through them in fixed-size batches. Every endpoint in a batch is
// probed concurrently and the batch is barriered before the next starts,
// bounding peak fan-out to the batch size.
type Prober struct {
	Logger    *zap.Logger
	Endpoints repo.EndpointStore
	Results   repo.ResultStore
	Executor  Executor
	Interval  time.Duration
	CycleCap  int
	BatchSize int
	LeaseTTL  time.Duration
}

func NewProber(
	logger *zap.Logger,
	es repo.EndpointStore,
	rs repo.ResultStore,
	executor Executor,
	interval time.Duration,
	cycleCap int,
	batchSize int,
	leaseTTL time.Duration,
) *Prober {
	if cycleCap <= 0 {
		cycleCap = 100
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	if leaseTTL <= 0 {
		leaseTTL = 10 * time.Minute
	}
	return &Prober{
		Logger:    logger,
		Endpoints: es,
		Results:   rs,
		Executor:  executor,
		Interval:  interval,
		CycleCap:  cycleCap,
		BatchSize: batchSize,
		LeaseTTL:  leaseTTL,
	}
}

// Run starts the loop. It does an immediate pass, then runs each tick.
// Stops when ctx is cancelled.
func (p *Prober) Run(ctx context.Context) {
	if p.Interval == 0 {
		p.Logger.Info("prober_disabled")
		return
	}
	t := time.NewTicker(p.Interval)
	defer t.Stop()

	p.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			p.Logger.Info("prober_stopped")
			return
		case <-t.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single probing cycle. Failures for individual
// endpoints are logged and never abort the cycle.
func (p *Prober) RunOnce(ctx context.Context) {
	targets, err := p.Endpoints.DueEndpoints(ctx, time.Now().UTC(), p.CycleCap)
	if err != nil {
		p.Logger.Warn("probe_cycle_list_error", zap.Error(err))
		return
	}
	if len(targets) == 0 {
		return
	}
	p.Logger.Info("probe_cycle_start", zap.Int("endpoints", len(targets)))

	for start := 0; start < len(targets); start += p.BatchSize {
		end := start + p.BatchSize
		if end > len(targets) {
			end = len(targets)
		}
		var wg sync.WaitGroup
		for _, tgt := range targets[start:end] {
			tgt := tgt
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.checkOne(ctx, tgt)
			}()
		}
		wg.Wait()
	}
}

// checkOne claims the endpoint's lease, probes it, records the outcome,
// and always releases the lease, no matter what failed in between.
func (p *Prober) checkOne(ctx context.Context, tgt repo.ProbeTarget) {
	claimed, err := p.Endpoints.ClaimEndpoint(ctx, tgt.ID, time.Now().UTC().Add(p.LeaseTTL))
	if err != nil {
		p.Logger.Warn("probe_claim_error", zap.String("endpoint_id", string(tgt.ID)), zap.Error(err))
		return
	}
	if !claimed {
		// another cycle still holds the lease; this endpoint waits its turn
		return
	}
	defer func() {
		if err := p.Endpoints.ReleaseEndpoint(ctx, tgt.ID); err != nil {
			p.Logger.Warn("probe_release_error", zap.String("endpoint_id", string(tgt.ID)), zap.Error(err))
		}
	}()

	out := p.Executor.Execute(ctx, probe.Request{
		URL:     domain.ProbeURL(tgt.Host, tgt.Path),
		Method:  tgt.Method,
		Headers: tgt.Headers,
		Body:    tgt.Body,
	})

	rec := &domain.ProbeRecord{
		EndpointID:     tgt.ID,
		Outcome:        out.Outcome,
		StatusCode:     out.StatusCode,
		ResponseTimeMs: out.ResponseTimeMs,
		CheckedAt:      time.Now().UTC(),
	}
	if err := p.Results.RecordProbe(ctx, rec); err != nil {
		p.Logger.Warn("probe_record_error",
			zap.String("endpoint_id", string(tgt.ID)),
			zap.String("host", tgt.Host),
			zap.Error(err),
		)
		return
	}
	p.Logger.Debug("probe_checked",
		zap.String("endpoint_id", string(tgt.ID)),
		zap.String("host", tgt.Host),
		zap.String("outcome", string(out.Outcome)),
		zap.Int("status", out.StatusCode),
		zap.Float64("latency_ms", out.ResponseTimeMs),
	)
}
