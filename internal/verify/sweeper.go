package verify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/SafalBhandari12/sysMonitoring/internal/repo"
)

// Sweeper retries every due domain on a fixed interval. Domains are
// processed in fixed-size sub-batches with a barrier between batches;
// one domain's DNS failure never blocks the rest.
type Sweeper struct {
	Logger    *zap.Logger
	Domains   repo.DomainStore
	Verifier  *Verifier
	Interval  time.Duration
	Limit     int
	BatchSize int
}

func NewSweeper(logger *zap.Logger, ds repo.DomainStore, v *Verifier, interval time.Duration, limit, batchSize int) *Sweeper {
	if limit <= 0 {
		limit = 1000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Sweeper{
		Logger:    logger,
		Domains:   ds,
		Verifier:  v,
		Interval:  interval,
		Limit:     limit,
		BatchSize: batchSize,
	}
}

// Run starts the loop. It does an immediate pass, then runs each tick.
// Stops when ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if s.Interval == 0 {
		s.Logger.Info("verify_sweeper_disabled")
		return
	}
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("verify_sweeper_stopped")
			return
		case <-t.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. The returned error aggregates
// per-domain failures and is only for logging and tests; the sweep
// itself always runs to completion.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	due, err := s.Domains.DueDomains(ctx, time.Now().UTC(), s.Verifier.MaxAttempts, s.Limit)
	if err != nil {
		s.Logger.Warn("verify_sweep_list_error", zap.Error(err))
		return err
	}
	if len(due) == 0 {
		return nil
	}
	s.Logger.Info("verify_sweep_start", zap.Int("domains", len(due)))

	var mu sync.Mutex
	var errs error
	for start := 0; start < len(due); start += s.BatchSize {
		end := start + s.BatchSize
		if end > len(due) {
			end = len(due)
		}
		var wg sync.WaitGroup
		for _, d := range due[start:end] {
			d := d
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.Verifier.Verify(ctx, d.Host); err != nil {
					s.Logger.Warn("verify_sweep_domain_error",
						zap.String("host", d.Host),
						zap.Error(err),
					)
					mu.Lock()
					errs = multierr.Append(errs, err)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
	}
	return errs
}
