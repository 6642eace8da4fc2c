package verify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SafalBhandari12/sysMonitoring/internal/domain"
	"github.com/SafalBhandari12/sysMonitoring/internal/repo"
)

// Verifier drives a domain through the challenge-response state machine:
// PENDING -> VERIFIED on an exact TXT match, otherwise -> FAILED with the
// next attempt scheduled by the backoff policy. FAILED stays retryable
// until the attempt cap.
type Verifier struct {
	Logger      *zap.Logger
	Domains     repo.DomainStore
	Resolver    TXTResolver
	Backoff     Backoff
	MaxAttempts int
}

func NewVerifier(logger *zap.Logger, ds repo.DomainStore, resolver TXTResolver, backoff Backoff, maxAttempts int) *Verifier {
	if maxAttempts <= 0 {
		maxAttempts = 20
	}
	if backoff == nil {
		backoff = LinearBackoff(5 * time.Minute)
	}
	return &Verifier{
		Logger:      logger,
		Domains:     ds,
		Resolver:    resolver,
		Backoff:     backoff,
		MaxAttempts: maxAttempts,
	}
}

// Verify runs one attempt for the domain with the given normalized host.
// Already-verified domains are rejected with a conflict and no mutation.
// A DNS resolution error counts as a failed attempt, same as a missing
// record: both leave the domain FAILED with the next try scheduled.
func (v *Verifier) Verify(ctx context.Context, host string) (*domain.MonitoredDomain, error) {
	d, err := v.Domains.DomainByHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if d.VerificationStatus == domain.StatusVerified {
		return nil, fmt.Errorf("domain %q already verified: %w", host, domain.ErrConflict)
	}

	matched := false
	records, err := v.Resolver.LookupTXT(ctx, d.Host)
	if err != nil {
		v.Logger.Warn("verify_dns_error", zap.String("host", d.Host), zap.Error(err))
	} else {
		expected := ExpectedRecord(d.VerificationCode)
		for _, rec := range records {
			if rec == expected {
				matched = true
				break
			}
		}
	}

	now := time.Now().UTC()
	d.Attempts++
	d.LastAttemptAt = &now
	if matched {
		d.VerificationStatus = domain.StatusVerified
		d.VerifiedAt = &now
		d.NextAttemptAt = now
	} else {
		d.VerificationStatus = domain.StatusFailed
		d.NextAttemptAt = now.Add(v.Backoff(d.Attempts))
	}

	if err := v.Domains.SaveVerification(ctx, d); err != nil {
		return nil, fmt.Errorf("save verification: %w", err)
	}

	v.Logger.Info("verify_attempt",
		zap.String("host", d.Host),
		zap.Bool("matched", matched),
		zap.Int("attempts", d.Attempts),
		zap.Time("next_attempt_at", d.NextAttemptAt),
	)
	return d, nil
}
