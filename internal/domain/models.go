package domain

import (
	"math"
	"time"
)

type DomainID string
type EndpointID string

type VerificationStatus string

const (
	StatusPending  VerificationStatus = "PENDING"
	StatusVerified VerificationStatus = "VERIFIED"
	StatusFailed   VerificationStatus = "FAILED"
)

// Reported statuses split the stored FAILED state by attempt budget.
// Only the verification-status query uses these; they are never persisted.
const (
	StatusFailedRetrying  VerificationStatus = "FAILED_RETRYING"
	StatusFailedExhausted VerificationStatus = "FAILED_EXHAUSTED"
)

// MonitoredDomain is an ownership-verifiable hostname gating a set of
// endpoints. Only the verification state machine mutates it after creation.
type MonitoredDomain struct {
	ID                 DomainID           `json:"id"`
	Host               string             `json:"domain"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	VerificationCode   string             `json:"verification_code"`
	Attempts           int                `json:"verification_attempts"`
	LastAttemptAt      *time.Time         `json:"last_verification_at,omitempty"`
	NextAttemptAt      time.Time          `json:"next_verification_at"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ReportedStatus folds the attempt cap into the status exposed to callers.
func (d *MonitoredDomain) ReportedStatus(maxAttempts int) VerificationStatus {
	if d.VerificationStatus == StatusFailed {
		if d.Attempts >= maxAttempts {
			return StatusFailedExhausted
		}
		return StatusFailedRetrying
	}
	return d.VerificationStatus
}

// Summary holds the denormalized 90-day figures written by the
// aggregation sweep. Derived only; never hand-edited.
type Summary struct {
	UptimePercent         int `json:"uptime_percent"`
	AverageResponseTimeMs int `json:"average_response_time_ms"`
	P90Ms                 int `json:"p90_ms"`
	P99Ms                 int `json:"p99_ms"`
}

// MonitoredEndpoint is one HTTP target under watch. The (domain, path)
// pair is unique. ClaimedUntil is the probe lease: a scheduler cycle
// claims the endpoint until the lease expires or is released, so a
// crashed worker's claim self-heals.
type MonitoredEndpoint struct {
	ID           EndpointID        `json:"id"`
	DomainID     DomainID          `json:"domain_id"`
	Name         string            `json:"name"`
	Path         string            `json:"path"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	Body         map[string]string `json:"body,omitempty"`
	ClaimedUntil *time.Time        `json:"-"`
	Summary      Summary           `json:"summary"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type Outcome string

const (
	OutcomeUp      Outcome = "UP"
	OutcomeDown    Outcome = "DOWN"
	OutcomeTimeout Outcome = "TIMEOUT"
)

// ProbeRecord is the immutable result of a single health check.
// StatusCode is 0 when no response was received.
type ProbeRecord struct {
	EndpointID     EndpointID `json:"endpoint_id"`
	Outcome        Outcome    `json:"outcome"`
	StatusCode     int        `json:"status_code"`
	ResponseTimeMs float64    `json:"response_time_ms"`
	CheckedAt      time.Time  `json:"checked_at"`
}

// DailyRollup is the per-(endpoint, calendar day) aggregate bucket.
// Day is truncated to UTC midnight.
type DailyRollup struct {
	EndpointID    EndpointID `json:"endpoint_id"`
	Day           time.Time  `json:"date"`
	TotalCount    int        `json:"total_count"`
	UpCount       int        `json:"up_count"`
	AvgResponseMs float64    `json:"avg_response_time_ms"`
	MaxResponseMs float64    `json:"max_response_time_ms"`
	UptimePercent float64    `json:"uptime_percent"`
}

// Fold incorporates one probe outcome into the bucket: counters,
// weighted running average, running max, and the derived uptime ratio.
func (r *DailyRollup) Fold(rec *ProbeRecord) {
	oldCount := float64(r.TotalCount)
	r.TotalCount++
	if rec.Outcome == OutcomeUp {
		r.UpCount++
	}
	r.AvgResponseMs = (r.AvgResponseMs*oldCount + rec.ResponseTimeMs) / float64(r.TotalCount)
	if rec.ResponseTimeMs > r.MaxResponseMs {
		r.MaxResponseMs = rec.ResponseTimeMs
	}
	r.UptimePercent = float64(r.UpCount) / float64(r.TotalCount) * 100
}

// DayOf truncates a timestamp to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RoundMs rounds a millisecond figure to the nearest integer.
func RoundMs(v float64) int {
	return int(math.Round(v))
}
