package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/SafalBhandari12/sysMonitoring/internal/domain"
)

// Request describes one outbound health check.
type Request struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    map[string]string
}

// Result is the classified outcome of a single probe.
type Result struct {
	Outcome        domain.Outcome
	StatusCode     int
	ResponseTimeMs float64
}

// Prober issues exactly one outbound request per Execute call with a hard
// timeout. All failure modes are encoded in the Result; it never returns
// an error, so callers proceed uniformly. Retry policy, if any, lives in
// the caller.
type Prober struct {
	Client  *http.Client
	Timeout time.Duration
}

func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Prober{
		Client:  &http.Client{},
		Timeout: timeout,
	}
}

// Execute performs the request and classifies the outcome:
// 2xx -> UP; any other completed response -> DOWN with its status code;
// timeout -> TIMEOUT with a synthetic 408 and elapsed-to-abort latency;
// any other transport failure -> DOWN with status code 0.
func (p *Prober) Execute(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		b, _ := json.Marshal(req.Body)
		body = bytes.NewReader(b)
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, cacheBust(req.URL), body)
	if err != nil {
		return Result{Outcome: domain.OutcomeDown, StatusCode: 0}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := p.Client.Do(httpReq)
	elapsed := time.Since(start).Seconds() * 1000
	if err != nil {
		if isTimeout(err) {
			return Result{Outcome: domain.OutcomeTimeout, StatusCode: http.StatusRequestTimeout, ResponseTimeMs: elapsed}
		}
		return Result{Outcome: domain.OutcomeDown, StatusCode: 0, ResponseTimeMs: elapsed}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	out := domain.OutcomeDown
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		out = domain.OutcomeUp
	}
	return Result{Outcome: out, StatusCode: resp.StatusCode, ResponseTimeMs: elapsed}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}

// cacheBust appends a timestamp query parameter so intermediaries can't
// serve a cached response for the health check.
func cacheBust(raw string) string {
	sep := "?"
	if u, err := url.Parse(raw); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_t=%d", raw, sep, time.Now().UnixMilli())
}
