package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SafalBhandari12/sysMonitoring/internal/domain"
	"github.com/SafalBhandari12/sysMonitoring/internal/stats"
	"github.com/SafalBhandari12/sysMonitoring/internal/verify"
)

type registerDomainRequest struct {
	Domain string `json:"domain"`
}

type registerDomainResponse struct {
	ID                 domain.DomainID           `json:"id"`
	Domain             string                    `json:"domain"`
	VerificationCode   string                    `json:"verificationCode"`
	VerificationStatus domain.VerificationStatus `json:"verificationStatus"`
}

func (s *Server) handleRegisterDomain(w http.ResponseWriter, r *http.Request) {
	var req registerDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(w, fmt.Errorf("invalid request body: %w", domain.ErrValidation))
		return
	}
	host, err := domain.NormalizeHost(req.Domain)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	now := time.Now().UTC()
	d := &domain.MonitoredDomain{
		Host:               host,
		VerificationStatus: domain.StatusPending,
		VerificationCode:   uuid.NewString(),
		NextAttemptAt:      now,
	}
	if err := s.Domains.AddDomain(r.Context(), d); err != nil {
		s.writeErr(w, err)
		return
	}

	s.Logger.Info("domain_registered", zap.String("host", d.Host), zap.String("id", string(d.ID)))
	writeJSON(w, http.StatusCreated, registerDomainResponse{
		ID:                 d.ID,
		Domain:             d.Host,
		VerificationCode:   d.VerificationCode,
		VerificationStatus: d.VerificationStatus,
	})
}

type verificationStatusResponse struct {
	Domain       string                    `json:"domain"`
	Status       domain.VerificationStatus `json:"status"`
	Message      string                    `json:"message,omitempty"`
	Method       string                    `json:"method,omitempty"`
	RecordName   string                    `json:"recordName,omitempty"`
	RecordValue  string                    `json:"recordValue,omitempty"`
	Instructions []string                  `json:"instructions,omitempty"`
}

func (s *Server) handleVerificationStatus(w http.ResponseWriter, r *http.Request) {
	host, err := domain.NormalizeHost(chi.URLParam(r, "host"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	d, err := s.Domains.DomainByHost(r.Context(), host)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	if d.VerificationStatus == domain.StatusVerified {
		writeJSON(w, http.StatusOK, verificationStatusResponse{
			Domain:  d.Host,
			Status:  d.VerificationStatus,
			Message: "domain is verified",
		})
		return
	}

	writeJSON(w, http.StatusOK, verificationStatusResponse{
		Domain:      d.Host,
		Status:      d.ReportedStatus(s.Verifier.MaxAttempts),
		Method:      "DNS TXT Record",
		RecordName:  d.Host,
		RecordValue: verify.ExpectedRecord(d.VerificationCode),
		Instructions: []string{
			"Add a TXT record to your domain's DNS settings",
			fmt.Sprintf("Record name: %s", d.Host),
			fmt.Sprintf("Record value: %s", verify.ExpectedRecord(d.VerificationCode)),
			"Wait for DNS propagation, then trigger verification",
		},
	})
}

type verifyDomainResponse struct {
	ID         domain.DomainID           `json:"id"`
	Domain     string                    `json:"domain"`
	Status     domain.VerificationStatus `json:"status"`
	Attempts   int                       `json:"attempts"`
	VerifiedAt *time.Time                `json:"verifiedAt,omitempty"`
}

func (s *Server) handleVerifyDomain(w http.ResponseWriter, r *http.Request) {
	host, err := domain.NormalizeHost(chi.URLParam(r, "host"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	d, err := s.Verifier.Verify(r.Context(), host)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyDomainResponse{
		ID:         d.ID,
		Domain:     d.Host,
		Status:     d.ReportedStatus(s.Verifier.MaxAttempts),
		Attempts:   d.Attempts,
		VerifiedAt: d.VerifiedAt,
	})
}

type registerEndpointRequest struct {
	Name    string            `json:"name"`
	Path    string            `json:"path"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    map[string]string `json:"body,omitempty"`
}

func (s *Server) handleRegisterEndpoint(w http.ResponseWriter, r *http.Request) {
	var req registerEndpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(w, fmt.Errorf("invalid request body: %w", domain.ErrValidation))
		return
	}
	if req.Name == "" {
		s.writeErr(w, fmt.Errorf("name is required: %w", domain.ErrValidation))
		return
	}
	if !domain.ValidPath(req.Path) {
		s.writeErr(w, fmt.Errorf("invalid path %q: %w", req.Path, domain.ErrValidation))
		return
	}
	if !domain.ValidMethod(req.Method) {
		s.writeErr(w, fmt.Errorf("invalid method %q: %w", req.Method, domain.ErrValidation))
		return
	}

	e := &domain.MonitoredEndpoint{
		DomainID: domain.DomainID(chi.URLParam(r, "domainID")),
		Name:     req.Name,
		Path:     req.Path,
		Method:   req.Method,
		Headers:  req.Headers,
		Body:     req.Body,
	}
	if err := s.Endpoints.AddEndpoint(r.Context(), e); err != nil {
		s.writeErr(w, err)
		return
	}

	s.Logger.Info("endpoint_registered",
		zap.String("id", string(e.ID)),
		zap.String("domain_id", string(e.DomainID)),
		zap.String("path", e.Path),
	)
	writeJSON(w, http.StatusCreated, e)
}

type dailyStat struct {
	Uptime float64 `json:"uptime"`
	Date   string  `json:"date"`
}

type endpointDetailsResponse struct {
	Uptime              int         `json:"uptime"`
	AverageResponseTime int         `json:"averageResponseTime"`
	P90                 int         `json:"p90"`
	P99                 int         `json:"p99"`
	DailyStats          []dailyStat `json:"dailyStats"`
}

func (s *Server) handleEndpointDetails(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		s.writeErr(w, fmt.Errorf("url query parameter is required: %w", domain.ErrValidation))
		return
	}
	u, err := url.Parse(raw)
	if err != nil {
		s.writeErr(w, fmt.Errorf("invalid url %q: %w", raw, domain.ErrValidation))
		return
	}
	host, err := domain.NormalizeHost(u.Host)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	e, err := s.Endpoints.EndpointByURL(r.Context(), host, path)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	rollups, err := s.Results.RecentRollups(r.Context(), e.ID, stats.WindowDays)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	daily := make([]dailyStat, 0, len(rollups))
	for _, ru := range rollups {
		daily = append(daily, dailyStat{
			Uptime: ru.UptimePercent,
			Date:   ru.Day.Format("2006-01-02"),
		})
	}
	writeJSON(w, http.StatusOK, endpointDetailsResponse{
		Uptime:              e.Summary.UptimePercent,
		AverageResponseTime: e.Summary.AverageResponseTimeMs,
		P90:                 e.Summary.P90Ms,
		P99:                 e.Summary.P99Ms,
		DailyStats:          daily,
	})
}

func (s *Server) handleProbeSweep(w http.ResponseWriter, r *http.Request) {
	go s.ProbeSweep(context.Background())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sweep started"})
}

func (s *Server) handleVerifySweep(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := s.VerifySweep(context.Background()); err != nil {
			s.Logger.Warn("verification_sweep_errors", zap.Error(err))
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sweep started"})
}

func (s *Server) handleAggregateSweep(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := s.AggregateSweep(context.Background()); err != nil {
			s.Logger.Warn("aggregation_sweep_errors", zap.Error(err))
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sweep started"})
}
