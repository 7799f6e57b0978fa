package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/techresidents/indexsvc/internal/config"
	"github.com/techresidents/indexsvc/internal/domain"
	"github.com/techresidents/indexsvc/internal/observability"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg     config.Config
	Jobs    domain.JobStore
	DBCheck func(ctx context.Context) error
	ESCheck func(ctx context.Context) error
}

// NewServer constructs a Server with all dependencies wired.
func NewServer(cfg config.Config, jobs domain.JobStore, dbCheck, esCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Jobs: jobs, DBCheck: dbCheck, ESCheck: esCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

type indexRequest struct {
	Context string   `json:"context" validate:"required"`
	Name    string   `json:"name" validate:"required"`
	Type    string   `json:"type" validate:"required"`
	Keys    []string `json:"keys"`
	// NotBefore is an optional unix timestamp deferring processing.
	NotBefore *int64 `json:"not_before"`
}

type enqueueResponse struct {
	ID string `json:"id"`
}

// IndexHandler enqueues an update for explicit keys.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.enqueue(w, r, false)
	}
}

// IndexAllHandler enqueues an update covering every key of the target.
func (s *Server) IndexAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.enqueue(w, r, true)
	}
}

// enqueue validates the request and inserts one job row. Both endpoints
// submit update operations; the row's payload is authoritative from here on.
func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, indexAll bool) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("malformed request body: %w", domain.ErrInvalidData))
		return
	}
	if err := validateIndexRequest(req, indexAll); err != nil {
		writeError(w, err)
		return
	}

	keys := req.Keys
	if indexAll {
		keys = nil
	}
	data, err := domain.EncodeIndexOp(domain.IndexOp{
		Action: domain.ActionUpdate,
		Name:   req.Name,
		Type:   req.Type,
		Keys:   keys,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	job := domain.IndexJob{
		Context:          req.Context,
		Data:             data,
		RetriesRemaining: s.Cfg.IndexerJobMaxRetryAttempts,
	}
	if req.NotBefore != nil {
		job.NotBefore = time.Unix(*req.NotBefore, 0).UTC()
	}

	id, err := s.Jobs.Insert(r.Context(), job)
	if err != nil {
		writeError(w, fmt.Errorf("%v: %w", err, domain.ErrUnavailable))
		return
	}
	observability.JobsEnqueuedTotal.WithLabelValues("api").Inc()
	writeJSON(w, http.StatusAccepted, enqueueResponse{ID: id})
}

// validateIndexRequest checks fields in submission order: context, name,
// type, then keys. Keys are required unless the request targets all keys.
func validateIndexRequest(req indexRequest, indexAll bool) error {
	if err := getValidator().Struct(req); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			return fmt.Errorf("invalid %s: %w", fieldErrs[0].Field(), domain.ErrInvalidData)
		}
		return fmt.Errorf("%v: %w", err, domain.ErrInvalidData)
	}
	if !indexAll && len(req.Keys) == 0 {
		return fmt.Errorf("invalid keys: %w", domain.ErrInvalidData)
	}
	return nil
}

type jobResponse struct {
	ID               string     `json:"id"`
	Context          string     `json:"context"`
	Created          time.Time  `json:"created"`
	NotBefore        time.Time  `json:"not_before"`
	RetriesRemaining int        `json:"retries_remaining"`
	Owner            *string    `json:"owner"`
	Start            *time.Time `json:"start"`
	End              *time.Time `json:"end"`
	Successful       *bool      `json:"successful"`
}

// JobHandler reports the lifecycle state of one job row.
func (s *Server) JobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		job, err := s.Jobs.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, jobResponse{
			ID:               job.ID,
			Context:          job.Context,
			Created:          job.Created,
			NotBefore:        job.NotBefore,
			RetriesRemaining: job.RetriesRemaining,
			Owner:            job.Owner,
			Start:            job.Start,
			End:              job.End,
			Successful:       job.Successful,
		})
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler reports readiness of the database and the search backend.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		checks := map[string]string{"db": "ok", "es": "ok"}
		healthy := true
		if s.DBCheck != nil {
			if err := s.DBCheck(ctx); err != nil {
				checks["db"] = err.Error()
				healthy = false
			}
		}
		if s.ESCheck != nil {
			if err := s.ESCheck(ctx); err != nil {
				checks["es"] = err.Error()
				healthy = false
			}
		}
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, checks)
	}
}
