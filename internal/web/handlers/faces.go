package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kozaktomas/event-faces/internal/config"
	"github.com/kozaktomas/event-faces/internal/constants"
	"github.com/kozaktomas/event-faces/internal/events"
	"github.com/kozaktomas/event-faces/internal/facematch"
	"github.com/kozaktomas/event-faces/internal/storage"
)

// codeEventNotFound is reported when the event registry does not know the scope.
const codeEventNotFound = "event_not_found"

// EventResolver checks that a scope refers to a registered event.
type EventResolver interface {
	Resolve(ctx context.Context, scope facematch.Scope) (*events.Event, error)
}

// FacesHandler starts and tracks face match and clustering jobs.
type FacesHandler struct {
	engine     *facematch.Engine
	store      storage.Store
	registry   EventResolver
	matching   config.MatchingConfig
	jobManager *JobManager
	logger     *zap.Logger
}

// NewFacesHandler creates a new faces handler. A nil registry disables event lookup.
func NewFacesHandler(cfg *config.Config, engine *facematch.Engine, store storage.Store, registry EventResolver, jm *JobManager, logger *zap.Logger) *FacesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacesHandler{
		engine:     engine,
		store:      store,
		registry:   registry,
		matching:   cfg.Matching,
		jobManager: jm,
		logger:     logger,
	}
}

// MatchRequest represents a match start request
type MatchRequest struct {
	Owner     string   `json:"owner"`
	EventID   string   `json:"event_id"`
	SourceKey string   `json:"source_key"`
	Threshold *float64 `json:"threshold,omitempty"`
	BatchSize *int     `json:"batch_size,omitempty"`
}

// ClusterRequest represents a cluster start request
type ClusterRequest struct {
	Owner          string   `json:"owner"`
	EventID        string   `json:"event_id"`
	GroupThreshold *float64 `json:"group_threshold,omitempty"`
}

func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondErrorCode(w, http.StatusBadRequest, facematch.CodeInvalidInput, errInvalidRequestBody)
		return false
	}
	return true
}

func validThreshold(t *float64) bool {
	return t == nil || (*t >= 0 && *t <= 100)
}

// StartMatch starts a new match job
func (h *FacesHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	scope := facematch.Scope{Owner: req.Owner, EventID: req.EventID}
	if err := scope.Validate(); err != nil {
		respondErrorCode(w, http.StatusBadRequest, facematch.CodeInvalidInput, err.Error())
		return
	}
	if strings.TrimSpace(req.SourceKey) == "" {
		respondErrorCode(w, http.StatusBadRequest, facematch.CodeInvalidInput, "source_key is required")
		return
	}
	if !validThreshold(req.Threshold) {
		respondErrorCode(w, http.StatusBadRequest, facematch.CodeInvalidInput, "threshold must be within [0,100]")
		return
	}
	if req.BatchSize != nil && *req.BatchSize < 1 {
		respondErrorCode(w, http.StatusBadRequest, facematch.CodeInvalidInput, "batch_size must be at least 1")
		return
	}

	opts := []facematch.MatchOption{
		facematch.WithThreshold(h.matching.MatchThreshold),
		facematch.WithBatchSize(h.matching.BatchSize),
	}
	if req.Threshold != nil {
		opts = append(opts, facematch.WithThreshold(*req.Threshold))
	}
	if req.BatchSize != nil {
		opts = append(opts, facematch.WithBatchSize(*req.BatchSize))
	}

	job := h.jobManager.CreateJob(uuid.New().String(), JobKindMatch, scope)
	go h.runMatchJob(job, scope, req.SourceKey, opts)

	respondJSON(w, http.StatusAccepted, job.View())
}

// StartCluster starts a new clustering job
func (h *FacesHandler) StartCluster(w http.ResponseWriter, r *http.Request) {
	var req ClusterRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	scope := facematch.Scope{Owner: req.Owner, EventID: req.EventID}
	if err := scope.Validate(); err != nil {
		respondErrorCode(w, http.StatusBadRequest, facematch.CodeInvalidInput, err.Error())
		return
	}
	if !validThreshold(req.GroupThreshold) {
		respondErrorCode(w, http.StatusBadRequest, facematch.CodeInvalidInput, "group_threshold must be within [0,100]")
		return
	}

	threshold := h.matching.GroupThreshold
	if req.GroupThreshold != nil {
		threshold = *req.GroupThreshold
	}

	job := h.jobManager.CreateJob(uuid.New().String(), JobKindCluster, scope)
	go h.runClusterJob(job, scope, threshold)

	respondJSON(w, http.StatusAccepted, job.View())
}

// loadPool resolves the event and lists its images.
func (h *FacesHandler) loadPool(ctx context.Context, scope facematch.Scope) ([]facematch.CandidateImage, error) {
	if h.registry != nil {
		if _, err := h.registry.Resolve(ctx, scope); err != nil {
			return nil, err
		}
	}
	return storage.Candidates(ctx, h.store, scope)
}

func (h *FacesHandler) runMatchJob(job *Job, scope facematch.Scope, sourceKey string, opts []facematch.MatchOption) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := h.logger.With(zap.String("job", job.ID()), zap.String("owner", sanitizeForLog(scope.Owner)))

	candidates, err := h.loadPool(ctx, scope)
	if err != nil {
		h.failJob(job, log, err, nil)
		return
	}
	job.start(cancel, len(candidates))

	opts = append(opts, facematch.WithProgress(job.progress))
	report, err := h.engine.RunMatch(ctx, scope, sourceKey, candidates, opts...)
	if err != nil {
		var partial any
		if report != nil {
			partial = report
		}
		h.failJob(job, log, err, partial)
		return
	}
	job.finish(report)
}

func (h *FacesHandler) runClusterJob(job *Job, scope facematch.Scope, threshold float64) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := h.logger.With(zap.String("job", job.ID()), zap.String("owner", sanitizeForLog(scope.Owner)))

	candidates, err := h.loadPool(ctx, scope)
	if err != nil {
		h.failJob(job, log, err, nil)
		return
	}
	job.start(cancel, len(candidates))

	partition, err := h.engine.RunClustering(ctx, scope, candidates,
		facematch.WithGroupThreshold(threshold),
		facematch.WithClusterProgress(job.progress))
	if err != nil {
		h.failJob(job, log, err, nil)
		return
	}
	job.finish(partition.View())
}

func (h *FacesHandler) failJob(job *Job, log *zap.Logger, err error, partial any) {
	if errors.Is(err, context.Canceled) {
		return
	}
	code := jobErrorCode(err)
	log.Warn("job failed", zap.String("code", code), zap.Error(err))
	job.fail(code, err.Error(), partial)
}

func jobErrorCode(err error) string {
	if errors.Is(err, events.ErrEventNotFound) {
		return codeEventNotFound
	}
	return facematch.ErrorCode(err)
}

// Status returns the status of a job
func (h *FacesHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, job.View())
}

// List returns all known jobs
func (h *FacesHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobManager.ListJobs()
	views := make([]JobView, len(jobs))
	for i, job := range jobs {
		views[i] = job.View()
		views[i].Result = nil
	}
	respondJSON(w, http.StatusOK, views)
}

// Events streams job events via SSE
func (h *FacesHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamJobEvents(w, r, h.jobManager)
}

// Cancel cancels a job
func (h *FacesHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	if !job.Cancel() {
		respondError(w, http.StatusConflict, "job already finished")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}
