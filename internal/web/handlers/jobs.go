package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/event-faces/internal/constants"
	"github.com/kozaktomas/event-faces/internal/facematch"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobKind is the operation a job runs.
type JobKind string

const (
	JobKindMatch   JobKind = "match"
	JobKindCluster JobKind = "cluster"
)

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ProgressData is the payload of "progress" events.
type ProgressData struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Job is an async match or cluster run over one event.
type Job struct {
	EventBroadcaster

	id        string
	kind      JobKind
	scope     facematch.Scope
	status    JobStatus
	processed int
	total     int
	errMsg    string
	errCode   string
	startedAt time.Time
	endedAt   *time.Time
	result    any
}

// JobView is the JSON representation of a job.
type JobView struct {
	ID          string     `json:"id"`
	Kind        JobKind    `json:"kind"`
	Owner       string     `json:"owner"`
	EventID     string     `json:"event_id"`
	Status      JobStatus  `json:"status"`
	Processed   int        `json:"processed"`
	Total       int        `json:"total"`
	Error       string     `json:"error,omitempty"`
	ErrorCode   string     `json:"error_code,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Result      any        `json:"result,omitempty"`
}

// ID returns the job ID.
func (j *Job) ID() string {
	return j.id
}

// GetStatus returns the current job status.
func (j *Job) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// View returns a consistent snapshot of the job.
func (j *Job) View() JobView {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return JobView{
		ID:          j.id,
		Kind:        j.kind,
		Owner:       j.scope.Owner,
		EventID:     j.scope.EventID,
		Status:      j.status,
		Processed:   j.processed,
		Total:       j.total,
		Error:       j.errMsg,
		ErrorCode:   j.errCode,
		StartedAt:   j.startedAt,
		CompletedAt: j.endedAt,
		Result:      j.result,
	}
}

// Cancel cancels the job via context and sends a cancelled event.
// Finished jobs are left untouched.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	if isJobTerminal(j.status) {
		j.mu.Unlock()
		return false
	}
	now := time.Now()
	j.status = JobStatusCancelled
	j.endedAt = &now
	cancel := j.cancel
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
	return true
}

// start marks the job running and installs its cancel func.
func (j *Job) start(cancel context.CancelFunc, total int) {
	j.mu.Lock()
	j.cancel = cancel
	j.total = total
	if j.status == JobStatusCancelled {
		j.mu.Unlock()
		cancel()
		return
	}
	j.status = JobStatusRunning
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "started", Data: ProgressData{Total: total}})
}

func (j *Job) progress(processed, total int) {
	j.mu.Lock()
	j.processed = processed
	j.total = total
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "progress", Data: ProgressData{Processed: processed, Total: total}})
}

// finish records the result of a successful run.
func (j *Job) finish(result any) {
	now := time.Now()
	j.mu.Lock()
	if j.status == JobStatusCancelled {
		j.mu.Unlock()
		return
	}
	j.status = JobStatusCompleted
	j.result = result
	j.endedAt = &now
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "completed", Data: result})
}

// fail records a failed run. A partial result, if any, is kept for inspection.
func (j *Job) fail(code, message string, partial any) {
	now := time.Now()
	j.mu.Lock()
	if j.status == JobStatusCancelled {
		j.mu.Unlock()
		return
	}
	j.status = JobStatusFailed
	j.errCode = code
	j.errMsg = message
	j.result = partial
	j.endedAt = &now
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: "job_error", Code: code, Message: message})
}

// JobManager manages async jobs.
type JobManager struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*Job),
	}
}

// CreateJob registers a pending job.
func (m *JobManager) CreateJob(id string, kind JobKind, scope facematch.Scope) *Job {
	job := &Job{
		id:        id,
		kind:      kind,
		scope:     scope,
		status:    JobStatusPending,
		startedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// ListJobs returns all jobs, oldest first.
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	m.mu.RUnlock()

	sort.Slice(jobs, func(a, b int) bool { return jobs[a].startedAt.Before(jobs[b].startedAt) })
	return jobs
}

// PruneFinished removes terminal jobs that ended before cutoff and returns how many were removed.
func (m *JobManager) PruneFinished(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, job := range m.jobs {
		v := job.View()
		if isJobTerminal(v.Status) && v.CompletedAt != nil && v.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}
