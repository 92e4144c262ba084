// Package jobs tracks background analysis runs. Records live in memory for
// the lifetime of the server; each run gets a dedicated goroutine and a
// cancellable context.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ErrNotFound is returned for unknown job ids.
var ErrNotFound = errors.New("job not found")

// Spec describes an analysis run to start.
type Spec struct {
	SessionID string `json:"session_id"`
	Strategy  string `json:"strategy,omitempty"`
	StartPage int    `json:"start_page,omitempty"`
	EndPage   int    `json:"end_page,omitempty"`
}

// Record is the externally visible state of a job.
type Record struct {
	ID   string `json:"id"`
	Spec Spec   `json:"spec"`

	Status Status `json:"status"`

	// Progress is a whole percentage, updated after each page.
	Progress   int `json:"progress"`
	PagesDone  int `json:"pages_done"`
	PagesTotal int `json:"pages_total"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// RunFunc does the actual work of a job. It must respect ctx cancellation and
// call progress after each page.
type RunFunc func(ctx context.Context, progress func(done, total int)) error

type job struct {
	record Record
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager starts, tracks, and cancels jobs. Safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	jobs   map[string]*job
	logger *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{jobs: make(map[string]*job), logger: logger}
}

// Start registers a job and launches its run goroutine. ctx should be the
// server's lifecycle context, not a request context: jobs outlive requests and
// stop when the server shuts down.
func (m *Manager) Start(ctx context.Context, spec Spec, run RunFunc) Record {
	runCtx, cancel := context.WithCancel(ctx)
	j := &job{
		record: Record{
			ID:        uuid.New().String(),
			Spec:      spec,
			Status:    StatusQueued,
			CreatedAt: time.Now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	m.jobs[j.record.ID] = j
	m.mu.Unlock()

	rec := j.record
	go m.run(runCtx, j, run)
	return rec
}

func (m *Manager) run(ctx context.Context, j *job, run RunFunc) {
	defer close(j.done)
	defer j.cancel()

	now := time.Now().UTC()
	m.update(j, func(r *Record) {
		r.Status = StatusRunning
		r.StartedAt = &now
	})
	m.logger.Info("job started", "job_id", j.record.ID, "session_id", j.record.Spec.SessionID)

	err := run(ctx, func(done, total int) {
		m.update(j, func(r *Record) {
			r.PagesDone = done
			r.PagesTotal = total
			if total > 0 {
				r.Progress = done * 100 / total
			}
		})
	})

	finished := time.Now().UTC()
	m.update(j, func(r *Record) {
		r.CompletedAt = &finished
		switch {
		case errors.Is(err, context.Canceled) || (err != nil && ctx.Err() != nil):
			r.Status = StatusCancelled
			r.Error = context.Canceled.Error()
		case err != nil:
			r.Status = StatusFailed
			r.Error = err.Error()
		default:
			r.Status = StatusCompleted
			r.Progress = 100
		}
	})

	rec := m.snapshot(j)
	m.logger.Info("job finished", "job_id", rec.ID, "status", rec.Status, "pages_done", rec.PagesDone)
}

func (m *Manager) update(j *job, fn func(*Record)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&j.record)
}

func (m *Manager) snapshot(j *job) Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return j.record
}

// Get returns a copy of the job record.
func (m *Manager) Get(id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j.record, nil
}

// List returns all job records, newest first.
func (m *Manager) List() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j.record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Cancel requests cancellation of a running job. Cancelling a finished job is
// a no-op; the record keeps its terminal status.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	j, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	j.cancel()
	return nil
}

// Wait blocks until the job finishes or ctx expires, returning the final
// record.
func (m *Manager) Wait(ctx context.Context, id string) (Record, error) {
	m.mu.Lock()
	j, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	select {
	case <-j.done:
		return m.snapshot(j), nil
	case <-ctx.Done():
		return m.snapshot(j), ctx.Err()
	}
}
