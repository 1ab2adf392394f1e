package migration

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/vecspace/internal/domain"
	"github.com/kailas-cloud/vecspace/internal/domain/namespace"
)

// InterruptedMessage is recorded on tasks found running at startup.
const InterruptedMessage = "interrupted"

// Status is the migration task state.
type Status string

const (
	// StatusPending is a queued task waiting for a worker.
	StatusPending Status = "pending"
	// StatusRunning is a task owned by a worker.
	StatusRunning Status = "running"
	// StatusCompleted is terminal success.
	StatusCompleted Status = "completed"
	// StatusFailed is terminal failure; the task carries an error message.
	StatusFailed Status = "failed"
)

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive reports whether s blocks another migration on the same source.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusRunning
}

// CanTransition reports whether from -> to is allowed.
// pending -> running -> {completed | failed}; pending -> failed on recovery.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusFailed
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Task is a durable bulk move of vector mappings between two collections.
type Task struct {
	id           string
	source       string
	target       string
	status       Status
	progress     int
	total        int64
	moved        int64
	errorMessage string
	createdAt    int64
	startedAt    int64
	completedAt  int64
}

// New validates the endpoints and creates a pending task.
func New(source, target string) (Task, error) {
	if err := namespace.ValidateName(source); err != nil {
		return Task{}, fmt.Errorf("%w: source: %w", domain.ErrInvalidSpec, err)
	}
	if err := namespace.ValidateName(target); err != nil {
		return Task{}, fmt.Errorf("%w: target: %w", domain.ErrInvalidSpec, err)
	}
	if source == target {
		return Task{}, fmt.Errorf("%w: source and target are both %q", domain.ErrInvalidSpec, source)
	}
	return Task{
		id:        uuid.NewString(),
		source:    source,
		target:    target,
		status:    StatusPending,
		createdAt: time.Now().UnixMilli(),
	}, nil
}

// State is the full persisted form of a Task.
type State struct {
	ID           string
	Source       string
	Target       string
	Status       Status
	Progress     int
	Total        int64
	Moved        int64
	ErrorMessage string
	CreatedAt    int64
	StartedAt    int64
	CompletedAt  int64
}

// Reconstruct creates a Task without validation (storage hydration).
func Reconstruct(s State) Task {
	return Task{
		id:           s.ID,
		source:       s.Source,
		target:       s.Target,
		status:       s.Status,
		progress:     s.Progress,
		total:        s.Total,
		moved:        s.Moved,
		errorMessage: s.ErrorMessage,
		createdAt:    s.CreatedAt,
		startedAt:    s.StartedAt,
		completedAt:  s.CompletedAt,
	}
}

// State returns the persisted form of the task.
func (t Task) State() State {
	return State{
		ID:           t.id,
		Source:       t.source,
		Target:       t.target,
		Status:       t.status,
		Progress:     t.progress,
		Total:        t.total,
		Moved:        t.moved,
		ErrorMessage: t.errorMessage,
		CreatedAt:    t.createdAt,
		StartedAt:    t.startedAt,
		CompletedAt:  t.completedAt,
	}
}

// ID returns the task id.
func (t Task) ID() string { return t.id }

// Source returns the source collection.
func (t Task) Source() string { return t.source }

// Target returns the target collection.
func (t Task) Target() string { return t.target }

// Status returns the current state.
func (t Task) Status() Status { return t.status }

// Progress returns 0..100.
func (t Task) Progress() int { return t.progress }

// Total returns the source row count captured when the task started.
func (t Task) Total() int64 { return t.total }

// Moved returns the number of mappings moved so far.
func (t Task) Moved() int64 { return t.moved }

// ErrorMessage is non-empty iff the task failed.
func (t Task) ErrorMessage() string { return t.errorMessage }

// CreatedAt returns the enqueue timestamp (unix millis).
func (t Task) CreatedAt() int64 { return t.createdAt }

// StartedAt returns the start timestamp (unix millis), 0 while pending.
func (t Task) StartedAt() int64 { return t.startedAt }

// CompletedAt returns the terminal timestamp (unix millis), 0 while active.
func (t Task) CompletedAt() int64 { return t.completedAt }

// Involves reports whether the task reads from or writes to collection.
func (t Task) Involves(collection string) bool {
	return t.source == collection || t.target == collection
}

// Progress computes a percentage of moved over a start-time total.
// It never exceeds 100; an empty source counts as done.
func Progress(moved, total int64) int {
	if total <= 0 {
		return 100
	}
	p := int(moved * 100 / total)
	return min(max(p, 0), 100)
}
