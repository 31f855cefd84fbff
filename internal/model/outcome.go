package model

import (
	"time"
)

// Status describes the terminal state of one intent after a reconciliation pass.
type Status string

const (
	// StatusCreated marks a resource created (and, where applicable, verified) this run.
	StatusCreated Status = "created"
	// StatusAlreadyExists marks a resource that was present before the run.
	StatusAlreadyExists Status = "already_exists"
	// StatusRemoved marks a resource removed this run.
	StatusRemoved Status = "removed"
	// StatusNotFound marks a removal target that was already absent.
	StatusNotFound Status = "not_found"
	// StatusFailed marks an intent whose driver call or verification failed.
	StatusFailed Status = "failed"
	// StatusCancelled marks an intent interrupted by run-level cancellation.
	StatusCancelled Status = "cancelled"
	// StatusWouldCreate indicates dry-run would create the resource.
	StatusWouldCreate Status = "would_create"
	// StatusWouldRemove indicates dry-run would remove the resource.
	StatusWouldRemove Status = "would_remove"
)

// Outcome captures the terminal state of a single intent. Exactly one is
// produced per intent per run.
type Outcome struct {
	Key       string
	Type      string
	Status    Status
	Detail    string
	Error     error
	Duration  time.Duration
	Timestamp time.Time
}

// Failed reports whether the outcome represents a failure the caller may
// want to surface as a non-zero verdict.
func (o Outcome) Failed() bool {
	return o.Status == StatusFailed || o.Status == StatusCancelled
}

// RunResult is the terminal artifact of one reconciliation pass: the ordered
// outcomes plus counts per status. Read-only after construction.
type RunResult struct {
	Outcomes []Outcome
	Counts   map[Status]int
	Duration time.Duration
}

// FailedCount returns the number of failed or cancelled outcomes.
func (r *RunResult) FailedCount() int {
	if r == nil {
		return 0
	}
	return r.Counts[StatusFailed] + r.Counts[StatusCancelled]
}
