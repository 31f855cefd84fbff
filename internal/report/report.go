// Package report turns per-intent outcomes into the run-level artifact
// returned to callers, and renders it for the terminal.
package report

import (
	"github.com/clouddesk/tenantctl/internal/model"
)

// Aggregate computes per-status counts over the outcomes, preserving input
// order. Pure function: no I/O, no mutation of the input.
func Aggregate(outcomes []model.Outcome) *model.RunResult {
	result := &model.RunResult{
		Outcomes: outcomes,
		Counts:   make(map[model.Status]int, 8),
	}
	for _, o := range outcomes {
		result.Counts[o.Status]++
	}
	return result
}
