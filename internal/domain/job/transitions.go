// Package job holds the pure job lifecycle rules: which status changes are legal and who may
// request them. Nothing here performs I/O.
package job

import (
	"fmt"
	"strings"

	"github.com/target/opscrm-api/internal/domain/model"
)

// transitions lists the forward, single-hop moves. ON_HOLD ⇄ IN_PROGRESS is the only cycle.
// Terminal statuses have no entry.
//
//nolint:gochecknoglobals // fixed lookup table
var transitions = map[model.JobStatus][]model.JobStatus{
	model.JobStatusNew:        {model.JobStatusAssigned, model.JobStatusCancelled},
	model.JobStatusAssigned:   {model.JobStatusInProgress, model.JobStatusCancelled},
	model.JobStatusInProgress: {model.JobStatusCompleted, model.JobStatusOnHold, model.JobStatusCancelled},
	model.JobStatusOnHold:     {model.JobStatusInProgress, model.JobStatusCancelled},
}

// IsTerminal reports whether s accepts no further status change.
func IsTerminal(s model.JobStatus) bool {
	switch s.Canonical() {
	case model.JobStatusCompleted, model.JobStatusCancelled:
		return true
	default:
		return false
	}
}

// IsCompleted reports whether s is COMPLETED or its legacy alias.
func IsCompleted(s model.JobStatus) bool {
	return s.Canonical() == model.JobStatusCompleted
}

// ValidNextStatuses returns the statuses reachable from current in one step.
// The result is a fresh slice; terminal and unknown statuses yield an empty one.
func ValidNextStatuses(current model.JobStatus) []model.JobStatus {
	next := transitions[current.Canonical()]
	out := make([]model.JobStatus, len(next))
	copy(out, next)
	return out
}

// IsValidTransition reports whether current may move to requested. Re-requesting the
// current status is always accepted, terminal statuses included.
func IsValidTransition(current, requested model.JobStatus) bool {
	cur, req := current.Canonical(), requested.Canonical()
	if cur == req {
		return true
	}
	for _, s := range transitions[cur] {
		if s == req {
			return true
		}
	}
	return false
}

// ExplainInvalidTransition describes why current cannot move to requested.
func ExplainInvalidTransition(current, requested model.JobStatus) string {
	switch current.Canonical() {
	case model.JobStatusCompleted:
		return "job already completed"
	case model.JobStatusCancelled:
		return "job already cancelled"
	}

	next := ValidNextStatuses(current)
	names := make([]string, len(next))
	for i, s := range next {
		names[i] = string(s)
	}
	return fmt.Sprintf("cannot change status from %s to %s; valid next statuses: %s",
		current, requested, strings.Join(names, ", "))
}
