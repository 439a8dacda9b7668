// Package metrics emits job and reaper metrics through a meter.Sink with a fixed tag vocabulary.
package metrics

import (
	"strings"
	"time"

	obserrors "github.com/target/opscrm-api/internal/observability/errors"
	"github.com/target/opscrm-api/internal/observability/meter"
)

// Result constants for metric tagging.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultNoop     = "noop"
	ResultRejected = "rejected"
)

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	ServiceType string
	From        string
	To          string
	Result      string
	// Duration is the job's age when it reached a terminal status; zero otherwise.
	Duration time.Duration
	Err      error
}

// Transition renders the transition tag, e.g. "in_progress_to_completed". An empty From
// renders as "created".
func (m JobMetric) Transition() string {
	if m.From == "" {
		return "created"
	}
	return strings.ToLower(m.From) + "_to_" + strings.ToLower(m.To)
}

// EmitJobLifecycle emits job.transition for every lifecycle event and job.duration when the
// job reached a terminal status.
func EmitJobLifecycle(sink meter.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"service_type": in.ServiceType,
		"transition":   in.Transition(),
		"result":       in.Result,
	}

	if in.Err != nil && (in.Result == ResultError || in.Result == ResultRejected) {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// ReaperMetric is the outcome of one reaper purge step.
type ReaperMetric struct {
	Step    string
	Count   int64
	Elapsed time.Duration
	Err     error
}

// EmitReaperStep emits reaper.purged and reaper.duration for one step.
func EmitReaperStep(sink meter.Sink, in ReaperMetric) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	switch {
	case in.Err != nil:
		result = ResultError
	case in.Count == 0:
		result = ResultNoop
	}
	tags := map[string]string{"step": in.Step, "result": result}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("reaper.purged", in.Count, tags)
	if in.Elapsed > 0 {
		sink.Timing("reaper.duration", in.Elapsed, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
