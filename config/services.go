package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ServiceMode names a long-running component this process can host.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeReaper purges cancelled jobs and retired templates on an interval.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes lists every mode in start order.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeReaper}
}

// ParseServices turns "http, reaper" into a set. Names are trimmed and case
// folded; blanks are skipped and unknown names are an error.
func ParseServices(raw string) (map[ServiceMode]bool, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("at least one service must be specified")
	}

	valid := ValidServiceModes()
	services := make(map[ServiceMode]bool, len(valid))
	for part := range strings.SplitSeq(raw, ",") {
		mode := ServiceMode(strings.ToLower(strings.TrimSpace(part)))
		if mode == "" {
			continue
		}
		if !slices.Contains(valid, mode) {
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, reaper)", mode)
		}
		services[mode] = true
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}
	return services, nil
}

// ReaperConfig controls the retention sweep.
type ReaperConfig struct {
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"15m"`

	// CancelledMaxAge is how long a CANCELLED job survives its last update.
	CancelledMaxAge time.Duration `env:"REAPER_CANCELLED_MAX_AGE" envDefault:"720h"`

	// InactiveTemplateMaxAge is how long an inactive template nothing references is kept.
	InactiveTemplateMaxAge time.Duration `env:"REAPER_INACTIVE_TEMPLATE_MAX_AGE" envDefault:"2160h"`

	// BatchSize caps rows removed per DELETE statement.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"500"`
}

// Sanitize enforces a one minute tick, one day retention floors and a batch
// size in [1, 10000].
func (r *ReaperConfig) Sanitize() {
	r.Interval = max(r.Interval, time.Minute)
	r.CancelledMaxAge = max(r.CancelledMaxAge, 24*time.Hour)
	r.InactiveTemplateMaxAge = max(r.InactiveTemplateMaxAge, 24*time.Hour)
	r.BatchSize = min(max(r.BatchSize, 1), 10000)
}
