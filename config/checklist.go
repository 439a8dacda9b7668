package config

import "time"

// ChecklistConfig controls the template cache and checklist autosave.
type ChecklistConfig struct {
	// TemplateCacheTTL bounds how long active template listings stay cached in Redis.
	TemplateCacheTTL time.Duration `env:"TEMPLATE_CACHE_TTL" envDefault:"10m"`

	// Debounce is the quiet period the checklist tracker waits after the last toggle.
	Debounce time.Duration `env:"CHECKLIST_DEBOUNCE" envDefault:"1s"`
}

// Sanitize clamps both durations.
func (c *ChecklistConfig) Sanitize() {
	if c.TemplateCacheTTL < 10*time.Second {
		c.TemplateCacheTTL = 10 * time.Second
	}
	if c.Debounce < 100*time.Millisecond {
		c.Debounce = 100 * time.Millisecond
	}
	if c.Debounce > time.Minute {
		c.Debounce = time.Minute
	}
}
