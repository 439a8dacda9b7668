package config

import (
	"os"
	"slices"
	"strings"
)

// AppConfig is the process configuration, parsed from the environment with
// caarlos0/env. Each concern lives in its own file in this package.
type AppConfig struct {
	// IsDev enables development behavior such as the mock auth provider.
	// NODE_ENV=development or NODE_ENV=dev also turns it on.
	IsDev bool `env:"DEV" envDefault:"false"`

	Log  LogConfig
	Auth AuthConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	// Services is a comma separated list of modes to run in this process.
	Services string `env:"SERVICES" envDefault:"http"`

	Reaper        ReaperConfig
	Observability ObservabilityConfig
	Events        EventsConfig `envPrefix:"EVENTS_"`
	Checklist     ChecklistConfig
}

// Sanitize clamps loaded values into their supported ranges. Call it once
// after env.Parse.
func (c *AppConfig) Sanitize() {
	for _, s := range []interface{ Sanitize() }{
		&c.Log, &c.HTTP, &c.Auth, &c.Reaper, &c.Observability, &c.Events, &c.Checklist,
	} {
		s.Sanitize()
	}
	if !c.IsDev {
		c.IsDev = slices.Contains([]string{"development", "dev"}, strings.ToLower(os.Getenv("NODE_ENV")))
	}
}

// GetEnabledServices parses Services.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// Enabled reports whether mode is listed in Services. An unparsable list
// enables nothing.
func (c *AppConfig) Enabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	return err == nil && services[mode]
}
