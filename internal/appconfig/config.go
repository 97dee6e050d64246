// Package appconfig loads the arena duel battle server's process
// configuration: listen address, database path, uploads directory,
// and the tick/liveness/cleanup intervals spec.md §4/§5 name. Grounded
// on the teacher's internal/config package, generalized from several
// per-game YAML configs (FlappyConfig, DinoConfig) to one server-wide
// config.
package appconfig

import "time"

// ServerConfig is the arena duel server's full runtime configuration.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	DBPath     string `yaml:"db_path"`
	UploadsDir string `yaml:"uploads_dir"`

	TickHz                 int `yaml:"tick_hz"`
	LivenessProbeSeconds   int `yaml:"liveness_probe_seconds"`
	LivenessTimeoutSeconds int `yaml:"liveness_timeout_seconds"`
	MatchValiditySeconds   int `yaml:"match_validity_seconds"`
	CleanupPeriodSeconds   int `yaml:"cleanup_period_seconds"`
}

// Default returns the built-in configuration, used when no config file
// is found anywhere in the search order.
func Default() ServerConfig {
	return ServerConfig{
		Addr:                   ":8080",
		DBPath:                 "~/.arenaduel/models.db",
		UploadsDir:             "uploads/models",
		TickHz:                 60,
		LivenessProbeSeconds:   5,
		LivenessTimeoutSeconds: 10,
		MatchValiditySeconds:   60,
		CleanupPeriodSeconds:   1,
	}
}

// TickInterval is the configured tick period as a time.Duration.
func (c ServerConfig) TickInterval() time.Duration {
	if c.TickHz <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.TickHz)
}

// LivenessProbeInterval is the configured keep-alive probe period.
func (c ServerConfig) LivenessProbeInterval() time.Duration {
	return time.Duration(c.LivenessProbeSeconds) * time.Second
}

// LivenessTimeout is the configured inactivity disconnect threshold.
func (c ServerConfig) LivenessTimeout() time.Duration {
	return time.Duration(c.LivenessTimeoutSeconds) * time.Second
}

// MatchValidityWindow is the configured inactive-match reclamation window.
func (c ServerConfig) MatchValidityWindow() time.Duration {
	return time.Duration(c.MatchValiditySeconds) * time.Second
}

// CleanupPeriod is the configured expiry-sweep period.
func (c ServerConfig) CleanupPeriod() time.Duration {
	return time.Duration(c.CleanupPeriodSeconds) * time.Second
}
