package appconfig

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/server.yaml
var defaultServerYAML []byte

// Load resolves the server configuration using the teacher's search
// order (internal/config/loader.go's LoadFlappy/LoadDino): an explicit
// customPath first, then a per-user config directory, then a local
// configs/ directory, then the embedded default. customPath may be
// empty.
func Load(customPath string) (ServerConfig, error) {
	if customPath != "" {
		return loadFile(customPath)
	}

	if p := userConfigPath(); p != "" {
		if _, err := os.Stat(p); err == nil {
			return loadFile(p)
		}
	}

	if _, err := os.Stat(localConfigPath); err == nil {
		return loadFile(localConfigPath)
	}

	var cfg ServerConfig
	if err := yaml.Unmarshal(defaultServerYAML, &cfg); err != nil {
		// The embedded default is produced by us and checked in; a
		// parse failure here means a broken build, not bad user input.
		return Default(), nil
	}
	return cfg, nil
}

const localConfigPath = "configs/server.yaml"

func loadFile(path string) (ServerConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// userConfigPath returns ~/.arenaduel/config.yaml, or "" if the home
// directory cannot be resolved.
func userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".arenaduel", "config.yaml")
}
