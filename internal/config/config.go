package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pilothouse-sh/pilothouse/internal/db"
	"github.com/pilothouse-sh/pilothouse/internal/paths"
)

// Config holds the runtime settings. Values come from an optional YAML file
// with environment overrides on top; everything has a usable default.
type Config struct {
	DBPath   string `yaml:"dbPath"`
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"logLevel"`
	LogFile  string `yaml:"logFile"`
}

const fileName = "config.yaml"

// Load reads config from path, or from the XDG config directory when path is
// empty. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{
		DBPath:   db.DefaultFilename,
		Addr:     "127.0.0.1:0",
		LogLevel: "info",
	}

	if path == "" {
		dir, err := paths.ConfigDir()
		if err == nil {
			path = filepath.Join(dir, fileName)
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("PILOTHOUSE_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("PILOTHOUSE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}
