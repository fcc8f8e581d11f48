package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Load reads configuration from path on top of Defaults. Files named in
// include are applied in order after the including file, relative to it;
// later values win.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", path, err)
	}

	cfg := Defaults()
	if err := loadInto(cfg, absPath, map[string]bool{}); err != nil {
		return nil, err
	}
	cfg.Include = nil
	cfg.SourcePath = absPath

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", absPath, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists. A missing file at the default
// location yields Defaults; a missing explicit path is an error.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && path == DefaultPath {
		return Defaults(), nil
	}
	return Load(path)
}

// loadInto decodes the file at path over cfg. yaml.v3 leaves fields absent
// from the document untouched, so decoding file after file merges them.
func loadInto(cfg *Config, path string, visited map[string]bool) error {
	if visited[path] {
		return fmt.Errorf("config include cycle at %s", path)
	}
	visited[path] = true

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	cfg.Include = nil
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	includes := cfg.Include
	baseDir := filepath.Dir(path)
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(baseDir, inc)
		}
		if err := loadInto(cfg, inc, visited); err != nil {
			return err
		}
	}
	return nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is and rejected by validate.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}

func validate(cfg *Config) error {
	if cfg.Year < 2015 {
		return fmt.Errorf("year must be 2015 or later (got %d)", cfg.Year)
	}
	if cfg.InputsDir == "" {
		return fmt.Errorf("inputs_dir is required")
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !slices.Contains(validLogLevels, cfg.Log.Level) {
		return fmt.Errorf("log.level must be one of: %s (got %q)", strings.Join(validLogLevels, ", "), cfg.Log.Level)
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json (got %q)", cfg.Log.Format)
	}

	if cfg.Bench.Time <= 0 {
		return fmt.Errorf("bench.time must be positive")
	}
	if cfg.Watch.PollInterval <= 0 {
		return fmt.Errorf("watch.poll_interval must be positive")
	}

	if len(cfg.Worker.Command) == 0 || cfg.Worker.Command[0] == "" {
		return fmt.Errorf("worker.command is required")
	}
	if cfg.Worker.Grace <= 0 {
		return fmt.Errorf("worker.grace must be positive")
	}

	if cfg.History.Enabled && cfg.History.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}

	for field, value := range map[string]string{
		"fetch.base_url":     cfg.Fetch.BaseURL,
		"fetch.session_file": cfg.Fetch.SessionFile,
		"fetch.user_agent":   cfg.Fetch.UserAgent,
		"history.path":       cfg.History.Path,
		"inputs_dir":         cfg.InputsDir,
		"tracing.output":     cfg.Tracing.Output,
	} {
		if m := envVarPattern.FindStringSubmatch(value); m != nil {
			return fmt.Errorf("%s: environment variable ${%s} is not set", field, m[1])
		}
	}
	return nil
}
