package config

import "time"

// DefaultPath is the config file looked up in the workspace.
const DefaultPath = "aocrunner.yaml"

// Config represents the complete aocrunner configuration.
type Config struct {
	Include   []string      `yaml:"include,omitempty"`
	Year      int           `yaml:"year"`
	InputsDir string        `yaml:"inputs_dir"`
	Log       LogConfig     `yaml:"log"`
	Bench     BenchConfig   `yaml:"bench"`
	Watch     WatchConfig   `yaml:"watch"`
	Worker    WorkerConfig  `yaml:"worker"`
	History   HistoryConfig `yaml:"history"`
	Fetch     FetchConfig   `yaml:"fetch"`
	Tracing   TracingConfig `yaml:"tracing"`

	// SourcePath is the file the config was loaded from; empty for defaults.
	SourcePath string `yaml:"-"`
}

// LogConfig defines logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BenchConfig defines benchmark defaults. Count 0 means timed by Time.
type BenchConfig struct {
	Time  time.Duration `yaml:"time"`
	Count uint32        `yaml:"count"`
}

// WatchConfig defines what watch mode observes.
type WatchConfig struct {
	Dirs         []string      `yaml:"dirs"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// WorkerConfig defines how worker processes are launched. Command is an argv
// template: "{task}" is replaced by the task id and a "{flags}" element by
// DevFlags or ReleaseFlags.
type WorkerConfig struct {
	Command      []string      `yaml:"command"`
	DevFlags     []string      `yaml:"dev_flags"`
	ReleaseFlags []string      `yaml:"release_flags"`
	Dir          string        `yaml:"dir,omitempty"`
	Env          []string      `yaml:"env,omitempty"`
	Grace        time.Duration `yaml:"grace"`
}

// HistoryConfig defines the result database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// FetchConfig defines access to the puzzle site.
type FetchConfig struct {
	BaseURL     string `yaml:"base_url"`
	SessionFile string `yaml:"session_file"`
	UserAgent   string `yaml:"user_agent"`
}

// TracingConfig defines span export. Output empty means stderr.
type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		Year:      2025,
		InputsDir: "./inputs",
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Bench: BenchConfig{
			Time: time.Second,
		},
		Watch: WatchConfig{
			Dirs:         []string{"./inputs", "./internal/days", "./internal/solver"},
			PollInterval: 20 * time.Millisecond,
		},
		Worker: WorkerConfig{
			Command:      []string{"go", "run", "{flags}", "./cmd/aocworker", "-task", "{task}"},
			DevFlags:     []string{"-gcflags=all=-N -l"},
			ReleaseFlags: []string{"-trimpath"},
			Grace:        2 * time.Second,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "./.aocrunner/history.db",
		},
		Fetch: FetchConfig{
			BaseURL:     "https://adventofcode.com",
			SessionFile: "./API_KEY",
			UserAgent:   "github.com/mattjoyce/aocrunner",
		},
	}
}
