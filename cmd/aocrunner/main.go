// Command aocrunner runs, benchmarks and validates puzzle solutions, each task
// in its own worker process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mattjoyce/aocrunner/internal/answers"
	"github.com/mattjoyce/aocrunner/internal/config"
	"github.com/mattjoyce/aocrunner/internal/doctor"
	"github.com/mattjoyce/aocrunner/internal/history"
	"github.com/mattjoyce/aocrunner/internal/inputs"
	"github.com/mattjoyce/aocrunner/internal/log"
	"github.com/mattjoyce/aocrunner/internal/runner"
	"github.com/mattjoyce/aocrunner/internal/storage"
	"github.com/mattjoyce/aocrunner/internal/supervisor"
	"github.com/mattjoyce/aocrunner/internal/tracing"
)

// Exit codes.
const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitIncorrect = 3
)

const lockName = "watch.lock"

func main() {
	os.Exit(runCLI(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func runCLI(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "doctor":
			return runDoctor(args[1:], stdout, stderr)
		case "version", "--version":
			return runVersion(args[1:], stdout, stderr)
		case "help", "-h", "-help", "--help":
			printUsage(stdout)
			return exitOK
		}
	}
	return runTasks(args, stdin, stdout, stderr)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `aocrunner - run puzzle solutions in isolated worker processes

Usage:
  aocrunner [flags] <selector>...
  aocrunner doctor [-config path] [-json] [-strict]
  aocrunner version [-config path] [-json]

Selectors:
  N        parts one and two of day N
  N.p      part p of day N
  N.p.q    parts p and q of day N
  0        every day (0.2 runs part two of every day)

Flags:
  -m, -mode MODE          run, bench, save, validate or prompt (r, b, s, v, p)
  -s, -bench-time MS      milliseconds to bench each part (default from config)
  -c, -bench-count N      exact number of bench samples; overrides -bench-time
  -t, -test N             use test input N instead of the real input
  -a, -hide-answers       hide answers in output
  -e, -exit-on-incorrect  stop validating at the first incorrect answer
  -d, -debug              debug level passed to tasks; repeat for more
  -r, -runner-debug       runner log verbosity; repeat for more
  -l, -release            build workers in release mode
  -w, -watch              rerun on file changes and operator commands
  -year YEAR              puzzle year (default from config)
  -config PATH            configuration file (default ./aocrunner.yaml)

Watch commands:
  a mode name or alias switches mode and reruns, x reruns, q exits.
`)
}

// countFlag counts how many times a boolean flag was given.
type countFlag int

func (c *countFlag) String() string   { return strconv.Itoa(int(*c)) }
func (c *countFlag) IsBoolFlag() bool { return true }

func (c *countFlag) Set(s string) error {
	if s == "true" {
		*c++
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("expected a count, got %q", s)
	}
	*c = countFlag(n)
	return nil
}

type cliOptions struct {
	configPath      string
	mode            string
	benchTimeMS     int
	benchCount      uint
	test            uint
	hideAnswers     bool
	exitOnIncorrect bool
	debug           countFlag
	runnerDebug     countFlag
	release         bool
	watch           bool
	year            int
	selectors       []string
	set             map[string]bool
}

func parseTaskFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	opts := &cliOptions{set: make(map[string]bool)}

	fs := flag.NewFlagSet("aocrunner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	for _, name := range []string{"m", "mode"} {
		fs.StringVar(&opts.mode, name, "run", "Mode")
	}
	for _, name := range []string{"s", "bench-time"} {
		fs.IntVar(&opts.benchTimeMS, name, 0, "Bench time in milliseconds")
	}
	for _, name := range []string{"c", "bench-count"} {
		fs.UintVar(&opts.benchCount, name, 0, "Bench sample count")
	}
	for _, name := range []string{"t", "test"} {
		fs.UintVar(&opts.test, name, 0, "Test input number")
	}
	for _, name := range []string{"a", "hide-answers"} {
		fs.BoolVar(&opts.hideAnswers, name, false, "Hide answers")
	}
	for _, name := range []string{"e", "exit-on-incorrect"} {
		fs.BoolVar(&opts.exitOnIncorrect, name, false, "Exit on incorrect answers")
	}
	for _, name := range []string{"d", "debug"} {
		fs.Var(&opts.debug, name, "Task debug level")
	}
	for _, name := range []string{"r", "runner-debug"} {
		fs.Var(&opts.runnerDebug, name, "Runner log verbosity")
	}
	for _, name := range []string{"l", "release"} {
		fs.BoolVar(&opts.release, name, false, "Release build")
	}
	for _, name := range []string{"w", "watch"} {
		fs.BoolVar(&opts.watch, name, false, "Watch mode")
	}
	fs.IntVar(&opts.year, "year", 0, "Puzzle year")

	// Selectors may appear between flags.
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		opts.selectors = append(opts.selectors, fs.Arg(0))
		args = fs.Args()[1:]
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	if opts.test > 255 {
		return nil, fmt.Errorf("-test must be at most 255")
	}
	if opts.benchTimeMS < 0 {
		return nil, fmt.Errorf("-bench-time must not be negative")
	}
	if opts.benchCount > 1<<32-1 {
		return nil, fmt.Errorf("-bench-count is too large")
	}
	return opts, nil
}

func (o *cliOptions) isSet(names ...string) bool {
	for _, n := range names {
		if o.set[n] {
			return true
		}
	}
	return false
}

// applyOverrides lets command-line flags win over the configuration.
func (o *cliOptions) applyOverrides(cfg *config.Config) {
	if o.isSet("s", "bench-time") {
		cfg.Bench.Time = time.Duration(o.benchTimeMS) * time.Millisecond
	}
	if o.isSet("c", "bench-count") {
		cfg.Bench.Count = uint32(o.benchCount)
	}
	if o.isSet("year") {
		cfg.Year = o.year
	}
	if o.isSet("r", "runner-debug") {
		cfg.Log.Level = log.LevelForVerbosity(int(o.runnerDebug))
	}
}

func runTasks(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseTaskFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Flag error: %v\n", err)
		return exitUsage
	}

	mode, err := runner.ParseMode(opts.mode)
	if err != nil {
		fmt.Fprintf(stderr, "Flag error: %v\n", err)
		return exitUsage
	}
	if len(opts.selectors) == 0 {
		fmt.Fprintln(stderr, "No days selected")
		printUsage(stderr)
		return exitUsage
	}
	selections, err := runner.ParseSelectors(opts.selectors)
	if err != nil {
		fmt.Fprintf(stderr, "Invalid selector: %v\n", err)
		return exitUsage
	}

	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitError
	}
	opts.applyOverrides(cfg)

	log.Setup(cfg.Log.Level, cfg.Log.Format)
	logger := log.WithComponent("main")
	spec := workerSpec(cfg.Worker)
	build := describeBuild(spec)
	logger.Info("aocrunner starting",
		"version", build.Version,
		"go", build.GoVersion,
		"config", cfg.SourcePath,
		"mode", mode.String(),
		"worker", strings.Join(build.Worker, " "),
	)

	if cfg.Tracing.Enabled {
		if err := tracing.Init("aocrunner", version, cfg.Tracing.Output); err != nil {
			logger.Error("failed to initialize tracing", "error", err)
			return exitError
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to flush traces", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var hist *history.Store
	if cfg.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
			logger.Error("failed to create history directory", "path", cfg.History.Path, "error", err)
			return exitError
		}
		db, err := storage.OpenSQLite(ctx, cfg.History.Path)
		if err != nil {
			logger.Error("failed to open history database", "path", cfg.History.Path, "error", err)
			return exitError
		}
		defer db.Close()
		hist = history.NewStore(db)
		logger.Info("history opened", "path", cfg.History.Path)
	}

	launcher := supervisor.NewLauncher(spec)
	launcher.Stderr = stderr
	launcher.Grace = cfg.Worker.Grace

	settings := runner.Settings{
		Selections:      selections,
		Mode:            mode,
		Test:            uint8(opts.test),
		Debug:           uint8(min(int(opts.debug), 255)),
		Release:         opts.release,
		HideAnswers:     opts.hideAnswers,
		ExitOnIncorrect: opts.exitOnIncorrect,
		BenchTime:       cfg.Bench.Time,
		BenchCount:      cfg.Bench.Count,
		Watch:           opts.watch,
		WatchDirs:       cfg.Watch.Dirs,
		PollInterval:    cfg.Watch.PollInterval,
	}
	if opts.watch {
		settings.LockPath = filepath.Join(stateDir(cfg), lockName)
	}

	r := runner.New(settings, runner.Deps{
		Launcher: launcher,
		Inputs: inputs.New(inputs.Options{
			Root:        cfg.InputsDir,
			Year:        cfg.Year,
			BaseURL:     cfg.Fetch.BaseURL,
			SessionFile: cfg.Fetch.SessionFile,
			UserAgent:   cfg.Fetch.UserAgent,
			Out:         stderr,
		}),
		Answers:  answers.NewStore(cfg.InputsDir),
		History:  hist,
		Out:      stdout,
		Operator: stdin,
	})

	err = r.Run(ctx)
	var incorrect *runner.IncorrectError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &incorrect):
		fmt.Fprintf(stderr, "Runner: %v\n", err)
		return exitIncorrect
	case errors.Is(err, context.Canceled):
		logger.Info("interrupted")
		return exitError
	default:
		fmt.Fprintf(stderr, "Runner: %v\n", err)
		return exitError
	}
}

// workerSpec overlays the configured worker command on the default one.
func workerSpec(w config.WorkerConfig) supervisor.CommandSpec {
	spec := supervisor.DefaultCommandSpec()
	if len(w.Command) > 0 {
		spec.Argv = w.Command
	}
	if w.DevFlags != nil {
		spec.DevFlags = w.DevFlags
	}
	if w.ReleaseFlags != nil {
		spec.ReleaseFlags = w.ReleaseFlags
	}
	spec.Dir = w.Dir
	spec.Env = w.Env
	return spec
}

// stateDir is where the runner keeps its own files.
func stateDir(cfg *config.Config) string {
	if cfg.History.Path != "" {
		return filepath.Dir(cfg.History.Path)
	}
	return ".aocrunner"
}

func runDoctor(args []string, stdout, stderr io.Writer) int {
	var configPath, format string
	var strict, jsonOut bool

	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&configPath, "config", "", "Path to configuration")
	fs.BoolVar(&strict, "strict", false, "Treat warnings as errors")
	fs.StringVar(&format, "format", "human", "Output format (human, json)")
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if jsonOut {
		format = "json"
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Config load error: %v\n", err)
		return exitError
	}

	result := doctor.New(cfg).Validate()

	switch format {
	case "json":
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(stderr, "JSON format error: %v\n", err)
			return exitError
		}
		fmt.Fprintln(stdout, out)
	default:
		fmt.Fprint(stdout, doctor.FormatHuman(result))
	}

	if !result.Valid {
		return exitError
	}
	if strict && len(result.Warnings) > 0 {
		return exitUsage
	}
	return exitOK
}
