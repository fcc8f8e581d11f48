package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/mattjoyce/aocrunner/internal/config"
	"github.com/mattjoyce/aocrunner/internal/supervisor"
)

// version is set at link time with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

// buildReport describes the runner binary and the worker it launches.
type buildReport struct {
	Version      string   `json:"version"`
	GoVersion    string   `json:"go_version"`
	Revision     string   `json:"revision,omitempty"`
	Worker       []string `json:"worker_command"`
	DevFlags     []string `json:"dev_flags"`
	ReleaseFlags []string `json:"release_flags"`
}

func describeBuild(spec supervisor.CommandSpec) buildReport {
	r := buildReport{
		Version:      version,
		GoVersion:    runtime.Version(),
		Worker:       spec.Argv,
		DevFlags:     spec.Flags(supervisor.Dev),
		ReleaseFlags: spec.Flags(supervisor.Release),
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return r
	}
	if info.GoVersion != "" {
		r.GoVersion = info.GoVersion
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			r.Revision = s.Value[:min(len(s.Value), 12)]
		}
	}
	return r
}

func runVersion(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to configuration")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Usage: aocrunner version [-json] [-config PATH]")
		return exitUsage
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitError
	}
	r := describeBuild(workerSpec(cfg.Worker))

	if *jsonOut {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "Failed to render version JSON: %v\n", err)
			return exitError
		}
		fmt.Fprintln(stdout, string(data))
		return exitOK
	}

	fmt.Fprintf(stdout, "aocrunner %s (%s)\n", r.Version, r.GoVersion)
	if r.Revision != "" {
		fmt.Fprintf(stdout, "revision: %s\n", r.Revision)
	}
	fmt.Fprintf(stdout, "worker: %s\n", strings.Join(r.Worker, " "))
	fmt.Fprintf(stdout, "dev flags: %s\n", strings.Join(r.DevFlags, " "))
	fmt.Fprintf(stdout, "release flags: %s\n", strings.Join(r.ReleaseFlags, " "))
	return exitOK
}
