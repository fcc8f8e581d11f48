// Package doctor validates aocrunner configuration and workspace setup.
package doctor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattjoyce/aocrunner/internal/config"
	"github.com/mattjoyce/aocrunner/internal/storage"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration against the workspace it runs in.
type Doctor struct {
	cfg        *config.Config
	lookPath   func(string) (string, error)
	checkLocal func(string) error
	now        func() time.Time
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{
		cfg:        cfg,
		lookPath:   exec.LookPath,
		checkLocal: storage.CheckLocal,
		now:        time.Now,
	}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateInputs(r)
	d.validateWatchDirs(r)
	d.validateWorker(r)
	d.validateHistory(r)
	d.validateTracing(r)
	d.warnSession(r)
	d.warnFutureYear(r)
	d.warnShortBench(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateInputs checks that inputs_dir is a directory when it exists. A
// missing directory is created by the first fetch.
func (d *Doctor) validateInputs(r *Result) {
	info, err := os.Stat(d.cfg.InputsDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		d.addWarning(r, "inputs", "inputs_dir",
			fmt.Sprintf("%s does not exist yet; it is created on the first fetch", d.cfg.InputsDir))
	case err != nil:
		d.addError(r, "inputs", "inputs_dir", err.Error())
	case !info.IsDir():
		d.addError(r, "inputs", "inputs_dir", fmt.Sprintf("%s is not a directory", d.cfg.InputsDir))
	}
}

// validateWatchDirs checks the roots watch mode observes.
func (d *Doctor) validateWatchDirs(r *Result) {
	if len(d.cfg.Watch.Dirs) == 0 {
		d.addWarning(r, "watch", "watch.dirs", "no directories configured; only operator commands trigger runs")
		return
	}
	for i, dir := range d.cfg.Watch.Dirs {
		field := fmt.Sprintf("watch.dirs[%d]", i)
		info, err := os.Stat(dir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			d.addWarning(r, "watch", field, fmt.Sprintf("%s does not exist and will not be watched", dir))
		case err != nil:
			d.addError(r, "watch", field, err.Error())
		case !info.IsDir():
			d.addError(r, "watch", field, fmt.Sprintf("%s is not a directory", dir))
		}
	}
}

// validateWorker checks that the worker command resolves and can tell tasks
// apart.
func (d *Doctor) validateWorker(r *Result) {
	w := d.cfg.Worker
	if len(w.Command) == 0 || w.Command[0] == "" {
		d.addError(r, "worker", "worker.command", "worker.command is required")
		return
	}

	name := w.Command[0]
	if w.Dir != "" && !filepath.IsAbs(name) && strings.ContainsRune(name, filepath.Separator) {
		name = filepath.Join(w.Dir, name)
	}
	if _, err := d.lookPath(name); err != nil {
		d.addError(r, "worker", "worker.command",
			fmt.Sprintf("%q cannot be executed: %v", w.Command[0], err))
	}

	hasTask := false
	for _, arg := range w.Command {
		if strings.Contains(arg, "{task}") {
			hasTask = true
			break
		}
	}
	if !hasTask {
		d.addWarning(r, "worker", "worker.command",
			"no {task} placeholder; every task starts the same worker")
	}

	if w.Dir != "" {
		if info, err := os.Stat(w.Dir); err != nil || !info.IsDir() {
			d.addError(r, "worker", "worker.dir", fmt.Sprintf("%s is not a directory", w.Dir))
		}
	}
}

// validateHistory checks that the history database can be created on a local
// disk.
func (d *Doctor) validateHistory(r *Result) {
	if !d.cfg.History.Enabled {
		return
	}
	path := d.cfg.History.Path
	if err := d.checkLocal(path); err != nil {
		d.addError(r, "history", "history.path", err.Error())
		return
	}
	if err := writable(filepath.Dir(path)); err != nil {
		d.addError(r, "history", "history.path", err.Error())
	}
}

func (d *Doctor) validateTracing(r *Result) {
	if !d.cfg.Tracing.Enabled || d.cfg.Tracing.Output == "" {
		return
	}
	if err := writable(filepath.Dir(d.cfg.Tracing.Output)); err != nil {
		d.addError(r, "tracing", "tracing.output", err.Error())
	}
}

// warnSession warns when missing inputs cannot be downloaded.
func (d *Doctor) warnSession(r *Result) {
	path := d.cfg.Fetch.SessionFile
	if path == "" {
		d.addWarning(r, "fetch", "fetch.session_file", "not set; missing inputs cannot be fetched")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		d.addWarning(r, "fetch", "fetch.session_file",
			fmt.Sprintf("%s is not readable; missing inputs cannot be fetched", path))
		return
	}
	if strings.TrimSpace(string(data)) == "" {
		d.addWarning(r, "fetch", "fetch.session_file", fmt.Sprintf("%s is empty", path))
	}
}

func (d *Doctor) warnFutureYear(r *Result) {
	if d.cfg.Year > d.now().Year() {
		d.addWarning(r, "config", "year", fmt.Sprintf("year %d has no released puzzles yet", d.cfg.Year))
	}
}

func (d *Doctor) warnShortBench(r *Result) {
	if d.cfg.Bench.Count == 0 && d.cfg.Bench.Time < 100*time.Millisecond {
		d.addWarning(r, "bench", "bench.time",
			fmt.Sprintf("bench time %s is very short (< 100ms); results will be noisy", d.cfg.Bench.Time))
	}
}

// writable reports whether a file can be created in dir, or in its nearest
// existing ancestor when dir does not exist yet.
func writable(dir string) error {
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return err
		}
		dir = parent
	}

	f, err := os.CreateTemp(dir, ".aocrunner-doctor-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Workspace valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Workspace valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Workspace invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
