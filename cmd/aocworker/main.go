// Command aocworker serves one task over the worker protocol on stdin and
// stdout. It is started by aocrunner, not by hand.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattjoyce/aocrunner/internal/days"
	"github.com/mattjoyce/aocrunner/internal/log"
	"github.com/mattjoyce/aocrunner/internal/worker"
)

func main() {
	os.Exit(runWorker(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func runWorker(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("aocworker", flag.ContinueOnError)
	fs.SetOutput(stderr)
	task := fs.Int("task", 0, "Task id to serve")
	logLevel := fs.String("log-level", envOr("AOCRUNNER_LOG_LEVEL", "WARN"), "Log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *task <= 0 || fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Usage: aocworker -task N")
		return 2
	}

	log.Setup(*logLevel, "text")
	logger := log.WithTask(*task)

	reg := days.Registry()
	if err := worker.ServeTask(reg, *task, stdin, stdout); err != nil {
		if errors.Is(err, worker.ErrUnknownTask) {
			fmt.Fprintf(stderr, "Day %d is not implemented (implemented: %s)\n", *task, joinIDs(reg.IDs()))
			return 1
		}
		logger.Error("worker failed", "error", err)
		return 1
	}
	return 0
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
