package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// BuildMode selects how the worker is built. It is opaque to the protocol.
type BuildMode int

const (
	Dev BuildMode = iota
	Release
)

func (m BuildMode) String() string {
	if m == Release {
		return "release"
	}
	return "dev"
}

const (
	taskPlaceholder  = "{task}"
	flagsPlaceholder = "{flags}"
)

// CommandSpec describes how to launch a worker. "{task}" in Argv and Env is
// replaced by the task id; an Argv element equal to "{flags}" expands to the
// flags of the build mode.
type CommandSpec struct {
	Argv         []string
	DevFlags     []string
	ReleaseFlags []string
	Dir          string
	Env          []string // appended to the runner's environment
}

// DefaultCommandSpec builds and runs cmd/aocworker with the go tool.
func DefaultCommandSpec() CommandSpec {
	return CommandSpec{
		Argv:         []string{"go", "run", flagsPlaceholder, "./cmd/aocworker", "-task", taskPlaceholder},
		DevFlags:     []string{"-gcflags=all=-N -l"},
		ReleaseFlags: []string{"-trimpath"},
	}
}

// Flags returns the build flags that replace "{flags}" in mode.
func (c CommandSpec) Flags(mode BuildMode) []string {
	if mode == Release {
		return c.ReleaseFlags
	}
	return c.DevFlags
}

// Build returns the command for task in the given mode.
func (c CommandSpec) Build(task int, mode BuildMode) (*exec.Cmd, error) {
	if len(c.Argv) == 0 {
		return nil, fmt.Errorf("worker command is empty")
	}

	id := strconv.Itoa(task)
	flags := c.Flags(mode)

	argv := make([]string, 0, len(c.Argv)+len(flags))
	for _, a := range c.Argv {
		if a == flagsPlaceholder {
			argv = append(argv, flags...)
			continue
		}
		argv = append(argv, strings.ReplaceAll(a, taskPlaceholder, id))
	}
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("worker command has no program")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = os.Environ()
		for _, kv := range c.Env {
			cmd.Env = append(cmd.Env, strings.ReplaceAll(kv, taskPlaceholder, id))
		}
	}
	return cmd, nil
}
