//go:build windows

package supervisor

import "os/exec"

func configureProcess(*exec.Cmd) {}

func terminateProcess(cmd *exec.Cmd) { killProcess(cmd) }

func killProcess(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
