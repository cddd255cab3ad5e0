//go:build !windows

package tools

import (
	"os/exec"
	"syscall"
)

// pty.Start 以 Setsid 启动子进程，pgid 等于 pid，整组杀掉可带走编译器派生的子进程。
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
