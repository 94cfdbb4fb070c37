//go:build unix

package executor

import (
	"os/exec"
	"syscall"
)

// setBackground 把后台进程放入独立的进程组，终端的中断信号不会送达
func setBackground(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
