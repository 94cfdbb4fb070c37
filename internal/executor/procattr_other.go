//go:build !unix

package executor

import "os/exec"

func setBackground(cmd *exec.Cmd) {}
