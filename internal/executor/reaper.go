package executor

import (
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// Reaper 在后台回收不受监督的子进程
type Reaper struct {
	logger  *slog.Logger
	wg      sync.WaitGroup
	running atomic.Int64
}

// NewReaper 创建回收器
func NewReaper(logger *slog.Logger) *Reaper {
	return &Reaper{logger: logger}
}

// Add 接管一个已启动的进程，在 goroutine 中等待它结束
func (r *Reaper) Add(cmd *exec.Cmd, line string) {
	r.wg.Add(1)
	r.running.Add(1)
	pid := cmd.Process.Pid
	started := time.Now()

	go func() {
		defer r.wg.Done()
		err := cmd.Wait()
		r.running.Add(-1)
		r.logger.Debug("background process reaped",
			"pid", pid, "command", line, "duration", time.Since(started), "error", err)
	}()
}

// Running 返回尚未结束的后台进程数
func (r *Reaper) Running() int {
	return int(r.running.Load())
}

// Wait 等待所有后台进程结束
func (r *Reaper) Wait() {
	r.wg.Wait()
}
