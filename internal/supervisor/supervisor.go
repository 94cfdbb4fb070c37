// Package supervisor 监督前台子进程：执行时间上限和中断转发
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"minish/internal/logger"
)

// ForegroundTimeout 前台命令的执行时间上限，不可配置
const ForegroundTimeout = 10 * time.Second

// WaitDelay 子进程退出后等待输出管道关闭的最长时间
// 被终止的子进程留下的后代可能一直占着管道
const WaitDelay = 500 * time.Millisecond

// TimeoutNotice 超时终止子进程时打印的提示
const TimeoutNotice = "进程超过10秒时间限制，正在终止..."

// ErrTimeout 前台命令因超时被终止
var ErrTimeout = errors.New("foreground command timed out")

// Supervisor 记录当前前台子进程
//
// 读取循环只在 Wait 期间把子进程放入 active，信号监听 goroutine
// 只通过 active 找到转发目标。后台和管道子进程从不放入 active。
type Supervisor struct {
	out    io.Writer
	logger *slog.Logger

	ceiling  time.Duration
	active   atomic.Pointer[os.Process]
	timedOut atomic.Bool

	mu      sync.Mutex
	signals chan os.Signal
	done    chan struct{}
	wg      sync.WaitGroup
}

// Option 配置 Supervisor
type Option func(*Supervisor)

// WithOutput 设置提示信息的输出位置，默认 os.Stdout
func WithOutput(w io.Writer) Option {
	return func(s *Supervisor) { s.out = w }
}

// WithLogger 设置日志记录器
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = logger }
}

// New 创建监督器
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		out:     os.Stdout,
		logger:  logger.Discard(),
		ceiling: ForegroundTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start 接管 SIGINT，解释器本身不会被中断
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signals != nil {
		return
	}

	s.signals = make(chan os.Signal, 1)
	s.done = make(chan struct{})
	signal.Notify(s.signals, os.Interrupt)

	s.wg.Add(1)
	go s.watch(ctx, s.signals, s.done)
}

// Stop 恢复 SIGINT 的默认处理并等待监听 goroutine 退出
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signals == nil {
		return
	}

	signal.Stop(s.signals)
	close(s.done)
	s.wg.Wait()
	s.signals = nil
	s.done = nil
}

func (s *Supervisor) watch(ctx context.Context, signals <-chan os.Signal, done <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case sig := <-signals:
			s.Interrupt(sig)
		}
	}
}

// Interrupt 把信号转发给当前前台子进程，没有子进程时只换行
// 返回是否转发
func (s *Supervisor) Interrupt(sig os.Signal) bool {
	fmt.Fprintln(s.out)

	proc := s.active.Load()
	if proc == nil {
		return false
	}
	if err := proc.Signal(sig); err != nil {
		// 子进程可能刚刚退出
		s.logger.Debug("forward signal failed", "pid", proc.Pid, "signal", sig.String(), "error", err)
		return false
	}
	s.logger.Debug("signal forwarded", "pid", proc.Pid, "signal", sig.String())
	return true
}

// Active 返回当前前台子进程，没有时返回 nil
func (s *Supervisor) Active() *os.Process {
	return s.active.Load()
}

// TimedOut 报告上一次前台等待是否因超时结束
func (s *Supervisor) TimedOut() bool {
	return s.timedOut.Load()
}

// Wait 等待已经启动的前台命令结束
//
// 超过时间上限时无条件发送 SIGKILL，打印提示并返回 ErrTimeout；
// ctx 取消时同样终止子进程并返回 ctx.Err()。任何情况下子进程都会被回收。
// cmd.WaitDelay 未设置时使用 WaitDelay，子进程退出后不会无限等待输出管道。
func (s *Supervisor) Wait(ctx context.Context, cmd *exec.Cmd) error {
	proc := cmd.Process
	s.active.Store(proc)
	defer s.active.Store(nil)
	s.timedOut.Store(false)

	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = WaitDelay
	}

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- cmd.Wait()
	}()

	timer := time.NewTimer(s.ceiling)
	defer timer.Stop()

	deadline := timer.C
	cancelled := ctx.Done()
	var ctxErr error
	for {
		select {
		case err := <-waitDone:
			if s.timedOut.Load() {
				return ErrTimeout
			}
			if ctxErr != nil {
				return ctxErr
			}
			return err

		case <-deadline:
			deadline = nil
			s.expire(proc)

		case <-cancelled:
			cancelled = nil
			ctxErr = ctx.Err()
			s.logger.Debug("context cancelled, killing foreground command", "pid", proc.Pid)
			s.kill(proc)
		}
	}
}

// expire 终止超时的子进程
// 只有 SIGKILL 确实送达时才打印提示并记为超时
func (s *Supervisor) expire(proc *os.Process) bool {
	if !s.kill(proc) {
		return false
	}
	s.logger.Warn("foreground command exceeded time limit, killed",
		"pid", proc.Pid, "limit", s.ceiling)
	fmt.Fprintf(s.out, "\n%s\n", TimeoutNotice)
	s.timedOut.Store(true)
	return true
}

// kill 发送 SIGKILL，返回信号是否送达
func (s *Supervisor) kill(proc *os.Process) bool {
	err := proc.Kill()
	if err == nil {
		return true
	}
	if !errors.Is(err, os.ErrProcessDone) {
		s.logger.Error("kill foreground command failed", "pid", proc.Pid, "error", err)
	}
	return false
}
