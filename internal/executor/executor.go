// Package executor 启动外部程序：单个命令、重定向、两级管道和后台进程
package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"minish/internal/environ"
	"minish/internal/logger"
	"minish/internal/parser"
	"minish/internal/supervisor"
)

// Executor 执行器
type Executor struct {
	env        environ.Env
	supervisor *supervisor.Supervisor
	reaper     *Reaper
	logger     *slog.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Option 配置 Executor
type Option func(*Executor)

// WithStdio 设置子进程继承的标准输入输出
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(e *Executor) {
		e.stdin = stdin
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// New 创建新的执行器
func New(env environ.Env, sup *supervisor.Supervisor, opts ...Option) *Executor {
	e := &Executor{
		env:        env,
		supervisor: sup,
		logger:     logger.Discard(),
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.stdout, e.stderr = SyncStdio(e.stdout, e.stderr)
	e.reaper = NewReaper(e.logger)
	return e
}

// Reaper 返回后台进程回收器
func (e *Executor) Reaper() *Reaper {
	return e.reaper
}

// Execute 按命令种类执行外部命令或管道
func (e *Executor) Execute(ctx context.Context, cmd *parser.Command) error {
	if cmd.Kind == parser.KindPipeline {
		return e.RunPipeline(ctx, cmd)
	}
	return e.Run(ctx, cmd)
}

// Run 执行单个外部命令
// 前台命令在监督下等待，后台命令启动后立即返回
func (e *Executor) Run(ctx context.Context, cmd *parser.Command) error {
	name, args := cmd.Name(), cmd.Args[1:]

	execCmd := e.command(cmd.Args)
	execCmd.Stdin = e.stdin
	execCmd.Stdout = e.stdout
	execCmd.Stderr = e.stderr

	files, err := e.setupRedirects(execCmd, cmd.Redirects)
	defer func() { closeFiles(files) }()
	if err != nil {
		return newExecutionError(ExecutionErrorTypeRedirectError, "", name, args, err)
	}

	if cmd.Background {
		setBackground(execCmd)
	}

	if err := execCmd.Start(); err != nil {
		return e.startError(name, args, err)
	}
	// 子进程已经持有描述符，父进程的副本立即关闭
	closeFiles(files)
	files = nil

	e.logger.Debug("command started", "pid", execCmd.Process.Pid, "command", cmd.String(), "background", cmd.Background)

	if cmd.Background {
		e.reaper.Add(execCmd, cmd.String())
		return nil
	}

	return e.waitError(name, args, e.supervisor.Wait(ctx, execCmd))
}

// RunPipeline 执行两级管道
//
// 管道总在前台运行，不受时间上限约束。任一级启动失败时另一级照常运行并被回收，
// 两级的退出状态都被忽略。
func (e *Executor) RunPipeline(ctx context.Context, cmd *parser.Command) error {
	if cmd.Pipe == nil {
		return e.Run(ctx, cmd)
	}

	r, w, err := os.Pipe()
	if err != nil {
		return newExecutionError(ExecutionErrorTypePipeError, "创建管道失败", cmd.Name(), cmd.Args[1:], err)
	}

	first := e.command(cmd.Args)
	first.Stdin = e.stdin
	first.Stdout = w
	first.Stderr = e.stderr

	second := e.command(cmd.Pipe.Args)
	second.Stdin = r
	second.Stdout = e.stdout
	second.Stderr = e.stderr

	var errs []error
	started := make([]*exec.Cmd, 0, 2)
	for _, c := range []*exec.Cmd{first, second} {
		if err := c.Start(); err != nil {
			errs = append(errs, e.startError(c.Args[0], c.Args[1:], err))
			continue
		}
		started = append(started, c)
	}

	// 父进程必须关闭两端，第二级才能读到 EOF
	r.Close()
	w.Close()

	for _, c := range started {
		err := c.Wait()
		e.logger.Debug("pipeline stage exited", "pid", c.Process.Pid, "command", c.Args[0], "error", err)
	}

	return errors.Join(errs...)
}

// command 创建 exec.Cmd，环境来自当前的环境快照
func (e *Executor) command(argv []string) *exec.Cmd {
	c := exec.Command(argv[0], argv[1:]...)
	c.Env = environ.Environ(e.env)
	return c
}

// setupRedirects 打开重定向目标并替换子进程的标准输入输出
// 返回已打开的文件，调用方负责关闭
func (e *Executor) setupRedirects(cmd *exec.Cmd, redirects []*parser.Redirect) ([]*os.File, error) {
	var files []*os.File
	for _, redirect := range redirects {
		switch redirect.Type {
		case parser.REDIRECT_OUTPUT:
			file, err := os.OpenFile(redirect.Target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
			if err != nil {
				return files, err
			}
			files = append(files, file)
			cmd.Stdout = file
		case parser.REDIRECT_INPUT:
			file, err := os.Open(redirect.Target)
			if err != nil {
				return files, err
			}
			files = append(files, file)
			cmd.Stdin = file
		}
	}
	return files, nil
}

func closeFiles(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}

// startError 区分程序不存在和其他启动失败
func (e *Executor) startError(name string, args []string, err error) error {
	e.logger.Debug("command failed to start", "command", name, "error", err)
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return newExecutionError(ExecutionErrorTypeCommandNotFound, "", name, args, err)
	}
	return newExecutionError(ExecutionErrorTypeStartFailed, "", name, args, err)
}

// waitError 转换前台等待的结果
// 程序自身的非零退出状态不视为错误
func (e *Executor) waitError(name string, args []string, err error) error {
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		e.logger.Debug("command exited", "command", name, "status", 0)
		return nil
	case errors.Is(err, supervisor.ErrTimeout):
		return newExecutionError(ExecutionErrorTypeTimeout, "", name, args, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newExecutionError(ExecutionErrorTypeInterrupted, "", name, args, err)
	case errors.Is(err, exec.ErrWaitDelay):
		// 子进程已经退出，只是它的后代还占着输出管道
		e.logger.Debug("command exited, output pipes closed after grace period", "command", name)
		return nil
	case errors.As(err, &exitErr):
		e.logger.Debug("command exited", "command", name, "status", exitErr.ExitCode())
		return nil
	default:
		return newExecutionError(ExecutionErrorTypeStartFailed, "", name, args, err)
	}
}
