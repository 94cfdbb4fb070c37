// Package shell 实现读取循环：提示符、输入、历史、补全以及命令分派
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/afero"

	"minish/internal/builtin"
	"minish/internal/config"
	"minish/internal/environ"
	"minish/internal/executor"
	"minish/internal/lexer"
	"minish/internal/logger"
	"minish/internal/parser"
	"minish/internal/supervisor"
)

// Shell Shell主结构
type Shell struct {
	cfg        *config.Configuration
	env        environ.Env
	fs         afero.Fs
	logger     *slog.Logger
	executor   *executor.Executor
	supervisor *supervisor.Supervisor
	history    *History
	reporter   *ErrorReporter

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Option 配置 Shell
type Option func(*Shell)

// WithEnv 设置环境变量存储，默认使用进程环境
func WithEnv(env environ.Env) Option {
	return func(s *Shell) { s.env = env }
}

// WithFs 设置读取脚本和历史文件的文件系统
func WithFs(fsys afero.Fs) Option {
	return func(s *Shell) { s.fs = fsys }
}

// WithLogger 设置日志记录器
func WithLogger(logger *slog.Logger) Option {
	return func(s *Shell) { s.logger = logger }
}

// WithStdio 设置标准输入输出，子进程也继承它们
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(s *Shell) {
		s.stdin = stdin
		s.stdout = stdout
		s.stderr = stderr
	}
}

// New 创建新的Shell实例
func New(cfg *config.Configuration, opts ...Option) *Shell {
	s := &Shell{
		cfg:    cfg,
		env:    environ.NewProcess(),
		fs:     afero.NewOsFs(),
		logger: logger.Discard(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	// 提示、错误报告和子进程的复制 goroutine 共用同一组输出
	s.stdout, s.stderr = executor.SyncStdio(s.stdout, s.stderr)

	s.supervisor = supervisor.New(
		supervisor.WithOutput(s.stdout),
		supervisor.WithLogger(s.logger),
	)
	s.executor = executor.New(s.env, s.supervisor,
		executor.WithStdio(s.stdin, s.stdout, s.stderr),
		executor.WithLogger(s.logger),
	)
	s.history = NewHistory(s.fs, cfg.HistoryFile, cfg.HistoryLimit)
	s.reporter = NewErrorReporter(s.stderr, cfg.Color)
	return s
}

// Run 运行交互式Shell，读到输入结束或执行 exit 后返回
func (s *Shell) Run(ctx context.Context) error {
	s.supervisor.Start(ctx)
	defer s.supervisor.Stop()

	if err := s.history.Load(); err != nil {
		s.logger.Warn("load history failed", "path", s.cfg.HistoryFile, "error", err)
	}
	defer s.saveHistory()

	if s.isTerminal() {
		rl, err := readline.NewEx(s.readlineConfig())
		if err == nil {
			defer rl.Close()
			return s.runReadline(ctx, rl)
		}
		// 如果readline初始化失败，回退到简单的逐行读取
		s.logger.Debug("readline unavailable, falling back", "error", err)
	}
	return s.runSimple(ctx)
}

func (s *Shell) isTerminal() bool {
	f, ok := s.stdin.(*os.File)
	return ok && f == os.Stdin && readline.IsTerminal(int(f.Fd()))
}

func (s *Shell) readlineConfig() *readline.Config {
	limit := s.cfg.HistoryLimit
	if limit == 0 {
		// readline 把 0 当作默认值，-1 才是不记录
		limit = -1
	}
	return &readline.Config{
		Prompt:          s.prompt(),
		HistoryLimit:    limit,
		AutoComplete:    NewCompleter(s.env),
		InterruptPrompt: "^C",
		Stdout:          s.stdout,
		Stderr:          s.stderr,
	}
}

// runReadline 交互模式
func (s *Shell) runReadline(ctx context.Context, rl *readline.Instance) error {
	// 历史文件由 History 管理，这里只把已有记录交给 readline
	for _, cmd := range s.history.GetAll() {
		if err := rl.SaveHistory(cmd); err != nil {
			break
		}
	}

	for {
		rl.SetPrompt(s.prompt())

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Ctrl+C 清空当前行
			continue
		}
		if err != nil {
			fmt.Fprintln(s.stdout)
			return nil
		}

		s.history.Add(line)
		if errors.Is(s.ExecuteLine(ctx, line), builtin.ErrExit) {
			return nil
		}
	}
}

// runSimple 非终端输入时逐行读取
func (s *Shell) runSimple(ctx context.Context) error {
	reader := bufio.NewReader(s.stdin)

	for {
		fmt.Fprint(s.stdout, s.prompt())

		line, err := reader.ReadString('\n')
		if line == "" && err != nil {
			// 输入结束或读取失败时先输出换行，两者都正常结束
			fmt.Fprintln(s.stdout)
			if !errors.Is(err, io.EOF) {
				s.logger.Warn("read input failed", "error", err)
			}
			return nil
		}

		if errors.Is(s.ExecuteLine(ctx, line), builtin.ErrExit) {
			return nil
		}
	}
}

// saveHistory 保存历史记录
func (s *Shell) saveHistory() {
	if err := s.history.Save(); err != nil {
		s.logger.Warn("save history failed", "path", s.cfg.HistoryFile, "error", err)
	}
}

// prompt 返回 <当前目录><提示符>
func (s *Shell) prompt() string {
	cwd, err := os.Getwd()
	if err != nil {
		return s.cfg.PromptMarker
	}
	return cwd + s.cfg.PromptMarker
}

// ExecuteScript 执行脚本文件，返回的错误都已报告
func (s *Shell) ExecuteScript(ctx context.Context, scriptPath string) error {
	file, err := s.fs.Open(scriptPath)
	if err != nil {
		err = fmt.Errorf("无法打开脚本文件: %w", err)
		s.reporter.ReportError(err)
		return err
	}
	defer file.Close()

	s.reporter.SetScript(scriptPath)
	defer s.reporter.SetScript("")

	return s.ExecuteReader(ctx, file)
}

// ExecuteReader 逐行执行命令，跳过空行、注释和 shebang
// exit 提前结束；返回最后一个出错命令的错误
func (s *Shell) ExecuteReader(ctx context.Context, reader io.Reader) error {
	s.supervisor.Start(ctx)
	defer s.supervisor.Stop()

	scanner := bufio.NewScanner(reader)
	lineNum := 0
	var lastErr error

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// 跳过空行、shebang 和注释
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		s.reporter.SetLineNum(lineNum)
		err := s.ExecuteLine(ctx, scanner.Text())
		if errors.Is(err, builtin.ErrExit) {
			return lastErr
		}
		if err != nil {
			lastErr = err
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return lastErr
}

// ExecuteCommand 执行 -c 指定的一行命令
func (s *Shell) ExecuteCommand(ctx context.Context, line string) error {
	s.supervisor.Start(ctx)
	defer s.supervisor.Stop()

	err := s.ExecuteLine(ctx, line)
	if errors.Is(err, builtin.ErrExit) {
		return nil
	}
	return err
}

// ExecuteLine 分词、分类并分派一行输入
// 错误在返回前已经报告，exit 返回 builtin.ErrExit
func (s *Shell) ExecuteLine(ctx context.Context, line string) error {
	args := lexer.Tokenize(line, s.env)
	cmd, err := parser.Parse(args)
	if err != nil {
		s.reporter.ReportError(err)
		return err
	}
	if cmd == nil {
		return nil
	}

	s.logger.Debug("dispatch", "kind", cmd.Kind.String(), "command", cmd.String())

	if cmd.Kind == parser.KindBuiltin {
		return s.runBuiltin(cmd)
	}

	err = s.executor.Execute(ctx, cmd)
	s.reporter.ReportError(err)
	return err
}

// runBuiltin 在解释器进程内执行内置命令
func (s *Shell) runBuiltin(cmd *parser.Command) error {
	fn, _ := builtin.Lookup(cmd.Name())
	err := fn(&builtin.Context{
		Env:    s.env,
		Stdout: s.stdout,
		Stderr: s.stderr,
	}, cmd.Args[1:])
	if err != nil && !errors.Is(err, builtin.ErrExit) {
		s.reporter.ReportError(err)
	}
	return err
}

// Executor 返回执行器
func (s *Shell) Executor() *executor.Executor {
	return s.executor
}
