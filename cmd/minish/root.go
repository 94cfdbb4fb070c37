package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"minish/internal/config"
	"minish/internal/executor"
	"minish/internal/logger"
	"minish/internal/parser"
	"minish/internal/shell"
)

// exitError 非零退出状态，错误本身已经报告过
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

type rootOptions struct {
	command    string
	configPath string
	logLevel   string
	logFormat  string
	logOutput  string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "minish [flags] [SCRIPT]",
		Short: "A minimal line-oriented shell",
		Long: `minish reads one command line at a time and runs built-ins
(cd, pwd, echo, env, setenv, exit) or external programs with
redirection, a two-stage pipeline and background execution.
Foreground commands are killed after 10 seconds.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.command, "command", "c", "", "run a single command line and exit")
	flags.StringVar(&opts.configPath, "config", config.DefaultPath(), "config file path")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")
	flags.StringVar(&opts.logOutput, "log-output", "", "log output: stderr, stdout, off or a file path")

	return cmd
}

func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Configuration, error) {
	cfg, err := config.Load(afero.NewOsFs(), opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	if flags.Changed("log-output") {
		cfg.Log.Output = opts.logOutput
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, opts *rootOptions, args []string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	log.Debug("config loaded", "path", opts.configPath)

	sh := shell.New(cfg,
		shell.WithLogger(log),
		shell.WithStdio(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case cmd.Flags().Changed("command"):
		return exitStatus(sh.ExecuteCommand(ctx, opts.command))
	case len(args) == 1:
		return exitStatus(sh.ExecuteScript(ctx, args[0]))
	default:
		return sh.Run(ctx)
	}
}

// exitStatus 把已经报告过的错误转换为退出状态
func exitStatus(err error) error {
	if err == nil {
		return nil
	}

	var execErr *executor.ExecutionError
	var parseErr *parser.ParseError
	switch {
	case errors.As(err, &execErr):
		return &exitError{code: execErr.ExitCode()}
	case errors.As(err, &parseErr):
		return &exitError{code: 2}
	default:
		return &exitError{code: 1}
	}
}
