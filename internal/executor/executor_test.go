//go:build unix

package executor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minish/internal/environ"
	"minish/internal/parser"
	"minish/internal/supervisor"
)

func requireTools(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s 不可用: %v", name, err)
		}
	}
}

func newTestExecutor(t *testing.T, env environ.Env) (*Executor, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	if env == nil {
		env = environ.NewMapFromList(os.Environ())
	}
	var stdout, stderr bytes.Buffer
	e := New(env, supervisor.New(supervisor.WithOutput(io.Discard)), WithStdio(nil, &stdout, &stderr))
	return e, &stdout, &stderr
}

func mustParse(t *testing.T, args ...string) *parser.Command {
	t.Helper()
	cmd, err := parser.Parse(args)
	require.NoError(t, err)
	require.NotNil(t, cmd)
	return cmd
}

func TestRun_stdout(t *testing.T) {
	requireTools(t, "sh")
	e, stdout, _ := newTestExecutor(t, nil)

	require.NoError(t, e.Run(context.Background(), mustParse(t, "sh", "-c", "echo hello")))
	assert.Equal(t, "hello\n", stdout.String())
}

func TestRun_environment(t *testing.T) {
	requireTools(t, "sh")
	env := environ.NewMapFromList([]string{"FOO=bar"})
	e, stdout, _ := newTestExecutor(t, env)

	require.NoError(t, e.Run(context.Background(), mustParse(t, "sh", "-c", "echo $FOO")))
	assert.Equal(t, "bar\n", stdout.String())

	require.NoError(t, env.Set("FOO", "baz"))
	stdout.Reset()
	require.NoError(t, e.Run(context.Background(), mustParse(t, "sh", "-c", "echo $FOO")))
	assert.Equal(t, "baz\n", stdout.String(), "子进程应看到最新的环境")
}

func TestRun_outputRedirect(t *testing.T) {
	requireTools(t, "sh")
	e, stdout, _ := newTestExecutor(t, nil)
	target := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(target, []byte("previous content that is long\n"), 0644))

	require.NoError(t, e.Run(context.Background(), mustParse(t, "sh", "-c", "printf hi", ">", target)))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data), "目标文件应被截断")
	assert.Empty(t, stdout.String())
}

func TestRun_outputRedirectCreatesFile(t *testing.T) {
	requireTools(t, "sh")
	e, _, _ := newTestExecutor(t, nil)
	target := filepath.Join(t.TempDir(), "new.txt")

	require.NoError(t, e.Run(context.Background(), mustParse(t, "sh", "-c", "echo created", ">", target)))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0), info.Mode().Perm()&^0644, "权限不应超过 0644")
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "created\n", string(data))
}

func TestRun_inputRedirect(t *testing.T) {
	requireTools(t, "sort")
	e, stdout, _ := newTestExecutor(t, nil)
	input := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(input, []byte("b\na\n"), 0644))

	require.NoError(t, e.Run(context.Background(), mustParse(t, "sort", "<", input)))
	assert.Equal(t, "a\nb\n", stdout.String())
}

func TestRun_inputAndOutputRedirect(t *testing.T) {
	requireTools(t, "sort")
	e, stdout, _ := newTestExecutor(t, nil)
	dir := t.TempDir()
	input := filepath.Join(dir, "in.txt")
	output := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(input, []byte("2\n1\n"), 0644))

	require.NoError(t, e.Run(context.Background(), mustParse(t, "sort", ">", output, "<", input)))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n", string(data))
	assert.Empty(t, stdout.String())
}

func TestRun_redirectOpenFailure(t *testing.T) {
	requireTools(t, "touch")
	e, _, _ := newTestExecutor(t, nil)
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")

	err := e.Run(context.Background(), mustParse(t, "touch", marker, "<", filepath.Join(dir, "missing")))

	require.Error(t, err)
	assert.True(t, IsType(err, ExecutionErrorTypeRedirectError), "期望重定向错误，得到 %v", err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr), "程序不应运行")
}

func TestRun_commandNotFound(t *testing.T) {
	e, _, _ := newTestExecutor(t, nil)

	err := e.Run(context.Background(), mustParse(t, "minish_nonexistent_command_xyz"))

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr), "期望 ExecutionError，得到 %v", err)
	assert.Equal(t, ExecutionErrorTypeCommandNotFound, execErr.Type)
	assert.Equal(t, 127, execErr.ExitCode())
	assert.Equal(t, "命令未找到: minish_nonexistent_command_xyz", execErr.Error())
}

func TestRun_nonZeroExitIsNotAnError(t *testing.T) {
	requireTools(t, "false")
	e, _, _ := newTestExecutor(t, nil)

	assert.NoError(t, e.Run(context.Background(), mustParse(t, "false")))
}

func TestRun_background(t *testing.T) {
	requireTools(t, "sleep")
	e, _, _ := newTestExecutor(t, nil)

	require.NoError(t, e.Run(context.Background(), mustParse(t, "sleep", "1", "&")))
	assert.Equal(t, 1, e.Reaper().Running(), "后台命令应立即返回")
	assert.Nil(t, e.supervisor.Active(), "后台进程不受监督")

	e.Reaper().Wait()
	assert.Equal(t, 0, e.Reaper().Running())
}

func TestSetBackground_ownProcessGroup(t *testing.T) {
	requireTools(t, "sleep")
	cmd := exec.Command("sleep", "1")
	setBackground(cmd)
	require.NoError(t, cmd.Start())
	defer cmd.Wait()
	defer cmd.Process.Kill()

	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	require.NoError(t, err)
	assert.Equal(t, cmd.Process.Pid, pgid)
	assert.NotEqual(t, syscall.Getpgrp(), pgid)
}

func TestRunPipeline(t *testing.T) {
	requireTools(t, "sh", "sort")
	e, stdout, _ := newTestExecutor(t, nil)

	cmd := mustParse(t, "sh", "-c", "printf 'b\\na\\n'", "|", "sort")
	require.Equal(t, parser.KindPipeline, cmd.Kind)

	require.NoError(t, e.Execute(context.Background(), cmd))
	assert.Equal(t, "a\nb\n", stdout.String())
}

func TestRunPipeline_stagesShareStderr(t *testing.T) {
	requireTools(t, "sh")
	e, stdout, stderr := newTestExecutor(t, nil)

	cmd := mustParse(t,
		"sh", "-c", "for i in 1 2 3 4 5; do echo one >&2; done",
		"|",
		"sh", "-c", "for i in 1 2 3 4 5; do echo two >&2; done; cat")
	require.Equal(t, parser.KindPipeline, cmd.Kind)

	require.NoError(t, e.Execute(context.Background(), cmd))
	assert.Empty(t, stdout.String())
	assert.Equal(t, 5, strings.Count(stderr.String(), "one\n"))
	assert.Equal(t, 5, strings.Count(stderr.String(), "two\n"))
}

func TestRunPipeline_firstStageMissing(t *testing.T) {
	requireTools(t, "wc")
	e, stdout, _ := newTestExecutor(t, nil)

	err := e.RunPipeline(context.Background(), mustParse(t, "minish_nonexistent_command_xyz", "|", "wc", "-l"))

	assert.True(t, IsType(err, ExecutionErrorTypeCommandNotFound), "期望命令未找到，得到 %v", err)
	// 第二级仍然运行并读到 EOF
	assert.Equal(t, "0", strings.TrimSpace(stdout.String()))
}

func TestRunPipeline_secondStageMissing(t *testing.T) {
	requireTools(t, "sh")
	e, _, _ := newTestExecutor(t, nil)

	err := e.RunPipeline(context.Background(), mustParse(t, "sh", "-c", "echo x", "|", "minish_nonexistent_command_xyz"))
	assert.True(t, IsType(err, ExecutionErrorTypeCommandNotFound), "期望命令未找到，得到 %v", err)
}

func TestWaitError(t *testing.T) {
	e, _, _ := newTestExecutor(t, nil)

	err := e.waitError("sleep", []string{"30"}, supervisor.ErrTimeout)
	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, ExecutionErrorTypeTimeout, execErr.Type)
	assert.Equal(t, 137, execErr.ExitCode())
	assert.True(t, execErr.Notified())

	err = e.waitError("sleep", nil, context.Canceled)
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, ExecutionErrorTypeInterrupted, execErr.Type)
	assert.Equal(t, 130, execErr.ExitCode())

	assert.NoError(t, e.waitError("true", nil, nil))
	assert.NoError(t, e.waitError("sh", nil, exec.ErrWaitDelay), "输出管道超时关闭不是错误")
}

func TestExecutionError_messages(t *testing.T) {
	tests := []struct {
		err      *ExecutionError
		expected string
		code     int
	}{
		{
			newExecutionError(ExecutionErrorTypeRedirectError, "open in: no such file or directory", "sort", []string{"-r"}, nil),
			"重定向错误: open in: no such file or directory: sort -r",
			1,
		},
		{
			newExecutionError(ExecutionErrorTypePipeError, "创建管道失败", "ls", nil, errors.New("too many open files")),
			"管道错误: 创建管道失败: ls: too many open files",
			1,
		},
		{
			newExecutionError(ExecutionErrorTypeStartFailed, "", "./script", nil, errors.New("permission denied")),
			"无法启动命令: ./script: permission denied",
			126,
		},
		{
			newExecutionError(ExecutionErrorTypeInterrupted, "", "sleep", nil, nil),
			"命令被中断",
			130,
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.err.Error())
		assert.Equal(t, tt.code, tt.err.ExitCode())
	}
}
