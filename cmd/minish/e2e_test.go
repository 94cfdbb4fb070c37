//go:build unix

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minish/internal/supervisor"
)

// minishBinary 由 TestMain 构建，构建失败时为空
var minishBinary string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "minish-e2e")
	if err == nil {
		path := filepath.Join(dir, "minish")
		build := exec.Command("go", "build", "-o", path, ".")
		if out, err := build.CombinedOutput(); err == nil {
			minishBinary = path
		} else {
			fmt.Fprintf(os.Stderr, "构建minish失败，跳过端到端测试: %v\n%s", err, out)
		}
	}

	code := m.Run()
	if dir != "" {
		os.RemoveAll(dir)
	}
	os.Exit(code)
}

func minish(t *testing.T, args ...string) *exec.Cmd {
	t.Helper()
	if minishBinary == "" {
		t.Skip("minish 可执行文件不可用")
	}
	home := t.TempDir()
	cmd := exec.Command(minishBinary, append([]string{"--config", filepath.Join(home, "none.yaml")}, args...)...)
	cmd.Env = append(os.Environ(), "HOME="+home)
	cmd.Dir = t.TempDir()
	return cmd
}

func requireTools(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s 不可用: %v", name, err)
		}
	}
}

func TestE2E_pipeAndRedirect(t *testing.T) {
	requireTools(t, "sh", "grep", "cat")

	cmd := minish(t, "-c", "sh -c env | grep -c MINISH_E2E")
	cmd.Env = append(cmd.Env, "MINISH_E2E=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "输出: %s", out)
	assert.Equal(t, "1\n", string(out))

	stdin := strings.NewReader("cat < in.txt > out.txt\n")
	cmd = minish(t)
	cmd.Stdin = stdin
	require.NoError(t, os.WriteFile(filepath.Join(cmd.Dir, "in.txt"), []byte("copied\n"), 0644))
	out, err = cmd.CombinedOutput()
	require.NoError(t, err, "输出: %s", out)

	data, err := os.ReadFile(filepath.Join(cmd.Dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "copied\n", string(data))
}

func TestE2E_backgroundReturnsImmediately(t *testing.T) {
	requireTools(t, "sleep")

	start := time.Now()
	out, err := minish(t, "-c", "sleep 3 &").CombinedOutput()
	require.NoError(t, err, "输出: %s", out)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestE2E_foregroundTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("需要等待完整的执行时间上限")
	}
	requireTools(t, "sleep")

	var stdout bytes.Buffer
	cmd := minish(t, "-c", "sleep 30")
	cmd.Stdout = &stdout

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "期望非零退出，得到 %v", err)
	assert.Equal(t, 137, exitErr.ExitCode())
	assert.Contains(t, stdout.String(), supervisor.TimeoutNotice)
	assert.GreaterOrEqual(t, elapsed, supervisor.ForegroundTimeout)
	assert.Less(t, elapsed, supervisor.ForegroundTimeout+5*time.Second)
}

func TestE2E_interruptReachesChildOnly(t *testing.T) {
	requireTools(t, "sleep")

	cmd := minish(t)
	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())

	_, err = stdin.Write([]byte("sleep 30\n"))
	require.NoError(t, err)

	// 等待子进程启动
	time.Sleep(500 * time.Millisecond)
	require.NoError(t, cmd.Process.Signal(syscall.SIGINT))

	// 解释器仍在运行，继续读取下一行
	_, err = stdin.Write([]byte("exit\n"))
	require.NoError(t, err)
	require.NoError(t, stdin.Close())

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		assert.NoError(t, err, "解释器不应被 SIGINT 终止")
	case <-time.After(5 * time.Second):
		cmd.Process.Kill()
		t.Fatal("中断没有终止前台子进程")
	}
}

func TestE2E_eof(t *testing.T) {
	cmd := minish(t)
	cmd.Stdin = strings.NewReader("")
	out, err := cmd.Output()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(out), "> \n"), "得到 %q", out)
}
