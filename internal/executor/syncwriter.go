package executor

import (
	"io"
	"os"
	"reflect"
	"sync"
)

// lockedWriter 串行化写入
// 子进程的输出不是 *os.File 时，os/exec 为每个 Cmd 启动复制 goroutine，
// 管道两级和后台进程会同时写同一个 writer
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// SyncWriter 返回可以被多个子进程共享的 writer
// nil、*os.File 和已经包装过的 writer 原样返回
func SyncWriter(w io.Writer) io.Writer {
	switch w.(type) {
	case nil, *os.File, *lockedWriter:
		return w
	}
	return &lockedWriter{w: w}
}

// SyncStdio 包装标准输出和标准错误，两者是同一个 writer 时共用一把锁
func SyncStdio(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	out := SyncWriter(stdout)
	if sameWriter(stdout, stderr) {
		return out, out
	}
	return out, SyncWriter(stderr)
}

func sameWriter(a, b io.Writer) bool {
	if a == nil || b == nil {
		return false
	}
	ta := reflect.TypeOf(a)
	return ta == reflect.TypeOf(b) && ta.Comparable() && a == b
}
