package executor

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncWriter(t *testing.T) {
	assert.Nil(t, SyncWriter(nil))
	assert.Same(t, os.Stdout, SyncWriter(os.Stdout), "*os.File 直接交给子进程")

	var buf bytes.Buffer
	w := SyncWriter(&buf)
	assert.IsType(t, &lockedWriter{}, w)
	assert.Same(t, w, SyncWriter(w), "不应重复包装")
}

func TestSyncWriter_concurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	w := SyncWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = w.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, strings.Count(buf.String(), "line\n"))
}

func TestSyncStdio(t *testing.T) {
	var shared bytes.Buffer
	out, errOut := SyncStdio(&shared, &shared)
	assert.Same(t, out, errOut, "同一个 writer 共用一把锁")

	var a, b bytes.Buffer
	out, errOut = SyncStdio(&a, &b)
	assert.NotSame(t, out, errOut)

	out, errOut = SyncStdio(os.Stdout, os.Stderr)
	assert.Same(t, os.Stdout, out)
	assert.Same(t, os.Stderr, errOut)
}
