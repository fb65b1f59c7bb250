package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchFileSignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "init.hcl")
	require.NoError(t, os.WriteFile(path, []byte("a = 1\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan struct{}, 1)
	require.NoError(t, WatchFile(ctx, path, changed))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.hcl"), []byte("b = 2\n"), 0o644))
	select {
	case <-changed:
		t.Fatal("unrelated file triggered a change")
	case <-time.After(300 * time.Millisecond):
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("a = 2\n"), 0o644))
	}
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change signalled")
	}
	select {
	case <-changed:
		t.Fatal("burst of writes signalled more than once")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchFileMissingDirectory(t *testing.T) {
	err := WatchFile(context.Background(), filepath.Join(t.TempDir(), "nope", "init.hcl"), make(chan struct{}, 1))
	assert.Error(t, err)
}
