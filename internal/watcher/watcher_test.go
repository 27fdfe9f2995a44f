package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func next(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher event")
		return Event{}
	}
}

func TestWatch_ExistingAndNewFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "old.pdf")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("x"), 0o644))

	w, err := New(nil)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := w.Watch(ctx, dir)
	require.NoError(t, err)

	assert.Equal(t, Event{Path: existing, Op: Added}, next(t, events))

	created := filepath.Join(dir, "new.PDF")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(created, []byte("x"), 0o644))
	ev := next(t, events)
	assert.Equal(t, created, ev.Path)
	assert.Equal(t, Added, ev.Op)

	require.NoError(t, os.Remove(existing))
	for {
		ev = next(t, events)
		if ev.Op == Removed {
			break
		}
	}
	assert.Equal(t, existing, ev.Path)
}

func TestWatch_MissingDir(t *testing.T) {
	w, err := New(nil)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Watch(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestWatch_CancelClosesChannel(t *testing.T) {
	w, err := New(nil)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := w.Watch(ctx, t.TempDir())
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "added", Added.String())
	assert.Equal(t, "removed", Removed.String())
}
