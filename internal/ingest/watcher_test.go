package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan string, n int, timeout time.Duration) map[string]struct{} {
	t.Helper()
	got := map[string]struct{}{}
	deadline := time.After(timeout)
	for len(got) < n {
		select {
		case p, ok := <-ch:
			require.True(t, ok, "event channel closed early")
			got[p] = struct{}{}
		case <-deadline:
			t.Fatalf("timed out with %d of %d events", len(got), n)
		}
	}
	return got
}

func TestWatcherEmitsDebouncedCreates(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, errs, err := StartWatcher(ctx, WatchConfig{
		Roots:    []string{dir},
		Debounce: 20 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	want := map[string]struct{}{}
	for _, name := range []string{"a.jpg", "b.png", "c.pdf"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		want[p] = struct{}{}
	}
	// disallowed extension never surfaces
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	got := collect(t, events, len(want), 5*time.Second)
	assert.Equal(t, want, got)

	select {
	case err := <-errs:
		t.Fatalf("unexpected watcher error: %v", err)
	default:
	}
}

func TestWatcherInitialScan(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "old.jpg")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}, InitialScan: true}, nil)
	require.NoError(t, err)

	got := collect(t, events, 1, 5*time.Second)
	assert.Contains(t, got, existing)
}

func TestWatcherRequiresRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}
