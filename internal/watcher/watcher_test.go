package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileWatcher(t *testing.T) {
	fw, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	assert.NotNil(t, fw.watcher)
	assert.NotNil(t, fw.debouncer)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "created", EventTypeCreated.String())
	assert.Equal(t, "modified", EventTypeModified.String())
	assert.Equal(t, "deleted", EventTypeDeleted.String())
	assert.Equal(t, "renamed", EventTypeRenamed.String())
	assert.Equal(t, "unknown", EventType(42).String())
}

func TestMarkdownFilter(t *testing.T) {
	assert.True(t, MarkdownFilter("posts/hello.md"))
	assert.True(t, MarkdownFilter("posts/hello.markdown"))
	assert.False(t, MarkdownFilter("posts/hello.txt"))
	assert.False(t, MarkdownFilter("posts/hello.md.bak"))
}

func TestNoHiddenFilter(t *testing.T) {
	assert.True(t, NoHiddenFilter("posts/hello.md"))
	assert.False(t, NoHiddenFilter("posts/.hello.md.swp"))
	assert.False(t, NoHiddenFilter("posts/hello.md~"))
	assert.False(t, NoHiddenFilter("posts/.DS_Store"))
}

func TestAddPathRejectsTraversal(t *testing.T) {
	fw, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	err = fw.AddPath("../outside/posts")
	assert.Error(t, err)
}

func TestWatcherDeliversDebouncedBatch(t *testing.T) {
	tempDir := t.TempDir()

	fw, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	fw.AddFilter(MarkdownFilter)

	var mu sync.Mutex
	var batches [][]ChangeEvent
	done := make(chan struct{}, 1)
	fw.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		batches = append(batches, events)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, fw.Start(ctx))
	require.NoError(t, fw.watcher.Add(tempDir))

	// Rapid writes to one file should collapse into a single batch entry
	target := filepath.Join(tempDir, "post.md")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte("content"), 0644))
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("no change batch delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, batches)
	paths := make(map[string]int)
	for _, event := range batches[0] {
		paths[event.Path]++
	}
	assert.Equal(t, 1, paths[target], "duplicate events for one path must be deduplicated")
}

func TestWatcherFiltersNonMarkdown(t *testing.T) {
	tempDir := t.TempDir()

	fw, err := NewFileWatcher(30*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	fw.AddFilter(MarkdownFilter)

	received := make(chan []ChangeEvent, 1)
	fw.AddHandler(func(events []ChangeEvent) error {
		select {
		case received <- events:
		default:
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, fw.Start(ctx))
	require.NoError(t, fw.watcher.Add(tempDir))

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "ignored.txt"), []byte("x"), 0644))

	select {
	case events := <-received:
		t.Fatalf("expected no events for non-markdown file, got %v", events)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherStopIsIdempotentWithCancelledContext(t *testing.T) {
	fw, err := NewFileWatcher(30*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, fw.Start(ctx))

	cancel()
	assert.NoError(t, fw.Stop())
}
