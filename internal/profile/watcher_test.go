package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherInvalidatesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "game.toml", "name = \"One\"\n")

	loader := NewDirLoader(WithPaths(dir))
	src, err := loader.Lookup("game")
	require.NoError(t, err)
	require.Equal(t, "One", src.(*Source).Name)

	changed := make(chan string, 16)
	w, err := NewWatcher(loader,
		WithDebounce(10*time.Millisecond),
		WithOnChange(func(p string) { changed <- p }),
	)
	require.NoError(t, err)
	defer w.Close()

	require.Equal(t, []string{dir}, w.Dirs())

	require.NoError(t, os.WriteFile(path, []byte("name = \"Two\"\n"), 0o644))

	select {
	case p := <-changed:
		assert.Equal(t, filepath.Clean(path), p)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}

	src, err = loader.Lookup("game")
	require.NoError(t, err)
	assert.Equal(t, "Two", src.(*Source).Name)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	loader := NewDirLoader(WithPaths(dir))

	changed := make(chan string, 16)
	w, err := NewWatcher(loader,
		WithDebounce(0),
		WithOnChange(func(p string) { changed <- p }),
	)
	require.NoError(t, err)
	defer w.Close()

	writeDoc(t, dir, "notes.txt", "hello")
	doc := writeDoc(t, dir, "new.yaml", "name: New\n")

	select {
	case p := <-changed:
		assert.Equal(t, filepath.Clean(doc), p)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestWatcherSkipsMissingDirs(t *testing.T) {
	loader := NewDirLoader(WithPaths(filepath.Join(t.TempDir(), "missing")))

	w, err := NewWatcher(loader)
	require.NoError(t, err)
	assert.Empty(t, w.Dirs())

	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "close is idempotent")
}
