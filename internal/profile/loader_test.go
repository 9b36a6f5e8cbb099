package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProviderLoader(t *testing.T) {
	l := NewProviderLoader()
	l.Register("Blade & Soul", func() (any, error) { return keysOnly{}, nil })
	l.Register("broken", func() (any, error) { return nil, errors.New("init failed") })

	assert.Equal(t, []string{"bladesoul", "broken"}, l.IDs())

	src, err := l.Lookup("bladesoul")
	require.NoError(t, err)
	assert.IsType(t, keysOnly{}, src)

	_, err = l.Lookup("missing")
	require.ErrorIs(t, err, ErrSourceNotFound)

	_, err = l.Lookup("broken")
	require.EqualError(t, err, "init failed")
}

func TestDirLoaderLookup(t *testing.T) {
	l := NewDirLoader(WithPaths("testdata"))

	src, err := l.Lookup("dota2")
	require.NoError(t, err)
	assert.Equal(t, "Dota 2", src.(*Source).Name)

	_, err = l.Lookup("nothing")
	require.ErrorIs(t, err, ErrSourceNotFound)

	_, err = l.Lookup("broken")
	require.ErrorIs(t, err, ErrInvalidDocument)
}

func TestDirLoaderIDs(t *testing.T) {
	l := NewDirLoader(WithPaths("testdata"))
	assert.Equal(t, []string{"badaction", "broken", "cs2", "dota2", "keysonly"}, l.IDs())
}

func TestDirLoaderPrecedence(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	writeDoc(t, first, "Game.yaml", "name: From YAML\n")
	writeDoc(t, first, "game.toml", "name = \"From TOML\"\n")
	writeDoc(t, second, "game.json", `{"name": "From second dir"}`)
	writeDoc(t, second, "other.json", `{"name": "Other"}`)

	l := NewDirLoader(WithPaths(first, second, filepath.Join(first, "missing")))

	src, err := l.Lookup("game")
	require.NoError(t, err)
	assert.Equal(t, "From TOML", src.(*Source).Name, "toml preferred within a directory")

	src, err = l.Lookup("other")
	require.NoError(t, err)
	assert.Equal(t, "Other", src.(*Source).Name)

	assert.Equal(t, []string{"game", "other"}, l.IDs())
}

func TestDirLoaderCacheInvalidate(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "game.toml", "name = \"One\"\n")

	l := NewDirLoader(WithPaths(dir))

	src, err := l.Lookup("game")
	require.NoError(t, err)
	assert.Equal(t, "One", src.(*Source).Name)

	require.NoError(t, os.WriteFile(path, []byte("name = \"Two\"\n"), 0o644))

	src, err = l.Lookup("game")
	require.NoError(t, err)
	assert.Equal(t, "One", src.(*Source).Name, "served from cache")

	l.Invalidate()

	src, err = l.Lookup("game")
	require.NoError(t, err)
	assert.Equal(t, "Two", src.(*Source).Name)
}

func TestDefaultProfilePaths(t *testing.T) {
	paths := DefaultProfilePaths()
	require.NotEmpty(t, paths)
	for _, p := range paths {
		assert.Equal(t, "profiles", filepath.Base(p))
	}
	assert.Equal(t, paths, NewDirLoader().Paths())
}
