package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ItvordRE/MacroRecorder/internal/input/macro"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// isolated returns options that ignore the real config file, .env and
// environment.
func isolated(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		Path:    writeFile(t, dir, "config.toml", ""),
		EnvFile: filepath.Join(dir, "missing.env"),
		Environ: []string{},
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
	assert.Equal(t, 100*time.Millisecond, cfg.Playback.Tick.Std())
	assert.Equal(t, 500*time.Millisecond, cfg.Playback.PresetDelay.Std())
	assert.False(t, cfg.Playback.Loop)
	assert.True(t, cfg.Profiles.Watch)
	assert.Equal(t, macro.DefaultRecordingFile, cfg.Storage.AutoSave)
	require.NoError(t, cfg.Validate())
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load(isolated(t))
	require.NoError(t, err)

	want := Default()
	want.expand()
	assert.Equal(t, want, cfg)
}

func TestLoadFile(t *testing.T) {
	opts := isolated(t)
	require.NoError(t, os.WriteFile(opts.Path, []byte(`
[log]
level = "debug"
format = "json"

[profiles]
dirs = ["/srv/profiles", "/opt/profiles"]
watch = false

[playback]
tick = "50ms"
preset_delay = "1s"
loop = true

[storage]
autosave = ""
library = "/tmp/macros.db"
`), 0o644))

	cfg, err := Load(opts)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "stderr", cfg.Log.Output, "unset keys keep defaults")
	assert.Equal(t, []string{"/srv/profiles", "/opt/profiles"}, cfg.Profiles.Dirs)
	assert.False(t, cfg.Profiles.Watch)
	assert.Equal(t, 50*time.Millisecond, cfg.Playback.Tick.Std())
	assert.Equal(t, time.Second, cfg.Playback.PresetDelay.Std())
	assert.True(t, cfg.Playback.Loop)
	assert.Empty(t, cfg.Storage.AutoSave)
	assert.Equal(t, "/tmp/macros.db", cfg.Storage.Library)
}

func TestLoadPrecedence(t *testing.T) {
	opts := isolated(t)
	require.NoError(t, os.WriteFile(opts.Path, []byte(`
[log]
level = "debug"
format = "console"

[playback]
tick = "50ms"
`), 0o644))

	opts.EnvFile = writeFile(t, t.TempDir(), ".env", `
MACROREC_LOG_LEVEL=warn
MACROREC_LOG_FORMAT=json
MACROREC_PLAYBACK_PRESET_DELAY=250ms
`)
	opts.Environ = []string{
		"MACROREC_LOG_LEVEL=error",
		"MACROREC_PROFILES_DIRS=/a,/b",
		"MACROREC_PLAYBACK_LOOP=true",
		"UNRELATED=1",
	}

	cfg, err := Load(opts)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level, "environment beats .env")
	assert.Equal(t, "json", cfg.Log.Format, ".env beats file")
	assert.Equal(t, 50*time.Millisecond, cfg.Playback.Tick.Std(), "file beats defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.Playback.PresetDelay.Std())
	assert.True(t, cfg.Playback.Loop)
	assert.Equal(t, []string{"/a", "/b"}, cfg.Profiles.Dirs)
}

func TestLoadMissingFile(t *testing.T) {
	opts := isolated(t)
	opts.Path = filepath.Join(t.TempDir(), "nope.toml")

	_, err := Load(opts)
	require.ErrorIs(t, err, ErrFileNotFound)
}

func TestLoadParseError(t *testing.T) {
	opts := isolated(t)
	require.NoError(t, os.WriteFile(opts.Path, []byte("[log]\nlevel = \n"), 0o644))

	_, err := Load(opts)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, opts.Path, perr.Path)
	assert.Equal(t, 2, perr.Line)
}

func TestLoadBadEnvDuration(t *testing.T) {
	opts := isolated(t)
	opts.Environ = []string{"MACROREC_PLAYBACK_TICK=soon"}

	_, err := Load(opts)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"zero tick", func(c *Config) { c.Playback.Tick = 0 }, "playback.tick"},
		{"negative delay", func(c *Config) { c.Playback.PresetDelay = Duration(-time.Second) }, "playback.preset_delay"},
		{"bad level", func(c *Config) { c.Log.Level = "shout" }, "log"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log"},
		{"blank dir", func(c *Config) { c.Profiles.Dirs = []string{" "} }, "profiles.dirs[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, ErrValidationFailed)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.path, verr.Path)
		})
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte("[playback]\npreset_delay = \"2s\"\n"))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Playback.PresetDelay.Std())

	_, err = Parse([]byte("[playback]\ntick = \"0s\"\n"))
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte(" 150ms ")))
	assert.Equal(t, 150*time.Millisecond, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "150ms", string(text))

	require.Error(t, d.UnmarshalText([]byte("fast")))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "profiles"), ExpandPath("~/profiles"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
	assert.Equal(t, "~user/x", ExpandPath("~user/x"))
}
