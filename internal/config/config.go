package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/ItvordRE/MacroRecorder/internal/input/macro"
	"github.com/ItvordRE/MacroRecorder/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MACROREC_"

// Default playback timing.
const (
	DefaultTick        = 100 * time.Millisecond
	DefaultPresetDelay = 500 * time.Millisecond
)

// Duration is a time.Duration written as a string such as "100ms" in
// TOML files and environment variables.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete configuration.
type Config struct {
	Log      LogConfig      `toml:"log" envPrefix:"LOG_"`
	Profiles ProfilesConfig `toml:"profiles" envPrefix:"PROFILES_"`
	Playback PlaybackConfig `toml:"playback" envPrefix:"PLAYBACK_"`
	Storage  StorageConfig  `toml:"storage" envPrefix:"STORAGE_"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level   string `toml:"level" env:"LEVEL"`
	Format  string `toml:"format" env:"FORMAT"`
	Output  string `toml:"output" env:"OUTPUT"`
	NoColor bool   `toml:"no_color" env:"NO_COLOR"`
}

// ProfilesConfig configures external profile discovery.
type ProfilesConfig struct {
	// Dirs are the profile document search directories. Empty means the
	// default directories.
	Dirs []string `toml:"dirs" env:"DIRS" envSeparator:","`

	// Watch reloads profiles when documents change.
	Watch bool `toml:"watch" env:"WATCH"`
}

// PlaybackConfig configures playback timing.
type PlaybackConfig struct {
	Tick        Duration `toml:"tick" env:"TICK"`
	PresetDelay Duration `toml:"preset_delay" env:"PRESET_DELAY"`
	Loop        bool     `toml:"loop" env:"LOOP"`
}

// StorageConfig configures where macros are written.
type StorageConfig struct {
	// AutoSave receives every finished recording. Empty disables it.
	AutoSave string `toml:"autosave" env:"AUTOSAVE"`

	// Library is the SQLite macro library path.
	Library string `toml:"library" env:"LIBRARY"`
}

// Default returns the built-in defaults.
func Default() Config {
	d := logging.DefaultConfig()
	return Config{
		Log: LogConfig{
			Level:   d.Level,
			Format:  d.Format,
			Output:  d.Output,
			NoColor: d.NoColor,
		},
		Profiles: ProfilesConfig{Watch: true},
		Playback: PlaybackConfig{
			Tick:        Duration(DefaultTick),
			PresetDelay: Duration(DefaultPresetDelay),
		},
		Storage: StorageConfig{
			AutoSave: macro.DefaultRecordingFile,
			Library:  DefaultLibraryPath(),
		},
	}
}

// Logging returns the logging configuration.
func (c Config) Logging() logging.Config {
	return logging.Config{
		Level:   c.Log.Level,
		Format:  c.Log.Format,
		Output:  c.Log.Output,
		NoColor: c.Log.NoColor,
	}
}

// Validate checks every setting.
func (c Config) Validate() error {
	var errs []error

	if err := c.Logging().Validate(); err != nil {
		errs = append(errs, &ValidationError{Path: "log", Message: err.Error(), Value: c.Log.Level + "/" + c.Log.Format})
	}
	if c.Playback.Tick <= 0 {
		errs = append(errs, &ValidationError{Path: "playback.tick", Message: "must be positive", Value: c.Playback.Tick.Std()})
	}
	if c.Playback.PresetDelay <= 0 {
		errs = append(errs, &ValidationError{Path: "playback.preset_delay", Message: "must be positive", Value: c.Playback.PresetDelay.Std()})
	}
	for i, dir := range c.Profiles.Dirs {
		if strings.TrimSpace(dir) == "" {
			errs = append(errs, &ValidationError{Path: fmt.Sprintf("profiles.dirs[%d]", i), Message: "must not be empty", Value: dir})
		}
	}

	return errors.Join(errs...)
}

// Options controls where Load reads from.
type Options struct {
	// Path is the config file. Empty means DefaultPath; a missing default
	// file is not an error, a missing explicit file is.
	Path string

	// EnvFile is a dotenv file read before the process environment.
	// Empty means ".env"; a missing file is ignored.
	EnvFile string

	// Environ overrides the process environment. Nil means os.Environ.
	Environ []string
}

// Load builds the configuration from defaults, the config file, the
// dotenv file and the environment, then validates it.
func Load(opts Options) (Config, error) {
	cfg := Default()

	path := opts.Path
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.loadFile(ExpandPath(path), explicit); err != nil {
			return cfg, err
		}
	}

	environ, err := environment(opts)
	if err != nil {
		return cfg, err
	}
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	cfg.expand()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes TOML data over the defaults without consulting the
// environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := cfg.decode("<data>", data); err != nil {
		return cfg, err
	}
	cfg.expand()
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if explicit {
				return fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return c.decode(path, data)
}

func (c *Config) decode(source string, data []byte) error {
	if err := toml.Unmarshal(data, c); err != nil {
		perr := &ParseError{Path: source, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return perr
	}
	return nil
}

func (c *Config) expand() {
	for i, dir := range c.Profiles.Dirs {
		c.Profiles.Dirs[i] = ExpandPath(dir)
	}
	c.Storage.AutoSave = ExpandPath(c.Storage.AutoSave)
	c.Storage.Library = ExpandPath(c.Storage.Library)
}

// environment merges the dotenv file under the process environment.
func environment(opts Options) (map[string]string, error) {
	merged := make(map[string]string)

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := godotenv.Read(envFile)
	switch {
	case err == nil:
		for k, v := range dotenv {
			merged[k] = v
		}
	case !os.IsNotExist(err) && !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("reading %s: %w", envFile, err)
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			merged[k] = v
		}
	}
	return merged, nil
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "macrorec", "config.toml")
}

// DefaultLibraryPath returns the default macro library path.
func DefaultLibraryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "macrorec.db"
	}
	return filepath.Join(dir, "macrorec", "library.db")
}

// ExpandPath replaces a leading "~" with the home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
