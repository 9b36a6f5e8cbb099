package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"off", zerolog.Disabled},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("loud")
	require.ErrorIs(t, err, ErrInvalidLevel)
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.ErrorIs(t, Config{Level: "verbose"}.Validate(), ErrInvalidLevel)
	require.ErrorIs(t, Config{Level: "info", Format: "xml"}.Validate(), ErrInvalidFormat)
}

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	l := Component(NewWriter(&buf, Config{Level: "debug", Format: FormatAuto}), "playback")

	l.Debug().Int("events", 3).Msg("playback started")
	l.Trace().Msg("hidden")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1, "auto format on a buffer is json and trace is filtered")

	line := lines[0]
	assert.Equal(t, "debug", gjson.GetBytes(line, "level").String())
	assert.Equal(t, "playback", gjson.GetBytes(line, "component").String())
	assert.Equal(t, int64(3), gjson.GetBytes(line, "events").Int())
	assert.Equal(t, "playback started", gjson.GetBytes(line, "message").String())
	assert.True(t, gjson.GetBytes(line, "time").Exists())
}

func TestNewWriterConsole(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, Config{Level: "info", Format: FormatConsole})

	l.Info().Str("profile", "CS2").Msg("profile selected")
	assert.Contains(t, buf.String(), "profile selected")
	assert.Contains(t, buf.String(), "profile=CS2")
	assert.False(t, gjson.Valid(buf.String()))
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macrorec.log")

	l, closer, err := New(Config{Level: "warn", Format: FormatJSON, Output: path})
	require.NoError(t, err)

	l.Info().Msg("dropped")
	l.Warn().Msg("kept")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestNewErrors(t *testing.T) {
	_, _, err := New(Config{Level: "nope"})
	require.ErrorIs(t, err, ErrInvalidLevel)

	_, _, err = New(Config{Level: "info", Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	require.Error(t, err)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
