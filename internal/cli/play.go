package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ItvordRE/MacroRecorder/internal/app"
	"github.com/ItvordRE/MacroRecorder/internal/profile"
)

type playOptions struct {
	profile string
	preset  string
	id      string
	loop    bool
	dryRun  bool
	timeout time.Duration
	stats   bool
}

type playResult struct {
	Source     string               `json:"source"`
	Name       string               `json:"name,omitempty"`
	Profile    string               `json:"profile"`
	Events     int                  `json:"events"`
	Iterations int                  `json:"iterations"`
	Executed   int                  `json:"executed"`
	Cancelled  bool                 `json:"cancelled"`
	Restored   bool                 `json:"restored"`
	Stats      *app.MetricsSnapshot `json:"stats,omitempty"`
}

func (c *CLI) newPlayCommand() *cobra.Command {
	var opts playOptions

	cmd := &cobra.Command{
		Use:     "play [file]",
		GroupID: "session",
		Short:   "Replay a macro",
		Long: `Play replays a macro file, a profile preset or a library entry.

With no file, --preset or --id the auto-save file is replayed. Timed
recordings keep their original pacing; presets wait the preset delay
between events. A looping playback runs until Ctrl-C or --timeout.`,
		Example: `  macrorec play recording.json
  macrorec play --profile "Dota 2" --preset "Combo Q-W-E" --loop
  macrorec play --id 3f2a --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("loop") {
				opts.loop = c.cfg.Playback.Loop
			}
			return c.runPlay(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "", "game profile to play with")
	cmd.Flags().StringVarP(&opts.preset, "preset", "P", "", "play a preset of the profile")
	cmd.Flags().StringVar(&opts.id, "id", "", "play a library entry by id or id prefix")
	cmd.Flags().BoolVarP(&opts.loop, "loop", "l", false, "repeat until stopped (default from config)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print actions instead of performing them")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "stop playback after this long")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "print playback statistics")
	cmd.MarkFlagsMutuallyExclusive("preset", "id")
	return cmd
}

func (c *CLI) runPlay(cmd *cobra.Command, args []string, opts playOptions) error {
	if len(args) > 0 && (opts.preset != "" || opts.id != "") {
		return errors.New("a file cannot be combined with --preset or --id")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if opts.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	s, err := c.openSession(opts.dryRun, cancel)
	if err != nil {
		return err
	}
	defer s.Close()

	source, err := c.loadSequence(ctx, s, args, opts)
	if err != nil {
		return err
	}

	if err := s.ctrl.StartPlayback(ctx, opts.loop); err != nil {
		return err
	}
	outcome, playErr := s.ctrl.WaitPlayback()

	res := playResult{
		Source:     source,
		Name:       s.ctrl.Name(),
		Profile:    s.ctrl.Profile().Name(),
		Events:     len(s.ctrl.Events()),
		Iterations: outcome.Iterations,
		Executed:   outcome.Executed,
		Cancelled:  outcome.Cancelled,
		Restored:   outcome.Restored,
	}
	if opts.stats {
		snap := s.ctrl.Metrics().Snapshot()
		res.Stats = &snap
	}

	if err := s.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("closing session")
	}
	if playErr != nil {
		return fmt.Errorf("playback failed after %s: %w", formatCount(res.Executed, "event"), playErr)
	}
	return c.printPlayResult(cmd, res)
}

// loadSequence makes the requested macro the active sequence and
// returns a description of where it came from.
func (c *CLI) loadSequence(ctx context.Context, s *session, args []string, opts playOptions) (string, error) {
	if opts.preset != "" {
		if err := c.selectProfile(s, opts.profile); err != nil {
			return "", err
		}
		if _, err := s.ctrl.LoadPreset(opts.preset); err != nil {
			if !errors.Is(err, app.ErrPresetNotFound) {
				return "", err
			}
			p := s.ctrl.Profile()
			available := "none"
			if names := profile.PresetNames(p); len(names) > 0 {
				available = strings.Join(names, ", ")
			}
			return "", fmt.Errorf("%w: %q in profile %s (available: %s)", err, opts.preset, p.Name(), available)
		}
		return "preset", nil
	}

	var source string
	switch {
	case opts.id != "":
		lib, err := c.openLibrary()
		if err != nil {
			return "", err
		}
		m, err := lib.Get(ctx, opts.id)
		_ = lib.Close()
		if err != nil {
			return "", err
		}
		if err := s.ctrl.ApplyMacro(m.Events, m.Metadata); err != nil {
			return "", err
		}
		source = "library:" + m.ID

	default:
		path := c.cfg.Storage.AutoSave
		if len(args) > 0 {
			path = args[0]
		}
		if path == "" {
			return "", errors.New("no macro file given and auto-save is disabled")
		}
		if _, err := s.ctrl.LoadMacro(path); err != nil {
			return "", err
		}
		source = path
	}

	return source, c.selectProfile(s, opts.profile)
}

// selectProfile activates the named profile. An unknown name only warns
// and leaves the active profile in place.
func (c *CLI) selectProfile(s *session, name string) error {
	if name == "" {
		return nil
	}
	if _, err := s.ctrl.SelectProfile(name); err != nil {
		if !errors.Is(err, profile.ErrProfileNotFound) {
			return err
		}
		c.logger.Warn().Str("profile", name).Str("active", s.ctrl.Profile().Name()).Msg("unknown profile")
	}
	return nil
}

func (c *CLI) printPlayResult(cmd *cobra.Command, res playResult) error {
	w := cmd.OutOrStdout()
	if c.jsonOutput() {
		return writeJSON(w, res)
	}

	label := res.Source
	if res.Name != "" {
		label = strconv.Quote(res.Name) + " (" + res.Source + ")"
	}
	fmt.Fprintf(w, "Played %s with profile %s\n", label, res.Profile)
	fmt.Fprintf(w, "%s executed over %s\n", formatCount(res.Executed, "event"), formatCount(res.Iterations, "iteration"))
	if res.Cancelled {
		fmt.Fprintln(w, "Playback stopped")
	}

	if res.Stats == nil {
		return nil
	}
	st := res.Stats
	return writeTable(w, tableData{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Play time", formatSeconds(st.PlayTime)},
			{"Events/s", fmt.Sprintf("%.1f", st.EventsPerSecond())},
			{"Min gap", formatSeconds(st.MinStep)},
			{"Avg gap", formatSeconds(st.AvgStep)},
			{"Max gap", formatSeconds(st.MaxStep)},
			{"Failure rate", fmt.Sprintf("%.0f%%", st.FailureRate())},
		},
		Alignment: []Align{AlignLeft, AlignRight},
	})
}
