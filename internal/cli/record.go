package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ItvordRE/MacroRecorder/internal/app"
	"github.com/ItvordRE/MacroRecorder/internal/input/macro"
)

type recordOptions struct {
	profile string
	out     string
	name    string
	library bool
}

type recordResult struct {
	Events    int     `json:"events"`
	Profile   string  `json:"profile"`
	Duration  float64 `json:"duration_seconds"`
	AutoSave  string  `json:"autosave,omitempty"`
	File      string  `json:"file,omitempty"`
	LibraryID string  `json:"library_id,omitempty"`
}

func (c *CLI) newRecordCommand() *cobra.Command {
	var opts recordOptions

	cmd := &cobra.Command{
		Use:     "record",
		GroupID: "session",
		Short:   "Record clicks and key presses",
		Long: `Record captures clicks and key presses until q or Esc is pressed.

The recording is written to the auto-save file and, with --out, to a
macro file of its own. --library also adds it to the macro library.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runRecord(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "", "game profile to record with")
	cmd.Flags().StringVarP(&opts.out, "out", "f", "", "also save the recording to this file")
	cmd.Flags().StringVarP(&opts.name, "name", "n", app.AutoSaveName, "macro name for --out and --library")
	cmd.Flags().BoolVar(&opts.library, "library", false, "add the recording to the macro library")
	return cmd
}

func (c *CLI) runRecord(cmd *cobra.Command, opts recordOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s, err := c.openSession(false, cancel)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := c.selectProfile(s, opts.profile); err != nil {
		return err
	}

	if err := s.ctrl.StartRecording(); err != nil {
		return err
	}

	var saveErr error
	select {
	case <-s.ctrl.RecordingDone():
		saveErr = s.ctrl.RecordingErr()
	case <-ctx.Done():
		_, saveErr = s.ctrl.StopRecording()
		if errors.Is(saveErr, macro.ErrNotRecording) {
			saveErr = s.ctrl.RecordingErr()
		}
	}

	events := s.ctrl.Events()
	res := recordResult{
		Events:   len(events),
		Profile:  s.ctrl.Profile().Name(),
		Duration: s.ctrl.Duration().Seconds(),
	}
	if saveErr != nil {
		c.logger.Error().Err(saveErr).Msg("auto-save failed")
	} else if c.cfg.Storage.AutoSave != "" {
		res.AutoSave = c.cfg.Storage.AutoSave
	}

	// The terminal must be released before anything is printed.
	if err := s.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("closing session")
	}

	if len(events) > 0 {
		if opts.out != "" {
			if err := s.ctrl.SaveMacro(opts.out, opts.name); err != nil {
				return err
			}
			res.File = opts.out
		}
		if opts.library {
			id, err := c.addToLibrary(context.WithoutCancel(cmd.Context()), events, macro.Metadata{
				Name:    opts.name,
				Profile: res.Profile,
			})
			if err != nil {
				return err
			}
			res.LibraryID = id
		}
	}

	return c.printRecordResult(cmd, res)
}

func (c *CLI) addToLibrary(ctx context.Context, events []macro.Event, meta macro.Metadata) (string, error) {
	lib, err := c.openLibrary()
	if err != nil {
		return "", err
	}
	defer lib.Close()

	entry, err := lib.Add(ctx, events, meta)
	if err != nil {
		return "", fmt.Errorf("adding to library: %w", err)
	}
	return entry.ID, nil
}

func (c *CLI) printRecordResult(cmd *cobra.Command, res recordResult) error {
	w := cmd.OutOrStdout()
	if c.jsonOutput() {
		return writeJSON(w, res)
	}

	fmt.Fprintf(w, "Recorded %s with profile %s\n", formatCount(res.Events, "event"), res.Profile)
	if res.AutoSave != "" {
		fmt.Fprintf(w, "Auto-saved to %s\n", res.AutoSave)
	}
	if res.File != "" {
		fmt.Fprintf(w, "Saved to %s\n", res.File)
	}
	if res.LibraryID != "" {
		fmt.Fprintf(w, "Added to library as %s\n", res.LibraryID)
	}
	return nil
}
