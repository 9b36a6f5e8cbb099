package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ItvordRE/MacroRecorder/internal/input/macro"
	"github.com/ItvordRE/MacroRecorder/internal/profile"
)

// Profile sources shown by the profiles command.
const (
	sourceDefault = "default"
	sourceBuiltin = "builtin"
	sourceFile    = "file"
	sourceInvalid = "invalid"
)

type profileRow struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	Source  string `json:"source"`
	Keys    int    `json:"keys"`
	Coords  int    `json:"coords"`
	Presets int    `json:"presets"`
	Error   string `json:"error,omitempty"`
}

type presetRow struct {
	Name     string   `json:"name"`
	Events   int      `json:"events"`
	Duration float64  `json:"duration_seconds"`
	Steps    []string `json:"steps"`
}

func (c *CLI) newProfilesCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:     "profiles",
		GroupID: "manage",
		Short:   "List game profiles",
		Long: `Profiles lists the built-in game profiles and the profile documents
found in the configured profile directories. A document named like a
built-in profile replaces it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, loader := c.newRegistry()
			if err := c.printProfiles(cmd, registry, loader); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return c.watchProfiles(cmd, registry, loader)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and list again when profile documents change")
	return cmd
}

func (c *CLI) collectProfiles(registry *profile.Registry, loader *profile.DirLoader) []profileRow {
	external := make(map[string]bool)
	for _, id := range loader.IDs() {
		external[id] = true
	}

	names := registry.Names()
	rows := make([]profileRow, 0, len(names))
	for _, name := range names {
		id := profile.NormalizeID(name)
		row := profileRow{Name: name, ID: id}

		switch {
		case profile.IsDefaultName(name):
			row.Source = sourceDefault
		case external[id]:
			row.Source = sourceFile
		default:
			row.Source = sourceBuiltin
		}

		p, err := registry.Resolve(name)
		if err != nil {
			row.Source = sourceInvalid
			row.Error = err.Error()
		} else {
			row.Name = p.Name()
			row.Keys = len(p.KeyMap())
			row.Coords = len(p.DefaultCoords())
			row.Presets = len(p.Presets())
		}
		rows = append(rows, row)
	}
	return rows
}

func (c *CLI) printProfiles(cmd *cobra.Command, registry *profile.Registry, loader *profile.DirLoader) error {
	rows := c.collectProfiles(registry, loader)
	w := cmd.OutOrStdout()
	if c.jsonOutput() {
		return writeJSON(w, rows)
	}

	data := tableData{
		Headers:   []string{"Name", "ID", "Source", "Keys", "Coords", "Presets"},
		Alignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight},
	}
	for _, r := range rows {
		data.Rows = append(data.Rows, []string{
			r.Name, r.ID, r.Source,
			strconv.Itoa(r.Keys), strconv.Itoa(r.Coords), strconv.Itoa(r.Presets),
		})
	}
	return writeTable(w, data)
}

func (c *CLI) watchProfiles(cmd *cobra.Command, registry *profile.Registry, loader *profile.DirLoader) error {
	changes := make(chan string, 1)
	w, err := profile.NewWatcher(loader,
		profile.WithOnChange(func(path string) {
			select {
			case changes <- path:
			default:
			}
		}),
		profile.WithWatcherLogger(c.component("watcher")),
	)
	if err != nil {
		return fmt.Errorf("watching profiles: %w", err)
	}
	defer w.Close()

	if len(w.Dirs()) == 0 {
		return fmt.Errorf("no profile directory exists in %s", strings.Join(loader.Paths(), ", "))
	}
	c.logger.Info().Strs("dirs", w.Dirs()).Msg("watching profile directories")

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-changes:
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s changed\n", path)
			if err := c.printProfiles(cmd, registry, loader); err != nil {
				return err
			}
		}
	}
}

func (c *CLI) newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "presets <profile>",
		GroupID: "manage",
		Short:   "List the presets of a profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, _ := c.newRegistry()
			p, err := registry.Resolve(args[0])
			if err != nil {
				return err
			}
			return c.printPresets(cmd, p)
		},
	}
}

func (c *CLI) printPresets(cmd *cobra.Command, p profile.Profile) error {
	delay := c.cfg.Playback.PresetDelay.Std()

	presets := p.Presets()
	rows := make([]presetRow, 0, len(presets))
	for _, pr := range presets {
		steps := make([]string, len(pr.Actions))
		for i, e := range pr.Actions {
			steps[i] = e.String()
		}
		rows = append(rows, presetRow{
			Name:     pr.Name,
			Events:   len(pr.Actions),
			Duration: macro.Duration(pr.Actions, delay).Seconds(),
			Steps:    steps,
		})
	}

	w := cmd.OutOrStdout()
	if c.jsonOutput() {
		return writeJSON(w, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintf(w, "Profile %s has no presets\n", p.Name())
		return nil
	}

	data := tableData{
		Headers:   []string{"Preset", "Events", "Duration", "Steps"},
		Alignment: []Align{AlignLeft, AlignRight, AlignRight, AlignLeft},
	}
	for _, r := range rows {
		data.Rows = append(data.Rows, []string{
			r.Name,
			strconv.Itoa(r.Events),
			humanSeconds(r.Duration),
			strings.Join(r.Steps, ", "),
		})
	}
	return writeTable(w, data)
}
