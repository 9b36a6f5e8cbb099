package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ItvordRE/MacroRecorder/internal/input/macro"
	"github.com/ItvordRE/MacroRecorder/internal/library"
)

// shortIDLen is how much of an entry id the list table shows.
const shortIDLen = 8

type entryRow struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Profile    string `json:"profile"`
	EventCount int    `json:"events"`
	Created    string `json:"created"`
	Size       int    `json:"size"`
}

func toEntryRow(e library.Entry) entryRow {
	row := entryRow{
		ID:         e.ID,
		Name:       e.Name,
		Profile:    e.Profile,
		EventCount: e.EventCount,
		Size:       e.Size,
	}
	if !e.Created.IsZero() {
		row.Created = e.Created.Format(macro.CreatedLayout)
	}
	return row
}

func (c *CLI) newLibraryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "library",
		Aliases: []string{"lib"},
		GroupID: "manage",
		Short:   "Manage the macro library",
		Long: `Library keeps saved macros in a SQLite database (storage.library).
Entries are addressed by id or by any unique id prefix.`,
	}

	cmd.AddCommand(
		c.newLibraryListCommand(),
		c.newLibraryAddCommand(),
		c.newLibraryShowCommand(),
		c.newLibraryRenameCommand(),
		c.newLibraryDeleteCommand(),
		c.newLibraryExportCommand(),
	)
	return cmd
}

// withLibrary opens the library for the duration of fn.
func (c *CLI) withLibrary(fn func(lib *library.Library) error) error {
	lib, err := c.openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()
	return fn(lib)
}

func (c *CLI) newLibraryListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved macros, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withLibrary(func(lib *library.Library) error {
				entries, err := lib.List(cmd.Context())
				if err != nil {
					return err
				}
				return c.printEntries(cmd, entries)
			})
		},
	}
}

func (c *CLI) printEntries(cmd *cobra.Command, entries []library.Entry) error {
	w := cmd.OutOrStdout()
	if c.jsonOutput() {
		rows := make([]entryRow, len(entries))
		for i, e := range entries {
			rows[i] = toEntryRow(e)
		}
		return writeJSON(w, rows)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "The library is empty")
		return nil
	}

	data := tableData{
		Headers:   []string{"ID", "Name", "Profile", "Events", "Created", "Size"},
		Alignment: []Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft, AlignRight},
	}
	for _, e := range entries {
		data.Rows = append(data.Rows, []string{
			shortID(e.ID),
			e.Name,
			e.Profile,
			strconv.Itoa(e.EventCount),
			formatAge(e.Created),
			humanize.Bytes(uint64(e.Size)),
		})
	}
	return writeTable(w, data)
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func (c *CLI) newLibraryAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>...",
		Short: "Add macro files to the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLibrary(func(lib *library.Library) error {
				added := make([]library.Entry, 0, len(args))
				for _, path := range args {
					data, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					entry, err := lib.Import(cmd.Context(), data)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					c.logger.Debug().Str("path", path).Str("id", entry.ID).Msg("macro imported")
					added = append(added, entry)
				}
				return c.printEntries(cmd, added)
			})
		},
	}
}

func (c *CLI) newLibraryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved macro",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLibrary(func(lib *library.Library) error {
				m, err := lib.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return c.printMacro(cmd, m)
			})
		},
	}
}

func (c *CLI) printMacro(cmd *cobra.Command, m library.Macro) error {
	w := cmd.OutOrStdout()
	if c.jsonOutput() {
		return writeJSON(w, struct {
			entryRow
			Document json.RawMessage `json:"document"`
		}{toEntryRow(m.Entry), json.RawMessage(m.Document)})
	}

	fmt.Fprintf(w, "ID:       %s\n", m.ID)
	fmt.Fprintf(w, "Name:     %s\n", m.Name)
	fmt.Fprintf(w, "Profile:  %s\n", m.Profile)
	fmt.Fprintf(w, "Created:  %s\n", formatAge(m.Created))
	fmt.Fprintf(w, "Duration: %s\n", formatSeconds(macro.Duration(m.Events, c.cfg.Playback.PresetDelay.Std())))
	fmt.Fprintln(w)

	data := tableData{
		Headers:   []string{"#", "Type", "Detail", "Time"},
		Alignment: []Align{AlignRight, AlignLeft, AlignLeft, AlignRight},
	}
	var origin float64
	if len(m.Events) > 0 {
		origin = m.Events[0].Time
	}
	for i, e := range m.Events {
		detail := e.Key.String()
		if e.IsClick() {
			detail = fmt.Sprintf("%s at %d,%d", e.Button, e.X, e.Y)
		}
		at := "-"
		if e.Timed {
			at = "+" + humanSeconds(e.Time-origin)
		}
		data.Rows = append(data.Rows, []string{strconv.Itoa(i + 1), e.Kind.String(), detail, at})
	}
	return writeTable(w, data)
}

func (c *CLI) newLibraryRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a saved macro",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLibrary(func(lib *library.Library) error {
				if err := lib.Rename(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", args[0], args[1])
				return nil
			})
		},
	}
}

func (c *CLI) newLibraryDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete saved macros",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLibrary(func(lib *library.Library) error {
				for _, ref := range args {
					if err := lib.Delete(cmd.Context(), ref); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", ref)
				}
				return nil
			})
		},
	}
}

func (c *CLI) newLibraryExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <id> [file]",
		Short: "Write a saved macro to a file or standard output",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withLibrary(func(lib *library.Library) error {
				m, err := lib.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(args) == 1 || args[1] == "-" {
					_, err := cmd.OutOrStdout().Write(m.Document)
					return err
				}
				if err := macro.SaveFile(args[1], m.Events, m.Metadata); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", shortID(m.ID), args[1])
				return nil
			})
		},
	}
}
