package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ZUGAZ/likes-to-go/pkg/export"
	"github.com/ZUGAZ/likes-to-go/pkg/storage"
	"github.com/ZUGAZ/likes-to-go/pkg/ui"
)

var inspectLimit int

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Show an export file as a table",
	Long: `Show the tracks of an export file as a table.

Without a file the newest export in the output directory is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().IntVarP(&inspectLimit, "limit", "n", 0, "show at most n tracks")
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, _, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		store, err := storage.NewManager(cfg.Output.Directory, cfg.Output.FileNamePattern)
		if err != nil {
			return err
		}
		exports, err := store.Exports()
		if err != nil {
			return err
		}
		if len(exports) == 0 {
			return fmt.Errorf("no exports in %s", store.GetOutputDir())
		}
		path = exports[0]
	}

	payload, err := storage.Load(path)
	if err != nil {
		return err
	}

	ui.PrintInfo("File", path)
	ui.PrintInfo("Exported at", payload.ExportedAt)
	ui.PrintInfo("Source", payload.SourceURL)
	renderTracks(payload, inspectLimit)
	return nil
}

func renderTracks(p export.Payload, limit int) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Title", "Artist", "Duration", "URL"})

	for i, tr := range p.Tracks {
		if limit > 0 && i >= limit {
			break
		}
		t.AppendRow(table.Row{i + 1, tr.Title, tr.Artist, formatDuration(tr.DurationMs), tr.URL.String()})
	}

	footer := fmt.Sprintf("%d tracks", p.TrackCount)
	if limit > 0 && limit < len(p.Tracks) {
		footer = fmt.Sprintf("%d of %d tracks", limit, p.TrackCount)
	}
	t.AppendFooter(table.Row{"", footer})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// formatDuration renders milliseconds as m:ss, or h:mm:ss past an hour
func formatDuration(ms int64) string {
	total := ms / 1000
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
