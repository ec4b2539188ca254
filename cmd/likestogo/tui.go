package main

import (
	"context"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ZUGAZ/likes-to-go/pkg/logger"
	"github.com/ZUGAZ/likes-to-go/pkg/ui"
	"github.com/ZUGAZ/likes-to-go/pkg/ui/tui"
)

var useAltScreen bool

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive popup",
	Long: `Open a small popup to start, cancel and download a collection.

Keys:
  s  start (or retry after an error)
  c  cancel a running collection
  d  download the export once it is ready
  q  quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	addCollectionFlags(tuiCmd)
	tuiCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for the export file")
	tuiCmd.Flags().BoolVar(&useAltScreen, "fullscreen", false, "use the alternate screen")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd, collectionFlags(cmd))
	if err != nil {
		return err
	}
	// console logs would tear the popup; keep only a log file if one is set
	if cfg.Logging.File == "" {
		log = logger.NewNopLogger()
		logger.SetLogger(log)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	notifier := ui.NewNotifier(cfg.UI.NotificationsEnabled)
	var popup *tui.TUI
	a, err := newApp(ctx, cfg, log, withExportHook(func(path string, err error) {
		if popup != nil {
			popup.ExportFinished(path, err)
		}
		if err == nil {
			notifier.SendDesktop("Export saved", path)
		}
	}))
	if err != nil {
		return err
	}
	defer a.close()
	a.start(ctx)

	var opts []tea.ProgramOption
	if useAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	popup = tui.NewTUI(ctx, a, cfg.UI.PollInterval, opts...)
	return popup.Start()
}
