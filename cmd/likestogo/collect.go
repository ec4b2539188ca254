package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZUGAZ/likes-to-go/pkg/collection"
	"github.com/ZUGAZ/likes-to-go/pkg/message"
	"github.com/ZUGAZ/likes-to-go/pkg/ui"
)

var (
	// collect command flags
	startURL         string
	outputDir        string
	overwrite        bool
	stagnationPasses int
	settleWait       time.Duration
	requestsPerMin   int
)

var errCancelled = errors.New("collection cancelled")

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect your likes and save them as a JSON export",
	Long: `Open the likes page, collect every liked track and save the export file.

The run stops on its own once the page shows no new tracks for a few passes
in a row. Press Ctrl-C to cancel a running collection.`,
	Example: `  # Collect with the defaults
  likestogo collect

  # Save into a specific directory, replacing an export from today
  likestogo collect --output ./likes --overwrite

  # Stop sooner on short lists
  likestogo collect --stagnation-passes 1`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
	addCollectionFlags(collectCmd)
	collectCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for the export file")
	collectCmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite an existing export with the same name")
}

// addCollectionFlags registers the flags shared by every command that runs a
// collection
func addCollectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&startURL, "start-url", "", "likes page to collect from")
	cmd.Flags().IntVar(&stagnationPasses, "stagnation-passes", 0, "passes without new tracks before stopping")
	cmd.Flags().DurationVar(&settleWait, "settle-wait", 0, "wait after loading more tracks")
	cmd.Flags().IntVar(&requestsPerMin, "requests-per-minute", 0, "page requests per minute")
}

func collectionFlags(cmd *cobra.Command) map[string]interface{} {
	flags := map[string]interface{}{
		"start-url":           startURL,
		"stagnation-passes":   stagnationPasses,
		"settle-wait":         settleWait,
		"requests-per-minute": requestsPerMin,
	}
	if cmd.Flags().Lookup("output") != nil {
		flags["output"] = outputDir
	}
	if cmd.Flags().Changed("overwrite") {
		flags["overwrite"] = overwrite
	}
	return flags
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd, collectionFlags(cmd))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()
	a.start(ctx)

	if !quiet {
		ui.PrintInfo("Likes page", cfg.Collection.StartURL)
		ui.PrintInfo("Output", cfg.Output.Directory)
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	path, count, err := collect(ctx, a, interrupts, cfg.UI.PollInterval)
	notifier := ui.NewNotifier(cfg.UI.NotificationsEnabled)
	switch {
	case errors.Is(err, errCancelled):
		ui.PrintWarning("Collection cancelled")
		return err
	case err != nil:
		notifier.CollectionFailed(err.Error())
		return err
	}

	notifier.ExportSaved(path, count)
	return nil
}

// collect starts a run, follows it until it settles and saves the export.
// It returns the export path and the number of tracks saved.
func collect(ctx context.Context, a *app, interrupts <-chan os.Signal, poll time.Duration) (string, int, error) {
	resp := a.send(ctx, message.StartCollection{})
	if resp.Status == collection.StatusError {
		return "", 0, errors.New(resp.ErrorMessage)
	}

	tracker := ui.NewStatusTracker()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", 0, ctx.Err()

		case <-interrupts:
			a.send(ctx, message.CancelCollection{})
			if !quiet {
				fmt.Println()
			}
			return "", 0, errCancelled

		case <-ticker.C:
			resp = a.send(ctx, message.GetState{})
			switch resp.Status {
			case collection.StatusCollecting:
				tracker.Update(collection.Snapshot{Status: resp.Status, TrackCount: resp.TrackCount})
				if !quiet {
					tracker.PrintProgress()
				}

			case collection.StatusDone:
				if !quiet {
					fmt.Println()
				}
				count := resp.TrackCount
				resp = a.send(ctx, message.DownloadExport{})
				if resp.Status == collection.StatusError {
					return "", count, fmt.Errorf("export failed: %s", resp.ErrorMessage)
				}
				return a.orch.LastExport(), count, nil

			case collection.StatusError:
				if !quiet {
					fmt.Println()
				}
				return "", 0, errors.New(resp.ErrorMessage)

			default:
				return "", 0, errors.New("collection stopped before finishing")
			}
		}
	}
}
