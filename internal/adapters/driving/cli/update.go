package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

var updateProgress bool

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"sync"},
	Short:   "Embed new and changed documents",
	Long: `Runs one update pass: lists the document source, removes vectors for
deleted files, and embeds and upserts new or modified files.
Files already processed and unchanged are skipped.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateProgress, "progress", false, "show progress while updating")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	cmd.Println("Updating documents...")

	var report *domain.UpdateReport
	if updateProgress {
		report, err = updateWithProgress(cmd.Context(), cmd, svc.Updater)
	} else {
		report, err = svc.Updater.Update(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	printReport(cmd, report)
	if report.Failed() {
		return fmt.Errorf("%d files failed to update", len(report.Errors))
	}
	return nil
}

// updateWithProgress runs the update while displaying progress.
func updateWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	updater driving.Updater,
) (*domain.UpdateReport, error) {
	type result struct {
		report *domain.UpdateReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		r, err := updater.Update(ctx)
		done <- result{r, err}
	}()

	// Poll status every 500ms
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case r := <-done:
			if last >= 0 {
				cmd.Println()
			}
			return r.report, r.err
		case <-ticker.C:
			status := updater.Status()
			if status == nil || !status.Running {
				continue
			}
			seen := status.Added + status.Modified + status.Skipped + len(status.Errors)
			if seen != last {
				cmd.Printf("\rProcessing... %d of %d files", seen, status.Listed)
				last = seen
			}
		}
	}
}

func printReport(cmd *cobra.Command, r *domain.UpdateReport) {
	cmd.Printf("Listed %d files: %d added, %d modified, %d deleted, %d unchanged\n",
		r.Listed, r.Added, r.Modified, r.Deleted, r.Skipped)
	cmd.Printf("Upserted %d chunks in %s\n", r.ChunksUpserted, r.Duration.Round(time.Millisecond))
	if len(r.Errors) > 0 {
		cmd.Println("Errors:")
		for _, e := range r.Errors {
			cmd.Printf("  %s\n", e)
		}
	}
}
