package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"run"},
	Short:   "Keep the index up to date",
	Long: `Runs an update immediately, then again every interval and whenever the
source reports changes.

While running, type:
  pull     - run an update now
  status   - show the last run
  history  - show recent runs
  q        - quit`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "time between updates (default from settings, 1h)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if watchInterval > 0 && settingsService != nil {
		if err := settingsService.Override("sync.interval", watchInterval.String()); err != nil {
			return err
		}
	}

	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Scheduler == nil {
		return errors.New("scheduler not configured")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Scheduler.Start(ctx)
	}()
	defer svc.Scheduler.Stop() //nolint:errcheck

	cmd.Println("Type 'pull' to run update immediately or 'q' to quit.")
	lines := readLines(cmd.InOrStdin())

	for {
		select {
		case err := <-errCh:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case line, ok := <-lines:
			if !ok {
				// Input closed: keep running until cancelled.
				lines = nil
				continue
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "pull":
				if svc.Scheduler.Trigger(domain.TriggerPull) {
					cmd.Println("Update queued.")
				} else {
					cmd.Println("An update is already queued.")
				}
			case "status":
				printLastRun(cmd, svc)
			case "history":
				printHistory(cmd, svc)
			case "q", "quit", "exit":
				cmd.Println("Exiting...")
				return nil
			case "":
			default:
				cmd.Println("Type 'pull' to run update immediately or 'q' to quit.")
			}
		}
	}
}

func printLastRun(cmd *cobra.Command, svc *Services) {
	if report := svc.Updater.Status(); report != nil && report.Running {
		cmd.Printf("Update %s running: %d of %d files checked\n",
			report.RunID, report.Added+report.Modified+report.Skipped, report.Listed)
		return
	}
	last := svc.Scheduler.LastRun()
	if last == nil {
		cmd.Println("No update has completed yet.")
		return
	}
	state := "succeeded"
	if !last.Succeeded() {
		state = "failed: " + last.Error
	}
	cmd.Printf("Last update (%s) at %s %s, %d files changed in %s\n",
		last.Trigger, last.StartedAt.Format(time.RFC3339), state,
		last.Changed(), last.Duration().Round(time.Millisecond))
}

// historyLimit is how many runs "history" prints.
const historyLimit = 10

func printHistory(cmd *cobra.Command, svc *Services) {
	runs, err := svc.Scheduler.History(cmd.Context(), historyLimit)
	if err != nil {
		cmd.Printf("Could not read history: %v\n", err)
		return
	}
	if len(runs) == 0 {
		cmd.Println("No update has completed yet.")
		return
	}
	for _, r := range runs {
		if r.Succeeded() {
			cmd.Printf("%s  %-8s  ok      %d changed, %d chunks\n",
				r.StartedAt.Format(time.RFC3339), r.Trigger, r.Changed(), r.Chunks)
			continue
		}
		cmd.Printf("%s  %-8s  failed  %s\n", r.StartedAt.Format(time.RFC3339), r.Trigger, r.Error)
	}
}

// readLines delivers input lines until r is exhausted.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
