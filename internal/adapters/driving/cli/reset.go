package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every indexed vector",
	Long: `Deletes the vectors of every file in the processed-files ledger and
clears the ledger, so the next update re-embeds everything.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip confirmation")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	if !resetYes {
		cmd.Print("Remove all indexed documents? [y/N]: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		if !confirmed(readLine(reader)) {
			cmd.Println("Cancelled.")
			return nil
		}
	}

	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if err := svc.Updater.Reset(cmd.Context()); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	cmd.Println("Index cleared.")
	return nil
}

func confirmed(input string) bool {
	switch strings.ToLower(input) {
	case "y", "yes":
		return true
	}
	return false
}
