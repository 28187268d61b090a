package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:     "files",
	Aliases: []string{"ls"},
	Short:   "List processed files",
	Long:    `Lists the files recorded in the processed-files ledger.`,
	Args:    cobra.NoArgs,
	RunE:    runFiles,
}

func init() {
	rootCmd.AddCommand(filesCmd)
}

func runFiles(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	files, err := svc.Updater.ProcessedFiles(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}
	if len(files) == 0 {
		cmd.Println("No files processed yet. Run 'docrag update' first.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODIFIED\tCHUNKS\tID")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", f.Name, f.Modified.Format(time.RFC3339), len(f.VectorIDs), f.ID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	cmd.Printf("\n%d files\n", len(files))
	return nil
}
