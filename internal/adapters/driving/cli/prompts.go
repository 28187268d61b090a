package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage LLM prompts",
	Long: `Prompts are stored as text files in the config directory and can be
edited. Changes apply to the next question.`,
	RunE: runPromptsList,
}

var promptsShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Print a prompt",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPromptsShow,
}

var promptsResetCmd = &cobra.Command{
	Use:   "reset [name]",
	Short: "Restore a prompt to its default",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPromptsReset,
}

func init() {
	promptsCmd.AddCommand(promptsShowCmd)
	promptsCmd.AddCommand(promptsResetCmd)
	rootCmd.AddCommand(promptsCmd)
}

func runPromptsList(cmd *cobra.Command, _ []string) error {
	if promptStore == nil {
		return errors.New("prompt store not configured")
	}
	for _, name := range promptStore.Names() {
		cmd.Printf("%s\t%s\n", name, promptStore.Path(name))
	}
	return nil
}

func runPromptsShow(cmd *cobra.Command, args []string) error {
	if promptStore == nil {
		return errors.New("prompt store not configured")
	}
	text, err := promptStore.Load(promptName(args))
	if err != nil {
		return fmt.Errorf("failed to load prompt: %w", err)
	}
	cmd.Println(text)
	return nil
}

func runPromptsReset(cmd *cobra.Command, args []string) error {
	if promptStore == nil {
		return errors.New("prompt store not configured")
	}
	name := promptName(args)
	if err := promptStore.Reset(name); err != nil {
		return fmt.Errorf("failed to reset prompt: %w", err)
	}
	cmd.Printf("Prompt %s restored to default.\n", name)
	return nil
}

func promptName(args []string) string {
	if len(args) == 0 {
		return driven.PromptChatSystem
	}
	return args[0]
}
