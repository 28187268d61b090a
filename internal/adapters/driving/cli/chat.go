package cli

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/services"
)

const (
	chatWelcome = "Welcome to the HR chatbot. Type 'exit' or 'quit' to end the chat."
	chatPrompt  = "Your Question> "
)

var (
	chatTUI     bool
	chatSources bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about your documents",
	Long: `Starts an interactive chat. Each question is answered from the chunks
of the indexed documents that are most similar to it.

Type 'exit' or 'quit' to end the chat.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatTUI, "tui", false, "use the full-screen interface")
	chatCmd.Flags().BoolVar(&chatSources, "sources", false, "list the files each answer came from")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if chatTUI {
		return runTUI(cmd, nil)
	}

	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}

	conv := services.NewConversation(svc.Chat, historyTurns())

	cmd.Println(chatWelcome)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print(chatPrompt)
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(question) {
		case "exit", "quit":
			return nil
		case "":
			continue
		}

		answer, err := conv.Ask(cmd.Context(), question)
		if err != nil {
			if cmd.Context().Err() != nil {
				return nil
			}
			cmd.PrintErrf("Error: %v\n", err)
			continue
		}
		cmd.Printf("Answer: %s\n", answer.Text)
		if chatSources && len(answer.Sources) > 0 {
			cmd.Printf("Sources: %s\n", strings.Join(answer.Sources, ", "))
		}
		cmd.Println()
	}
}

// historyTurns returns how many earlier exchanges follow-up questions carry.
func historyTurns() int {
	if settingsService == nil {
		return 0
	}
	cfg, err := settingsService.Get()
	if err != nil {
		return 0
	}
	return cfg.Chat.HistoryTurns
}
