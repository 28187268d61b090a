package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change settings. Values are read, highest priority first, from
command-line flags, DOCRAG_* environment variables, conventional
environment variables such as OPENAI_API_KEY, and the config file.

Use 'docrag settings set' to write a value to the config file.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Write a setting to the config file",
	Long: `Writes a setting to the config file. An empty value removes it.
API keys are prompted for without echo when no value is given.

Examples:
  docrag settings set llm.provider anthropic
  docrag settings set chunking.size 800
  docrag settings set llm.api_key`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE:  runSettingsPath,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Test the source and AI providers",
	Long: `Checks that the document source is reachable and that the embedding and
chat providers accept the configured credentials.`,
	Args: cobra.NoArgs,
	RunE: runSettingsCheck,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsPathCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("Current Settings")
	cmd.Println("================")

	section := ""
	for _, key := range settingsService.Keys() {
		group, name, _ := strings.Cut(key, ".")
		if name == "" {
			group, name = "general", key
		}
		if group != section {
			cmd.Printf("\n[%s]\n", group)
			section = group
		}
		value, err := settingsService.Lookup(key)
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		if value == "" {
			value = "(not set)"
		}
		cmd.Printf("  %s: %s\n", name, value)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docrag settings set <key> <value>' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	value, err := settingsService.Lookup(args[0])
	if err != nil {
		return err
	}
	cmd.Println(value)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	var value string
	switch {
	case len(args) == 2:
		value = args[1]
	case isSecretKey(key):
		cmd.Printf("Enter %s: ", key)
		value = readPassword()
		cmd.Println()
		if value == "" {
			return errors.New("no value entered")
		}
	}

	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	if value == "" {
		cmd.Printf("%s removed from %s\n", key, settingsService.ConfigPath())
		return nil
	}
	shown, err := settingsService.Lookup(key)
	if err != nil {
		return err
	}
	cmd.Printf("%s = %s\n", key, shown)
	return nil
}

func runSettingsPath(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	cmd.Println(settingsService.ConfigPath())
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if runChecks == nil {
		return errors.New("checks not configured")
	}

	failed := 0
	for _, c := range runChecks(cmd.Context()) {
		if c.Err != nil {
			failed++
			cmd.Printf("  %-10s FAILED: %v\n", c.Name, c.Err)
			continue
		}
		cmd.Printf("  %-10s OK\n", c.Name)
	}
	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	cmd.Println("All checks passed.")
	return nil
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "api_key")
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
