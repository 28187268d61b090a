package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Path returns where an editable copy of the prompt lives, if any.
	Path(name string) string

	// Reset restores the default for a prompt.
	Reset(name string) error

	// Names lists the known prompt names, sorted.
	Names() []string

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names.
const (
	// PromptChatSystem is the chat agent's system prompt. Retrieved context
	// is appended after it. It has no format placeholders.
	PromptChatSystem = "chat_system"
)
