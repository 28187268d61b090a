// Package file provides file-based implementations of driven port interfaces.
// These adapters persist to the docrag home directory (~/.docrag or $DOCRAG_HOME).
//
// Adapters:
//   - ConfigStore: TOML settings file (config.toml)
//   - PromptStore: editable prompt templates (prompts/*.txt)
package file
