package domain

import "strings"

// NoAnswerMessage is returned when retrieval finds nothing to ground an answer.
const NoAnswerMessage = "I cannot find the answer in the available resources."

// DefaultSystemPrompt is the chat agent's system prompt.
const DefaultSystemPrompt = "You are a helpful HR assistant designed to answer employee questions based on " +
	"company policies. Retrieve relevant information from the provided internal documents and provide a " +
	"concise, accurate answer. If the answer cannot be found in the provided documents, say " +
	"'I cannot find the answer in the available resources.'"

// Answer is the chat agent's reply to a question.
type Answer struct {
	// Question is the question as asked.
	Question string `json:"question"`

	// Text is the answer text.
	Text string `json:"answer"`

	// Matches are the retrieved chunks the answer was grounded on.
	Matches []Match `json:"-"`

	// Sources lists the distinct file names behind Matches.
	Sources []string `json:"sources,omitempty"`

	// Model is the chat model that produced Text.
	Model string `json:"model,omitempty"`

	// Grounded is false when the no-answer fallback was returned
	// without calling the model.
	Grounded bool `json:"grounded"`
}

// ContextText joins the match texts with single spaces.
func ContextText(matches []Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, " ")
}

// SourceNames returns the distinct file names in match order.
func SourceNames(matches []Match) []string {
	seen := make(map[string]bool, len(matches))
	var names []string
	for _, m := range matches {
		name := m.FileName
		if name == "" {
			name = m.FileID
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Exchange is one question and answer from a conversation.
type Exchange struct {
	Question string
	Answer   string
}
