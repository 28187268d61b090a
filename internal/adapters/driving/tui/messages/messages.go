// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docrag/internal/core/domain"
)

// QuestionAsked is sent when the user submits a question.
type QuestionAsked struct {
	Question string
}

// AnswerReceived carries the chat agent's reply back to the model.
type AnswerReceived struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// UpdateFinished carries the result of an update pass run by the TUI.
type UpdateFinished struct {
	Report *domain.UpdateReport
	Err    error
}

// StatusRefreshed carries the latest update status, polled periodically.
type StatusRefreshed struct {
	Report *domain.UpdateReport
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
