package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextText(t *testing.T) {
	matches := []Match{{Text: "Leave is 20 days."}, {Text: "Carry over 5."}}
	assert.Equal(t, "Leave is 20 days. Carry over 5.", ContextText(matches))
	assert.Equal(t, "", ContextText(nil))
}

func TestSourceNames(t *testing.T) {
	matches := []Match{
		{FileName: "leave.txt"},
		{FileName: "leave.txt"},
		{FileID: "abc"},
		{FileName: "travel.txt"},
		{},
	}
	assert.Equal(t, []string{"leave.txt", "abc", "travel.txt"}, SourceNames(matches))
}

func TestDefaultSystemPrompt_MentionsFallback(t *testing.T) {
	assert.Contains(t, DefaultSystemPrompt, NoAnswerMessage)
}
