package cli

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func TestAskCmd_JoinsArgs(t *testing.T) {
	chat := &mockChat{}

	out, err := execute(t, &Services{Chat: chat}, "", "ask", "how", "much", "leave?")

	require.NoError(t, err)
	assert.Equal(t, []string{"how much leave?"}, chat.questions)
	assert.Contains(t, out, "answer to how much leave?")
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	_, err := execute(t, &Services{Chat: &mockChat{}}, "", "ask")

	assert.Error(t, err)
}

func TestAskCmd_Sources(t *testing.T) {
	chat := &mockChat{answer: &domain.Answer{Text: "Yes.", Sources: []string{"expenses.pdf"}, Grounded: true}}

	out, err := execute(t, &Services{Chat: chat}, "", "ask", "--sources", "can I claim taxis?")

	require.NoError(t, err)
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "  - expenses.pdf")
}

func TestAskCmd_JSON(t *testing.T) {
	chat := &mockChat{answer: &domain.Answer{
		Question: "q",
		Text:     "a",
		Sources:  []string{"f.txt"},
		Model:    "gpt-4o",
		Grounded: true,
		Matches:  []domain.Match{{ID: "x", Score: 0.9}},
	}}

	out, err := execute(t, &Services{Chat: chat}, "", "ask", "--json", "q")

	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "a", got["answer"])
	assert.Equal(t, "gpt-4o", got["model"])
	assert.Equal(t, true, got["grounded"])
	assert.NotContains(t, got, "Matches")
}

func TestAskCmd_Error(t *testing.T) {
	chat := &mockChat{err: errors.New("quota exceeded")}

	_, err := execute(t, &Services{Chat: chat}, "", "ask", "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
