// Package status provides the status bar for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docrag/internal/core/domain"
)

// State represents the current application state for display.
type State string

const (
	StateReady    State = "ready"
	StateThinking State = "thinking"
	StateUpdating State = "updating"
	StateError    State = "error"
)

// Bar displays the chat model, index status and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	model   string
	report  *domain.UpdateReport
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	// Bar is passive, updated via Set methods
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	var parts []string
	if s.model != "" {
		parts = append(parts, s.model)
	}

	switch s.state {
	case StateThinking:
		parts = append(parts, "Thinking...")
	case StateUpdating:
		parts = append(parts, "Updating index...")
	case StateError:
		msg := "Error"
		if s.message != "" {
			msg = "Error: " + s.message
		}
		return s.styles.Error.Render(strings.Join(append(parts, msg), " | "))
	case StateReady:
		if s.message != "" {
			parts = append(parts, s.message)
		} else if s.report != nil {
			parts = append(parts, describeReport(s.report))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "Ready")
	}
	return s.styles.Muted.Render(strings.Join(parts, " | "))
}

func (s *Bar) renderRight() string {
	bindings := s.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		hints = append(hints, hint(b))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

func hint(b key.Binding) string {
	h := b.Help()
	return fmt.Sprintf("%s: %s", h.Key, h.Desc)
}

func describeReport(r *domain.UpdateReport) string {
	if r.Running {
		return fmt.Sprintf("Updating %d files", r.Listed)
	}
	desc := fmt.Sprintf("Indexed %d files, %d changed", r.Listed, r.Added+r.Modified+r.Deleted)
	if r.Failed() {
		desc += fmt.Sprintf(", %d failed", len(r.Errors))
	}
	if !r.StartedAt.IsZero() {
		desc += " at " + r.StartedAt.Format("15:04")
	}
	return desc
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetModel sets the chat model name.
func (s *Bar) SetModel(model string) {
	s.model = model
}

// SetReport sets the latest update report.
func (s *Bar) SetReport(r *domain.UpdateReport) {
	s.report = r
}

// Report returns the latest update report.
func (s *Bar) Report() *domain.UpdateReport {
	return s.report
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets the state and message.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
}
