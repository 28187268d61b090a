// Package styles holds the lipgloss palette and styles of the chat TUI.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette assigns a colour to each role in the transcript. Every colour
// adapts to light and dark terminal backgrounds.
type Palette struct {
	Accent  lipgloss.AdaptiveColor // question prompt and title
	Source  lipgloss.AdaptiveColor // source file names and spinner
	Text    lipgloss.AdaptiveColor
	Subtle  lipgloss.AdaptiveColor
	Caution lipgloss.AdaptiveColor // answers given without retrieved context
	Failure lipgloss.AdaptiveColor
	Frame   lipgloss.AdaptiveColor
	Bar     lipgloss.AdaptiveColor
}

// DefaultPalette is the built-in palette.
func DefaultPalette() Palette {
	return Palette{
		Accent:  lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#A78BFA"},
		Source:  lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#67E8F9"},
		Text:    lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"},
		Subtle:  lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"},
		Caution: lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FCD34D"},
		Failure: lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#FCA5A5"},
		Frame:   lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"},
		Bar:     lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#1F2937"},
	}
}

// Styles are the rendered roles used by the TUI components.
type Styles struct {
	Palette Palette

	Title      lipgloss.Style
	Question   lipgloss.Style
	Answer     lipgloss.Style
	NoAnswer   lipgloss.Style
	Sources    lipgloss.Style
	Muted      lipgloss.Style
	Error      lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Spinner    lipgloss.Style
}

// NewStyles builds the styles for p.
func NewStyles(p Palette) *Styles {
	accent := lipgloss.NewStyle().Bold(true).Foreground(p.Accent)
	return &Styles{
		Palette:    p,
		Title:      accent,
		Question:   accent,
		Answer:     lipgloss.NewStyle().Foreground(p.Text),
		NoAnswer:   lipgloss.NewStyle().Italic(true).Foreground(p.Caution),
		Sources:    lipgloss.NewStyle().Foreground(p.Source),
		Muted:      lipgloss.NewStyle().Foreground(p.Subtle),
		Error:      lipgloss.NewStyle().Foreground(p.Failure),
		InputField: lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(p.Frame).Padding(0, 1),
		StatusBar:  lipgloss.NewStyle().Foreground(p.Subtle).Background(p.Bar).Padding(0, 1),
		Spinner:    lipgloss.NewStyle().Foreground(p.Source),
	}
}

// DefaultStyles returns the styles for DefaultPalette.
func DefaultStyles() *Styles {
	return NewStyles(DefaultPalette())
}
