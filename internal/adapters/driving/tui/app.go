package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docrag/internal/core/domain"
)

// statusInterval is how often the index status is polled.
const statusInterval = 5 * time.Second

// Welcome is shown at the top of an empty transcript.
const Welcome = "Welcome to the HR chatbot. Press esc to end the chat."

// entry is one question in the transcript. Answer and Err are both nil
// while the question is pending.
type entry struct {
	question string
	answer   *domain.Answer
	err      error
}

// App is the chat application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	input      *input.QuestionInput
	transcript viewport.Model
	spinner    spinner.Model
	status     *status.Bar

	entries      []entry
	history      []domain.Exchange
	historyTurns int
	showSources  bool

	thinking bool
	updating bool

	// err holds the last error that occurred.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a chat application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Spinner

	bar := status.NewBar(s, km)
	bar.SetModel(ports.Chat.ModelName())

	return &App{
		ports:      ports,
		ctx:        context.Background(),
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		transcript: viewport.New(80, 20),
		spinner:    sp,
		status:     bar,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// WithHistory sets how many earlier exchanges are sent with each question.
func (a *App) WithHistory(turns int) *App {
	a.historyTurns = turns
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.input.Init(),
		tea.SetWindowTitle("docrag"),
		a.refreshStatus(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.AnswerReceived:
		a.receiveAnswer(msg)
		return a, nil

	case messages.UpdateFinished:
		a.updating = false
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.status.Clear()
		a.status.SetReport(msg.Report)
		return a, nil

	case messages.StatusRefreshed:
		if msg.Report != nil && !a.updating {
			a.status.SetReport(msg.Report)
		}
		return a, tea.Tick(statusInterval, func(time.Time) tea.Msg {
			return a.refreshStatus()()
		})

	case messages.ErrorOccurred:
		a.setError(msg.Err)
		return a, nil

	case messages.Quit:
		return a, tea.Quit

	case spinner.TickMsg:
		if !a.thinking && !a.updating {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		a.render()
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keymap.Send):
		return a, a.submit()

	case key.Matches(msg, a.keymap.Pull):
		return a, a.pull()

	case key.Matches(msg, a.keymap.Clear):
		a.entries = nil
		a.history = nil
		a.status.Clear()
		a.render()
		return a, nil

	case key.Matches(msg, a.keymap.Sources):
		a.showSources = !a.showSources
		a.render()
		return a, nil

	case key.Matches(msg, a.keymap.ScrollUp, a.keymap.ScrollDown):
		var cmd tea.Cmd
		a.transcript, cmd = a.transcript.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// submit sends the typed question to the chat service.
func (a *App) submit() tea.Cmd {
	question := strings.TrimSpace(a.input.Value())
	if question == "" || a.thinking {
		return nil
	}
	switch strings.ToLower(question) {
	case "exit", "quit":
		return tea.Quit
	}

	a.input.Reset()
	a.thinking = true
	a.status.Clear()
	a.status.SetState(status.StateThinking)
	a.entries = append(a.entries, entry{question: question})
	a.render()

	return tea.Batch(a.ask(question), a.spinner.Tick)
}

func (a *App) ask(question string) tea.Cmd {
	ctx := a.ctx
	chat := a.ports.Chat
	history := a.recentHistory()
	return func() tea.Msg {
		answer, err := chat.AskWithHistory(ctx, question, history)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

func (a *App) recentHistory() []domain.Exchange {
	if a.historyTurns <= 0 || len(a.history) == 0 {
		return nil
	}
	h := a.history
	if len(h) > a.historyTurns {
		h = h[len(h)-a.historyTurns:]
	}
	return append([]domain.Exchange(nil), h...)
}

func (a *App) receiveAnswer(msg messages.AnswerReceived) {
	a.thinking = false
	if n := len(a.entries); n > 0 && a.entries[n-1].answer == nil && a.entries[n-1].err == nil {
		a.entries[n-1].answer = msg.Answer
		a.entries[n-1].err = msg.Err
	}

	if msg.Err != nil {
		a.setError(msg.Err)
		return
	}
	a.status.Clear()
	if msg.Answer != nil && msg.Answer.Grounded && a.historyTurns > 0 {
		a.history = append(a.history, domain.Exchange{Question: msg.Question, Answer: msg.Answer.Text})
		if len(a.history) > a.historyTurns {
			a.history = a.history[len(a.history)-a.historyTurns:]
		}
	}
	a.render()
}

// pull runs an update pass in the background.
func (a *App) pull() tea.Cmd {
	if a.ports.Updater == nil {
		a.status.SetMessage("Updates are not available")
		return nil
	}
	if a.updating {
		return nil
	}
	a.updating = true
	a.status.Clear()
	a.status.SetState(status.StateUpdating)

	ctx := a.ctx
	updater := a.ports.Updater
	return tea.Batch(func() tea.Msg {
		report, err := updater.Update(ctx)
		return messages.UpdateFinished{Report: report, Err: err}
	}, a.spinner.Tick)
}

// refreshStatus reads the updater status once.
func (a *App) refreshStatus() tea.Cmd {
	updater := a.ports.Updater
	if updater == nil {
		return nil
	}
	return func() tea.Msg {
		return messages.StatusRefreshed{Report: updater.Status()}
	}
}

func (a *App) setError(err error) {
	a.err = err
	a.status.SetState(status.StateError)
	a.status.SetMessage(err.Error())
	a.render()
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	header := a.styles.Title.Render("docrag") + " " + a.styles.Muted.Render(Welcome)
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		a.transcript.View(),
		a.input.View(),
		a.status.View(),
	)
}

// render rebuilds the transcript and scrolls to the latest entry.
func (a *App) render() {
	a.transcript.SetContent(a.renderTranscript())
	a.transcript.GotoBottom()
}

func (a *App) renderTranscript() string {
	wrap := lipgloss.NewStyle().Width(max(a.width-2, 20))

	var b strings.Builder
	for i, e := range a.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(a.styles.Question.Render(input.Prompt))
		b.WriteString(e.question)
		b.WriteString("\n")

		switch {
		case e.err != nil:
			b.WriteString(a.styles.Error.Render("Error: " + e.err.Error()))
		case e.answer == nil:
			b.WriteString(a.spinner.View() + a.styles.Muted.Render(" Thinking..."))
		case !e.answer.Grounded:
			b.WriteString(wrap.Inherit(a.styles.NoAnswer).Render("Answer: " + e.answer.Text))
		default:
			b.WriteString(wrap.Inherit(a.styles.Answer).Render("Answer: " + e.answer.Text))
			if a.showSources && len(e.answer.Sources) > 0 {
				b.WriteString("\n")
				b.WriteString(a.styles.Sources.Render("Sources: " + strings.Join(e.answer.Sources, ", ")))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been sized.
func (a *App) Ready() bool {
	return a.ready
}

// Thinking reports whether a question is awaiting its answer.
func (a *App) Thinking() bool {
	return a.thinking
}

// Updating reports whether an update pass is running.
func (a *App) Updating() bool {
	return a.updating
}

// History returns the exchanges that will be sent with the next question.
func (a *App) History() []domain.Exchange {
	return append([]domain.Exchange(nil), a.history...)
}

// SetDimensions lays out the components for the terminal size.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	// header, input box (3 lines) and status bar
	transcriptHeight := height - 5
	if transcriptHeight < 3 {
		transcriptHeight = 3
	}
	a.transcript.Width = width
	a.transcript.Height = transcriptHeight
	a.input.SetWidth(width)
	a.status.SetWidth(width)
	a.render()
}
