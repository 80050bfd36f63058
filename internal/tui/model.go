// Package tui is the full-screen front end: a question field, an Ask button
// and the answer panel, driven by the question/answer controller.
package tui

import (
	"log/slog"
	"strings"

	"github.com/at-ishikawa/ragfood/internal/config"
	"github.com/at-ishikawa/ragfood/internal/controller"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

const helpText = "enter: ask • esc: cancel • ctrl+c: quit"

// Controller is the part of the question/answer controller the form drives
type Controller interface {
	SetQuestion(text string)
	Submit() (*controller.Request, error)
	Cancel() bool
	View() controller.View
	Subscribe(fn func(controller.State))
}

// settledMsg is sent when a submitted request is done
type settledMsg struct {
	token   string
	outcome controller.State
}

// transitionMsg is sent on every controller state transition
type transitionMsg struct {
	state controller.State
}

// subscribe forwards controller transitions to send, e.g. a program's Send
func subscribe(qa Controller, send func(tea.Msg)) {
	qa.Subscribe(func(state controller.State) {
		send(transitionMsg{state: state})
	})
}

type theme struct {
	title  lipgloss.Style
	button lipgloss.Style
	label  lipgloss.Style
	panel  lipgloss.Style
	err    lipgloss.Style
	help   lipgloss.Style
}

func newTheme(useColor bool) theme {
	if !useColor {
		return theme{
			title:  lipgloss.NewStyle().Bold(true),
			button: lipgloss.NewStyle(),
			label:  lipgloss.NewStyle().Bold(true),
			panel:  lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
			err:    lipgloss.NewStyle(),
			help:   lipgloss.NewStyle(),
		}
	}
	return theme{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		button: lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		label:  lipgloss.NewStyle().Bold(true),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1),
		err:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		help: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Model is the bubbletea model of the form
type Model struct {
	controller Controller
	input      textinput.Model
	spinner    spinner.Model
	theme      theme

	title    string
	markdown bool
	useColor bool
	renderer *glamour.TermRenderer

	// request is the submission the spinner is waiting for.
	// Outcomes of any other request are discarded.
	request  *controller.Request
	width    int
	quitting bool
}

func NewModel(qa Controller, cfg config.UIConfig) Model {
	input := textinput.New()
	input.Placeholder = cfg.Placeholder
	input.Prompt = "> "
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	return Model{
		controller: qa,
		input:      input,
		spinner:    s,
		theme:      newTheme(cfg.Color),
		title:      cfg.Title,
		markdown:   cfg.Markdown,
		useColor:   cfg.Color,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-4, 0)
		if m.markdown {
			m.renderer = m.newRenderer(msg.Width - 4)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case settledMsg:
		if m.request == nil || msg.token != m.request.Token() {
			slog.Default().Debug("Ignoring settled request", "requestID", msg.token)
			return m, nil
		}
		m.request = nil
		return m, nil

	case transitionMsg:
		// Nothing to keep: the next View reads the controller
		slog.Default().Debug("Controller state changed", "state", msg.state.String())
		return m, nil

	case spinner.TickMsg:
		if m.request == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.controller.Cancel()
		m.request = nil
		m.quitting = true
		return m, tea.Quit

	case tea.KeyEsc:
		if m.controller.Cancel() {
			m.request = nil
		}
		return m, nil

	case tea.KeyEnter:
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.controller.SetQuestion(m.input.Value())
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	// The button is disabled while loading
	if m.controller.View().ButtonDisabled {
		return m, nil
	}

	m.controller.SetQuestion(m.input.Value())
	request, err := m.controller.Submit()
	if err != nil {
		slog.Default().Warn("Failed to submit the question", "error", err)
		return m, nil
	}
	m.request = request
	return m, tea.Batch(waitForOutcome(request), m.spinner.Tick)
}

func waitForOutcome(request *controller.Request) tea.Cmd {
	return func() tea.Msg {
		<-request.Done()
		return settledMsg{
			token:   request.Token(),
			outcome: request.Outcome(),
		}
	}
}

func (m Model) newRenderer(width int) *glamour.TermRenderer {
	style := glamour.WithAutoStyle()
	if !m.useColor {
		style = glamour.WithStandardStyle(styles.NoTTYStyle)
	}
	renderer, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(max(width, 20)),
	)
	if err != nil {
		slog.Default().Warn("Falling back to plain answers", "error", err)
		return nil
	}
	return renderer
}

func (m Model) renderAnswer(text string) string {
	if m.renderer == nil {
		return text
	}
	rendered, err := m.renderer.Render(text)
	if err != nil {
		slog.Default().Debug("Failed to render the answer as markdown", "error", err)
		return text
	}
	return strings.Trim(rendered, "\n")
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	view := m.controller.View()
	var b strings.Builder

	b.WriteString(m.theme.title.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if view.ButtonDisabled {
		b.WriteString(m.spinner.View() + " " + m.theme.button.Render(view.ButtonLabel))
	} else {
		b.WriteString(m.theme.button.Render("[ " + view.ButtonLabel + " ]"))
	}
	b.WriteString("\n\n")

	switch {
	case view.AnswerVisible:
		panel := m.theme.label.Render("Answer:") + "\n" + m.renderAnswer(view.Answer)
		b.WriteString(m.theme.panel.Render(panel))
		b.WriteString("\n\n")
	case view.ErrorVisible:
		b.WriteString(m.theme.err.Render("Error: " + view.ErrorMessage))
		b.WriteString("\n\n")
	}

	b.WriteString(m.theme.help.Render(helpText))
	b.WriteString("\n")
	return b.String()
}
