package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pdf-qa/internal/models"
	"pdf-qa/internal/session"
)

// SessionPort is the TUI-facing subset of the session controller.
type SessionPort interface {
	Upload(ctx context.Context, filename string, r io.Reader) error
	Process(ctx context.Context) error
	Ask(ctx context.Context, query string) (string, error)
	Snapshot() session.Snapshot
}

type focusArea int

const (
	focusPath focusArea = iota
	focusQuery
)

type uploadedMsg struct {
	name string
	err  error
}

type processedMsg struct{ err error }

type answeredMsg struct{ err error }

// Model is the Bubble Tea model for the terminal front-end.
type Model struct {
	ctx        context.Context
	session    SessionPort
	pathInput  textinput.Model
	queryInput textinput.Model
	viewport   viewport.Model
	focus      focusArea
	status     string
	busy       bool
	ready      bool
}

// New creates a new TUI model instance. ctx is passed to every session call.
func New(ctx context.Context, s SessionPort) Model {
	pi := textinput.New()
	pi.Prompt = "PDF> "
	pi.Placeholder = "Path to a PDF file, Enter to upload"
	pi.CharLimit = 0
	pi.Focus()

	qi := textinput.New()
	qi.Prompt = "Query> "
	qi.Placeholder = "Enter your query"
	qi.CharLimit = 0

	return Model{
		ctx:        ctx,
		session:    s,
		pathInput:  pi,
		queryInput: qi,
		viewport:   viewport.New(0, 0),
		status:     "Upload a PDF file to begin.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and the results of session actions.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := boxStyle.GetFrameSize()
		// header, two input boxes, status and help lines
		reserved := 1 + 2*(1+bh) + 2
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil

	case uploadedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + describe(msg.err)
			return m, nil
		}
		m.status = fmt.Sprintf("File uploaded successfully! (%s) Press ctrl+p to process.", msg.name)
		return m, nil

	case processedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + describe(msg.err)
			return m, nil
		}
		m.status = "PDF processed and vector store created!"
		m.viewport.SetContent(m.renderTranscript())
		m.setFocus(focusQuery)
		return m, nil

	case answeredMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + describe(msg.err)
			return m, nil
		}
		m.status = "Answered."
		m.queryInput.Reset()
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab", "shift+tab":
			if m.focus == focusPath {
				m.setFocus(focusQuery)
			} else {
				m.setFocus(focusPath)
			}
			return m, nil
		case "ctrl+p":
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Processing PDF..."
			return m, m.process()
		case "enter":
			if m.busy {
				return m, nil
			}
			if m.focus == focusPath {
				path := strings.TrimSpace(m.pathInput.Value())
				if path == "" {
					m.status = "Enter the path of a PDF file."
					return m, nil
				}
				m.busy = true
				m.status = "Uploading..."
				return m, m.upload(path)
			}
			if m.session.Snapshot().Phase != session.Ready {
				m.status = "Process a PDF before asking questions."
				return m, nil
			}
			m.busy = true
			m.status = "Thinking..."
			return m, m.ask(m.queryInput.Value())
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	if m.focus == focusPath {
		m.pathInput, cmd = m.pathInput.Update(msg)
	} else {
		m.queryInput, cmd = m.queryInput.Update(msg)
	}
	return m, cmd
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	snap := m.session.Snapshot()

	header := titleStyle.Render("PDF Question Answering System")
	path := boxStyle.Render(m.pathInput.View())
	query := boxStyle.Render(m.queryInput.View())
	if snap.Phase != session.Ready {
		query = disabledStyle.Render(query)
	}
	transcript := boxStyle.Render(m.viewport.View())
	status := statusStyle.Render(fmt.Sprintf("[%s] %s", snap.Phase, m.status))
	help := helpStyle.Render("enter: upload/ask  ctrl+p: process  tab: switch field  pgup/pgdown: scroll  ctrl+c: quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, path, query, transcript, status, help)
}

func (m *Model) setFocus(f focusArea) {
	m.focus = f
	if f == focusPath {
		m.queryInput.Blur()
		m.pathInput.Focus()
		return
	}
	m.pathInput.Blur()
	m.queryInput.Focus()
}

func (m Model) upload(path string) tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return uploadedMsg{err: err}
		}
		defer f.Close()
		name := filepath.Base(path)
		return uploadedMsg{name: name, err: s.Upload(ctx, name, f)}
	}
}

func (m Model) process() tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		return processedMsg{err: s.Process(ctx)}
	}
}

func (m Model) ask(query string) tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		_, err := s.Ask(ctx, query)
		return answeredMsg{err: err}
	}
}

func (m Model) renderTranscript() string {
	snap := m.session.Snapshot()
	if len(snap.Transcript) == 0 {
		return "No questions asked yet."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Previous Queries and Answers:"))
	b.WriteString("\n\n")
	for _, pair := range snap.Transcript {
		b.WriteString(labelStyle.Render("Query: ") + pair.Query + "\n")
		b.WriteString(labelStyle.Render("Answer: ") + pair.Answer + "\n")
		b.WriteString("---\n")
	}
	return b.String()
}

func describe(err error) string {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	return err.Error()
}

var (
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle    = lipgloss.NewStyle().Bold(true)
	labelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	disabledStyle = lipgloss.NewStyle().Faint(true)
)
