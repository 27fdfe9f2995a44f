package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pdfchat/internal/domain"
	"pdfchat/internal/service"
	"pdfchat/internal/session"
	"pdfchat/internal/watcher"
)

// Session is the TUI-facing subset of session.Session.
type Session interface {
	Process(ctx context.Context, docs []domain.Document) (session.Report, error)
	Ask(ctx context.Context, question string) []domain.Turn
	History() []domain.Turn
	Reset()
	Ready() bool
}

type focus int

const (
	focusPaths focus = iota
	focusQuestion
)

const maxListedUploads = 5

type processedMsg struct {
	report session.Report
	err    error
}

type answeredMsg struct {
	turns []domain.Turn
}

type watchMsg struct {
	event watcher.Event
	ok    bool
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx      context.Context
	session  Session
	events   <-chan watcher.Event
	uploads  []string
	paths    textinput.Model
	question textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	focus    focus
	busy     bool
	ready    bool
	width    int
	height   int
	summary  string
	status   string
}

// New creates a new TUI model. initial pre-fills the upload list; events may be nil.
func New(ctx context.Context, sess Session, initial []string, events <-chan watcher.Event) Model {
	paths := textinput.New()
	paths.Prompt = "+ "
	paths.Placeholder = "Path or glob of PDF files, Enter to add"
	paths.CharLimit = 0

	question := textinput.New()
	question.Prompt = "> "
	question.Placeholder = "Ask a question about your documents"
	question.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:      ctx,
		session:  sess,
		events:   events,
		paths:    paths,
		question: question,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "Add PDF files, then press Ctrl+P to process them.",
	}
	m.addUploads(initial)
	if len(m.uploads) > 0 {
		m.focus = focusQuestion
	}
	m.applyFocus()
	return m
}

// Init initializes the model (cursor blink and the upload watcher).
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events))
}

// Update handles key, window and background-work events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case processedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error processing documents: " + describe(msg.err)
			return m, nil
		}
		m.summary = msg.report.Summary
		m.status = fmt.Sprintf("Processed %d document(s) into %d chunk(s). Ask away.", msg.report.Documents, msg.report.Chunks)
		m.focus = focusQuestion
		m.applyFocus()
		m.resize()
		return m, nil

	case answeredMsg:
		m.busy = false
		m.status = "Ready."
		m.refreshHistory()
		return m, nil

	case watchMsg:
		if !msg.ok {
			m.events = nil
			return m, nil
		}
		switch msg.event.Op {
		case watcher.Added:
			m.addUploads([]string{msg.event.Path})
		case watcher.Removed:
			m.removeUpload(msg.event.Path)
		}
		m.resize()
		return m, waitForEvent(m.events)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyTab:
			if m.focus == focusPaths {
				m.focus = focusQuestion
			} else {
				m.focus = focusPaths
			}
			m.applyFocus()
			return m, nil
		case tea.KeyCtrlP:
			return m.startProcess()
		case tea.KeyCtrlR:
			if m.busy {
				return m, nil
			}
			m.session.Reset()
			m.summary = ""
			m.status = "Session reset. Process documents to start again."
			m.refreshHistory()
			m.resize()
			return m, nil
		case tea.KeyCtrlX:
			m.uploads = nil
			m.status = "Upload list cleared."
			m.resize()
			return m, nil
		case tea.KeyEnter:
			if m.focus == focusPaths {
				return m.submitPaths()
			}
			return m.submitQuestion()
		}
	}

	var cmd tea.Cmd
	if m.focus == focusPaths {
		m.paths, cmd = m.paths.Update(msg)
	} else {
		m.question, cmd = m.question.Update(msg)
	}
	return m, cmd
}

func (m Model) startProcess() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	if len(m.uploads) == 0 {
		m.status = session.MsgNoDocuments
		return m, nil
	}
	m.busy = true
	m.status = fmt.Sprintf("Processing %d file(s)...", len(m.uploads))
	ctx, sess, paths := m.ctx, m.session, append([]string(nil), m.uploads...)
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		docs, err := service.LoadDocuments(paths)
		if err != nil {
			return processedMsg{err: err}
		}
		report, err := sess.Process(ctx, docs)
		return processedMsg{report: report, err: err}
	})
}

func (m Model) submitPaths() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.paths.Value())
	if value == "" {
		return m, nil
	}
	found := service.ExpandPaths(strings.Fields(value))
	if len(found) == 0 {
		m.status = fmt.Sprintf("No PDF files match %q.", value)
		return m, nil
	}
	added := m.addUploads(found)
	m.paths.SetValue("")
	m.status = fmt.Sprintf("Added %d file(s). Press Ctrl+P to process.", added)
	m.resize()
	return m, nil
}

func (m Model) submitQuestion() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	q := m.question.Value()
	if !m.session.Ready() {
		m.status = session.MsgNotProcessed
		return m, nil
	}
	m.question.SetValue("")
	m.busy = true
	m.status = "Thinking..."
	ctx, sess := m.ctx, m.session
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return answeredMsg{turns: sess.Ask(ctx, q)}
	})
}

func (m *Model) addUploads(paths []string) int {
	added := 0
	for _, p := range paths {
		dup := false
		for _, u := range m.uploads {
			if u == p {
				dup = true
				break
			}
		}
		if !dup {
			m.uploads = append(m.uploads, p)
			added++
		}
	}
	return added
}

func (m *Model) removeUpload(path string) {
	kept := make([]string, 0, len(m.uploads))
	for _, u := range m.uploads {
		if u != path {
			kept = append(kept, u)
		}
	}
	m.uploads = kept
}

func (m *Model) applyFocus() {
	if m.focus == focusPaths {
		m.paths.Focus()
		m.question.Blur()
	} else {
		m.question.Focus()
		m.paths.Blur()
	}
}

func (m *Model) resize() {
	if !m.ready {
		return
	}
	_, bh := historyBoxStyle.GetFrameSize()
	_, ih := inputBoxStyle.GetFrameSize()
	reserved := 1 + len(m.uploadLines()) + 2*(1+ih) + 2 // header, uploads, inputs, status, help
	if m.summary != "" {
		reserved++
	}
	m.viewport.Width = max(20, m.width-4)
	m.viewport.Height = max(3, m.height-reserved-bh)
	m.paths.Width = max(10, m.width-8)
	m.question.Width = max(10, m.width-8)
	m.refreshHistory()
}

func (m *Model) refreshHistory() {
	m.viewport.SetContent(renderHistory(m.session.History(), m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m Model) uploadLines() []string {
	if len(m.uploads) == 0 {
		return []string{"Uploads: none"}
	}
	lines := []string{fmt.Sprintf("Uploads (%d):", len(m.uploads))}
	for i, u := range m.uploads {
		if i == maxListedUploads {
			lines = append(lines, fmt.Sprintf("  ... and %d more", len(m.uploads)-maxListedUploads))
			break
		}
		lines = append(lines, "  "+filepath.Base(u))
	}
	return lines
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("PDF Chat"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Join(m.uploadLines(), "\n")))
	b.WriteString("\n")
	if m.summary != "" {
		b.WriteString(mutedStyle.Render(truncate("Summary: "+m.summary, m.width)))
		b.WriteString("\n")
	}
	b.WriteString(historyBoxStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(m.paths.View()))
	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(m.question.View()))
	b.WriteString("\n")
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("Tab switch input • Enter add/ask • Ctrl+P process • Ctrl+R reset • Ctrl+X clear uploads • Ctrl+C quit"))
	return b.String()
}

func renderHistory(turns []domain.Turn, width int) string {
	if len(turns) == 0 {
		return "No questions yet."
	}
	wrap := lipgloss.NewStyle().Width(max(20, width))
	var blocks []string
	var question string
	for _, t := range turns {
		switch t.Role {
		case domain.RoleUser:
			question = t.Content
			blocks = append(blocks, wrap.Render(userStyle.Render("User: ")+t.Content))
		case domain.RoleAssistant:
			blocks = append(blocks, wrap.Render(replyStyle.Render("Reply: ")+highlightReply(t.Content, question)))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func waitForEvent(events <-chan watcher.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		return watchMsg{event: ev, ok: ok}
	}
}

func describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrNoDocuments):
		return session.MsgNoDocuments
	default:
		return err.Error()
	}
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 3 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	replyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
