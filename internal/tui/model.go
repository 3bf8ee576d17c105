package tui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/diogo/zai/internal/bridge"
	"github.com/diogo/zai/internal/chat"
	"github.com/diogo/zai/internal/models"
	"github.com/diogo/zai/internal/render"
)

// exchangeResolvedMsg is posted into the event loop when an exchange
// resolves on another goroutine.
type exchangeResolvedMsg struct {
	exchange *chat.Exchange
}

// noticeExpiredMsg clears a transient status notice.
type noticeExpiredMsg struct {
	seq int
}

// ChatOptions configures a chat session
type ChatOptions struct {
	Bridge          bridge.Bridge
	Engines         *models.EngineList
	FallbackDelay   time.Duration
	ResponseTimeout time.Duration
	Recorder        chat.Recorder
	Logger          *zap.Logger
	Render          render.Options
	// Prior messages shown before the first new exchange.
	Prior []models.Message
	// CopyOnResolve copies every bridge response to the clipboard.
	CopyOnResolve bool
}

// notifier forwards messages to a tea.Program once it exists. Messages
// are sent from a new goroutine: a bridge may complete synchronously
// inside Update, where a blocking Program.Send would never return.
type notifier struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (n *notifier) bind(send func(tea.Msg)) {
	n.mu.Lock()
	n.send = send
	n.mu.Unlock()
}

func (n *notifier) notify(msg tea.Msg) {
	n.mu.Lock()
	send := n.send
	n.mu.Unlock()
	if send != nil {
		go send(msg)
	}
}

// Model represents the TUI state
type Model struct {
	controller  *chat.Controller
	engines     *models.EngineList
	bridgeLabel string
	copyOnDone  bool
	copyFn      func(string) error
	logger      *zap.Logger

	// UI components
	textarea *textarea.Model
	view     *transcriptView
	spinner  spinner.Model

	// State
	ready        bool
	spinning     bool
	lastResponse string
	notice       string
	noticeSeq    int
	err          error

	width  int
	height int
}

// NewChatModel creates a chat model and the controller behind it.
// notify is called from any goroutine when an exchange resolves.
func NewChatModel(opts ChatOptions, notify func(tea.Msg)) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask ZEGA anything..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	engines := opts.Engines
	if engines == nil {
		engines = models.NewEngineList(models.DefaultEngines(), models.DefaultEngine)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := Model{
		engines:     engines,
		bridgeLabel: bridge.Describe(opts.Bridge),
		copyOnDone:  opts.CopyOnResolve,
		copyFn:      clipboard.WriteAll,
		logger:      logger,
		textarea:    &ta,
		spinner:     s,
	}

	controllerOpts := []chat.Option{
		chat.WithFallbackDelay(opts.FallbackDelay),
		chat.WithResponseTimeout(opts.ResponseTimeout),
		chat.WithLogger(logger),
		chat.WithOnResolved(func(ex *chat.Exchange) {
			if notify != nil {
				notify(exchangeResolvedMsg{exchange: ex})
			}
		}),
	}
	if opts.Bridge != nil {
		controllerOpts = append(controllerOpts, chat.WithBridge(opts.Bridge))
	}
	if opts.Recorder != nil {
		controllerOpts = append(controllerOpts, chat.WithRecorder(opts.Recorder))
	}

	transcript := chat.NewTranscript()
	for _, msg := range opts.Prior {
		transcript.Append(msg.Role, msg.Text, "")
	}
	controllerOpts = append(controllerOpts, chat.WithTranscript(transcript))

	var ctrl *chat.Controller
	m.view = newTranscriptView(transcript, func(id string) bool {
		return ctrl != nil && ctrl.IsPending(id)
	}, opts.Render)
	controllerOpts = append(controllerOpts, chat.WithScroller(m.view))

	ctrl = chat.NewController(m.textarea, engines, controllerOpts...)
	m.controller = ctrl
	return m
}

// Controller returns the controller driving the session.
func (m Model) Controller() *chat.Controller {
	return m.controller
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		inputHeight := 6
		statusHeight := 2
		padding := 2

		vpHeight := max(m.height-headerHeight-inputHeight-statusHeight-padding, 5)
		contentWidth := m.width - 4

		m.textarea.SetWidth(contentWidth - 4)
		m.view.Resize(contentWidth, vpHeight)
		m.ready = true

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "tab":
			m.engines.Next()
			return m, nil

		case "shift+tab":
			m.engines.Prev()
			return m, nil

		case "ctrl+y":
			return m, m.copyLast()

		case "enter":
			// only the slash forms are commands; any other text is a query
			switch strings.TrimSpace(m.textarea.Value()) {
			case "/exit", "/quit":
				return m, tea.Quit
			}

			if _, ok := m.controller.SubmitQuery(); ok {
				m.err = nil
				if !m.spinning {
					m.spinning = true
					cmds = append(cmds, m.spinner.Tick)
				}
			}
			// enter never reaches the textarea: submission replaces newline
			return m, tea.Batch(cmds...)
		}

	case exchangeResolvedMsg:
		if r, ok := msg.exchange.Resolution(); ok {
			if !r.Diagnostic() {
				m.lastResponse = r.Text
				if m.copyOnDone {
					cmds = append(cmds, m.copyText(r.Text))
				}
			}
		}
		m.view.GotoBottom()

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}

	case spinner.TickMsg:
		if m.controller.Pending() > 0 {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
			m.view.Refresh()
		} else {
			m.spinning = false
		}
	}

	if _, ok := msg.(tea.KeyMsg); ok {
		*m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.view.vp, cmd = m.view.vp.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) copyLast() tea.Cmd {
	if m.lastResponse == "" {
		return m.setNotice("nothing to copy yet")
	}
	return m.copyText(m.lastResponse)
}

func (m *Model) copyText(text string) tea.Cmd {
	if err := m.copyFn(text); err != nil {
		m.logger.Warn("clipboard copy failed", zap.Error(err))
		m.err = fmt.Errorf("copy to clipboard: %w", err)
		return nil
	}
	return m.setNotice("response copied to clipboard")
}

func (m *Model) setNotice(text string) tea.Cmd {
	m.noticeSeq++
	m.notice = text
	seq := m.noticeSeq
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.width - 4

	headerParts := []string{
		titleStyle.Render("✦ ZEGA"),
		hintStyle.Render("  •  "),
		subtitleStyle.Render("engine: " + m.engines.Value()),
		hintStyle.Render("  •  "),
		subtitleStyle.Render(m.bridgeLabel),
	}
	headerContent := lipgloss.JoinHorizontal(lipgloss.Center, headerParts...)
	sections = append(sections, headerStyle.Width(contentWidth).Render(headerContent))

	var messagesContent string
	if m.controller.Transcript().Len() == 0 {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.view.vp.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.view.vp.Height).
		Render(messagesContent))

	label := inputLabelStyle.Render("You")
	if n := m.controller.Pending(); n > 0 {
		label += loadingStyle.Render(fmt.Sprintf("%s %d pending", m.spinner.View(), n))
	}
	inputContent := lipgloss.JoinVertical(lipgloss.Left, label, m.textarea.View())
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(inputContent))

	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderWelcome() string {
	width := m.view.vp.Width - 4
	height := m.view.vp.Height

	icon := welcomeIconStyle.Width(width).Render("✦")
	title := welcomeTitleStyle.Width(width).Render("ZEGA")
	subtitle := welcomeStyle.Width(width).Render("Type a message below. Tab switches the engine.")

	content := lipgloss.JoinVertical(lipgloss.Center, "", icon, "", title, "", subtitle, "")

	topPadding := max((height-lipgloss.Height(content))/2, 0)
	return strings.Repeat("\n", topPadding) + content
}

func (m Model) renderStatusBar(width int) string {
	if m.notice != "" {
		return statusBarStyle.Width(width).Align(lipgloss.Center).Render(noticeStyle.Render(m.notice))
	}

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Tab", "Engine"},
		{"Ctrl+Y", "Copy"},
		{"↑↓", "Scroll"},
		{"Esc /quit", "Quit"},
	}

	items := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}

	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(strings.Join(items, "  │  "))
}

// RunChat starts the chat TUI and blocks until the user quits. Pending
// exchanges are canceled on exit; the bridge is left to the caller.
func RunChat(opts ChatOptions) error {
	n := &notifier{}
	m := NewChatModel(opts, n.notify)
	defer m.controller.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	n.bind(p.Send)

	_, err := p.Run()
	return err
}
