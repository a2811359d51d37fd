// Package tui provides the Bubble Tea playground: an editor pane bound to the
// session language, a stdin field, and a panel with the current diagnostic,
// the pending suggestion and the latest run output.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/fakeyudi/codepad/internal/assist"
	"github.com/fakeyudi/codepad/internal/engine"
	"github.com/fakeyudi/codepad/internal/language"
	"github.com/fakeyudi/codepad/internal/session"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	focusedBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	blurredBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238"))
)

const noticeTTL = 4 * time.Second

type focus int

const (
	focusEditor focus = iota
	focusStdin
	focusOutput
	focusCount
)

// ── Messages ───────────────

type eventMsg session.Event

type doneMsg struct {
	op  string
	err error
}

type noticeExpiredMsg struct{ seq int }

// ── Model ────────────────────

// Model is the root Bubble Tea model for the playground.
type Model struct {
	ctx    context.Context
	ctrl   *session.Controller
	events <-chan session.Event

	editor textarea.Model
	stdin  textinput.Model
	output viewport.Model
	focus  focus

	snap      *session.Session
	checking  bool
	busy      bool
	running   bool
	notice    *session.Notice
	noticeSeq int

	width  int
	height int
	ready  bool
}

// New creates a playground model driving ctrl. events must carry every event
// the controller publishes.
func New(ctx context.Context, ctrl *session.Controller, events <-chan session.Event) Model {
	snap := ctrl.Snapshot()

	ed := textarea.New()
	ed.ShowLineNumbers = true
	ed.CharLimit = 0
	ed.Placeholder = "Write some code…"
	ed.SetValue(snap.Source)
	ed.Focus()

	in := textinput.New()
	in.Placeholder = "stdin for the next run"
	in.Prompt = "› "

	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		events:   events,
		editor:   ed,
		stdin:    in,
		snap:     snap,
		checking: ctrl.Checking(),
	}
}

func waitForEvent(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForEvent(m.events))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case eventMsg:
		m.applyEvent(session.Event(msg))
		cmds := []tea.Cmd{waitForEvent(m.events)}
		if msg.Kind == session.EventNotice {
			cmds = append(cmds, m.showNotice(msg.Notice))
		}
		return m, tea.Batch(cmds...)

	case doneMsg:
		if msg.op == "run" {
			m.running = false
		}
		m.busy = m.ctrl.Busy()
		m.refreshOutput()
		if errors.Is(msg.err, session.ErrNoDiagnostic) {
			return m, m.showNotice(&session.Notice{
				Level:  session.NoticeWarning,
				Title:  "No error to fix",
				Detail: "No error is detected in the current code.",
			})
		}
		return m, nil

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	return m.updateFocused(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "ctrl+q":
		return tea.Quit, true
	case "ctrl+w":
		m.setFocus((m.focus + 1) % focusCount)
		return nil, true
	case "ctrl+r":
		if m.running {
			return nil, true
		}
		m.running = true
		stdin := m.stdin.Value()
		return m.async("run", func() error {
			m.ctrl.Run(m.ctx, stdin)
			return nil
		}), true
	case "ctrl+t":
		next := nextLanguage(m.snap.Language)
		_ = m.ctrl.SwitchLanguage(next)
		return nil, true
	case "ctrl+e":
		_ = m.ctrl.LoadFaultySample()
		return nil, true
	case "ctrl+f":
		if m.busy {
			return nil, true
		}
		m.busy = true
		return m.async("fix", func() error {
			_, err := m.ctrl.RequestErrorCorrection(m.ctx)
			return err
		}), true
	case "ctrl+o":
		if m.busy {
			return nil, true
		}
		m.busy = true
		return m.async("optimize", func() error {
			_, err := m.ctrl.RequestOptimization(m.ctx)
			return err
		}), true
	case "ctrl+y":
		if m.snap.Pending != nil && !m.checking {
			_ = m.ctrl.ApplyCorrection()
		}
		return nil, true
	case "esc":
		if m.snap.Pending != nil {
			_ = m.ctrl.DiscardCorrection()
			return nil, true
		}
	case "tab":
		if m.focus == focusEditor {
			m.editor.InsertString("  ")
			m.ctrl.Edit(m.editor.Value())
			return nil, true
		}
	}
	return nil, false
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusEditor:
		before := m.editor.Value()
		m.editor, cmd = m.editor.Update(msg)
		if after := m.editor.Value(); after != before {
			m.ctrl.Edit(after)
		}
	case focusStdin:
		m.stdin, cmd = m.stdin.Update(msg)
	case focusOutput:
		m.output, cmd = m.output.Update(msg)
	}
	return m, cmd
}

// showNotice puts n in the status bar until it expires or is replaced.
func (m *Model) showNotice(n *session.Notice) tea.Cmd {
	m.notice = n
	m.noticeSeq++
	seq := m.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg{seq: seq} })
}

func (m *Model) async(op string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{op: op, err: fn()}
	}
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	m.editor.Blur()
	m.stdin.Blur()
	switch f {
	case focusEditor:
		m.editor.Focus()
	case focusStdin:
		m.stdin.Focus()
	}
}

func (m *Model) applyEvent(e session.Event) {
	if e.Session != nil {
		m.snap = e.Session
	}
	m.checking = m.ctrl.Checking()
	m.busy = m.ctrl.Busy()
	switch e.Kind {
	case session.EventSource:
		if m.editor.Value() != m.snap.Source {
			m.editor.SetValue(m.snap.Source)
		}
	case session.EventRunning:
		m.running = true
	case session.EventRun:
		m.running = false
	}
	m.refreshOutput()
}

// ── Layout ───────────────────────────────────────────

func (m *Model) layout() {
	// title(1) + language bar(1) + status bar(1)
	body := max(m.height-3, 6)
	left := max(m.width*3/5, 20)
	right := max(m.width-left, 20)

	// Borders take two rows and two columns.
	m.editor.SetWidth(left - 2)
	m.editor.SetHeight(body - 2)

	m.stdin.Width = right - 6
	m.output = viewport.New(right-2, body-5)
	m.refreshOutput()
}

func (m *Model) refreshOutput() {
	if !m.ready {
		return
	}
	m.output.SetContent(renderPanel(m.snap, m.checking, m.busy, m.running, m.output.Width))
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render(fmt.Sprintf("  codepad  %s %s  %s",
		m.snap.Language.DisplayName(), m.snap.Language.Version(), m.activity()))

	var tabs []string
	for i, l := range language.All() {
		label := " " + l.DisplayName() + " "
		if l == m.snap.Language {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
		if i < len(language.All())-1 {
			tabs = append(tabs, tabSepStyle.Render("│"))
		}
	}
	langRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))

	editorBox := pick(m.focus == focusEditor).Render(m.editor.View())
	outputBox := pick(m.focus == focusOutput).Render(m.output.View())
	stdinBox := pick(m.focus == focusStdin).Render(m.stdin.View())
	right := lipgloss.JoinVertical(lipgloss.Left, outputBox, stdinBox)
	body := lipgloss.JoinHorizontal(lipgloss.Top, editorBox, right)

	return lipgloss.JoinVertical(lipgloss.Left, title, langRow, body, m.statusBar())
}

func (m Model) activity() string {
	switch {
	case m.running:
		return "running…"
	case m.busy:
		return "generating…"
	case m.checking:
		return "checking…"
	}
	return ""
}

func (m Model) statusBar() string {
	text := "  ^R run  ^F fix  ^O optimize  ^Y apply  esc discard  ^E error sample  ^T language  ^W focus  ^Q quit"
	if m.notice != nil {
		text = "  " + noticeStyle(m.notice.Level).Render(m.notice.Title)
		if m.notice.Detail != "" {
			text += "  " + m.notice.Detail
		}
	}
	return statusBarStyle.Width(m.width).Render(truncate(text, m.width-2))
}

func pick(focused bool) lipgloss.Style {
	if focused {
		return focusedBorder
	}
	return blurredBorder
}

func noticeStyle(l session.NoticeLevel) lipgloss.Style {
	switch l {
	case session.NoticeSuccess:
		return okStyle.Bold(true)
	case session.NoticeWarning:
		return warnStyle.Bold(true)
	case session.NoticeError:
		return errorStyle.Bold(true)
	}
	return labelStyle
}

// ── Panel rendering ──────────────────────────────────

func heading(s string) string {
	return sectionHeader.Render(" "+s) + "\n"
}

// renderPanel draws the diagnostic, suggestion and output sections. While a
// diagnostic check is pending the diagnostic and suggestion are hidden, since
// they may describe text that no longer exists.
func renderPanel(s *session.Session, checking, busy, running bool, width int) string {
	var sb strings.Builder

	sb.WriteString(heading("Diagnostic"))
	switch {
	case checking:
		sb.WriteString(dimStyle.Render("   checking…") + "\n")
	case s.Diagnostic == nil:
		sb.WriteString(okStyle.Render("   ✓ no errors detected") + "\n")
	default:
		sb.WriteString(errorStyle.Render(truncate("   ✖ "+s.Diagnostic.String(), width)) + "\n")
	}
	sb.WriteString("\n")

	if busy {
		sb.WriteString(heading("Suggestion"))
		sb.WriteString(dimStyle.Render("   generating…") + "\n\n")
	} else if s.Pending != nil && !checking {
		kind := "Corrected code"
		if s.Pending.Mode == assist.ModeOptimization {
			kind = "Optimized code"
		}
		sb.WriteString(heading(kind + dimStyle.Render("  ^Y apply · esc discard")))
		if s.Pending.Unchanged {
			sb.WriteString(warnStyle.Render("   no functional change") + "\n")
		}
		for _, line := range strings.Split(s.Pending.Text, "\n") {
			sb.WriteString(truncate("   "+line, width) + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(heading("Output"))
	switch {
	case running:
		sb.WriteString(dimStyle.Render("   running…") + "\n")
	case len(s.History) == 0:
		sb.WriteString(dimStyle.Render("   press ^R to run") + "\n")
	default:
		sb.WriteString(renderResult(s.History[0], width))
		if n := len(s.History); n > 1 {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("   (%d earlier runs kept)", n-1)) + "\n")
		}
	}
	return sb.String()
}

func renderResult(r engine.Result, width int) string {
	var sb strings.Builder
	status := okStyle.Render("ok")
	style := lipgloss.NewStyle()
	if r.IsError {
		status = errorStyle.Render("error")
		style = errorStyle
	}
	sb.WriteString("   " + timeStyle.Render(r.Timestamp.Format("15:04:05")) + "  " + status + "\n")
	for _, line := range r.OutputLines {
		sb.WriteString(style.Render(truncate("   "+line, width)) + "\n")
	}
	return sb.String()
}

// truncate cuts s to at most w terminal cells.
func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	return runewidth.Truncate(s, w, "…")
}

func nextLanguage(cur language.Language) language.Language {
	all := language.All()
	for i, l := range all {
		if l == cur {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

// Run starts the playground on ctrl and blocks until the user quits.
func Run(ctx context.Context, ctrl *session.Controller) error {
	events := make(chan session.Event, 256)
	unsubscribe := ctrl.Subscribe(func(e session.Event) {
		select {
		case events <- e:
		default:
		}
	})
	defer unsubscribe()

	p := tea.NewProgram(New(ctx, ctrl, events), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
