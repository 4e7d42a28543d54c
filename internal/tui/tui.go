// Package tui renders a shared pomodoro session in the terminal. The model
// consumes the transport-agnostic Session surface, so offline sessions,
// hub handles and remote connections all drive the same view.
package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/pomosync/internal/protocol"
	"github.com/mcdev12/pomosync/internal/session"
	"github.com/mcdev12/pomosync/internal/timer"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	modeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	workBadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("203")).
			Padding(0, 1)

	breakBadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("78")).
			Padding(0, 1)

	pausedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("245"))

	clockStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	memberStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

const (
	tickInterval   = 250 * time.Millisecond
	bannerLifetime = 5 * time.Second
)

// Session is the surface the view consumes. Hub handles, offline sessions
// and remote connections all satisfy it.
type Session interface {
	Submit(a timer.Action) error
	Snapshots() <-chan protocol.Snapshot
}

// ── Messages ────────────

type snapshotMsg protocol.Snapshot

type streamClosedMsg struct{}

type submitErrorMsg struct{ err error }

type tickMsg time.Time

// ── Model ────────────

// Model is the root Bubble Tea model for a session view. Between host
// pushes it counts down on the local clock; every snapshot re-anchors the
// deadline, so clock skew never bends the display.
type Model struct {
	sess  Session
	clock timer.Clock
	mode  string

	state   timer.State
	members []protocol.Member
	now     time.Time
	synced  bool

	banner      string
	bannerUntil time.Time

	bar   progress.Model
	width int
	err   error
}

// New builds a model around an established session. mode is the line shown
// next to the title: "offline", "hosting on :7319", "joined study:7319".
func New(sess Session, mode string, clock timer.Clock) Model {
	bar := progress.New(progress.WithDefaultGradient())
	bar.ShowPercentage = false
	return Model{
		sess:  sess,
		clock: clock,
		mode:  mode,
		now:   clock.Now(),
		bar:   bar,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitSnapshotCmd(), tickEvery(tickInterval))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		return m.handleSnapshot(protocol.Snapshot(msg))

	case tickMsg:
		m.now = m.clock.Now()
		if m.banner != "" && m.now.After(m.bannerUntil) {
			m.banner = ""
		}
		return m, tickEvery(tickInterval)

	case streamClosedMsg:
		return m, tea.Quit

	case submitErrorMsg:
		if errors.Is(msg.err, session.ErrHubClosed) {
			return m, tea.Quit
		}
		m.err = msg.err
		return m, nil

	case tea.WindowSizeMsg:
		m.setWidth(msg.Width)
		return m, nil
	}
	return m, nil
}

// setWidth records the terminal width and keeps the progress bar inside it.
func (m *Model) setWidth(w int) {
	m.width = w
	bw := w - 8
	if bw > 50 {
		bw = 50
	}
	if bw > 0 {
		m.bar.Width = bw
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		return m, m.submitCmd(timer.Action{Kind: timer.ActionToggle})
	case "s":
		return m, m.submitCmd(timer.Action{Kind: timer.ActionSkip})
	case "+", "=":
		return m, m.submitCmd(timer.Action{Kind: timer.ActionAdjust, Delta: time.Minute})
	case "-", "_":
		return m, m.submitCmd(timer.Action{Kind: timer.ActionAdjust, Delta: -time.Minute})
	case "r":
		return m, m.submitCmd(timer.Action{Kind: timer.ActionReset})
	}
	return m, nil
}

func (m Model) handleSnapshot(snap protocol.Snapshot) (tea.Model, tea.Cmd) {
	now := m.clock.Now()
	m.state = snap.State(now)
	m.members = snap.Members
	m.now = now
	m.synced = true
	m.err = nil

	cmds := []tea.Cmd{m.waitSnapshotCmd()}
	if snap.Effect == timer.EffectPhaseChanged {
		m.banner = phaseBanner(snap.Phase)
		m.bannerUntil = now.Add(bannerLifetime)
		cmds = append(cmds, ringBell)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	title := titleStyle.Render("pomosync") + " " + modeStyle.Render(m.mode)

	if !m.synced {
		return title + "\n\n  waiting for session state...\n"
	}

	badge := workBadgeStyle
	if m.state.Phase != timer.PhaseWork {
		badge = breakBadgeStyle
	}
	phaseLine := "  " + badge.Render(strings.ToUpper(m.state.Phase.Label()))
	if !m.state.Running {
		phaseLine += " " + pausedStyle.Render("paused")
	}

	remaining := m.state.RemainingAt(m.now)
	clockLine := "  " + clockStyle.Render(timer.FormatClock(remaining))

	barLine := "  " + m.bar.ViewAs(m.state.ProgressAt(m.now))

	// Settings arrive off the wire unvalidated; never divide by them raw.
	cycleLen := m.state.Settings.CycleLength
	if cycleLen < 1 {
		cycleLen = 1
	}
	slot := m.state.Cycle%cycleLen + 1
	cycleLine := dimStyle.Render(fmt.Sprintf("  cycle %d of %d", slot, cycleLen))

	parts := []string{title, "", phaseLine, clockLine, barLine, cycleLine}

	if len(m.members) > 0 {
		parts = append(parts, "", dimStyle.Render("  participants"))
		for i, mem := range m.members {
			parts = append(parts, memberStyle.Render(fmt.Sprintf("   %d. %s", i+1, mem.Name)))
		}
	}

	if m.banner != "" {
		parts = append(parts, "", "  "+bannerStyle.Render(m.banner))
	}
	if m.err != nil {
		parts = append(parts, "", "  "+errorStyle.Render(m.err.Error()))
	}

	parts = append(parts, "", dimStyle.Render("  space start/pause  s skip  +/- adjust  r reset  q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// ── Commands ────────────

// waitSnapshotCmd blocks for the next host push.
func (m Model) waitSnapshotCmd() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.sess.Snapshots()
		if !ok {
			return streamClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) submitCmd(a timer.Action) tea.Cmd {
	return func() tea.Msg {
		if err := m.sess.Submit(a); err != nil {
			return submitErrorMsg{err: err}
		}
		return nil
	}
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// ringBell sounds the terminal bell on a phase rollover.
func ringBell() tea.Msg {
	fmt.Print("\a")
	return nil
}

func phaseBanner(p timer.Phase) string {
	switch p {
	case timer.PhaseWork:
		return "Break over. Back to work!"
	case timer.PhaseShortBreak:
		return "Work done. Take a short break!"
	case timer.PhaseLongBreak:
		return "Cycle complete. Take a long break!"
	default:
		return ""
	}
}

// Run drives the session view until the user quits or the session ends.
func Run(sess Session, mode string) error {
	m := New(sess, mode, clockwork.NewRealClock())
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil {
		m.setWidth(w)
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
