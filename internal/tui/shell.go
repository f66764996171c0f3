// Package tui provides the Bubbletea-based terminal shell for gantry.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/voslin/gantry/internal/engine"
	"github.com/voslin/gantry/internal/instance"
	"github.com/voslin/gantry/internal/lifecycle"
	"github.com/voslin/gantry/internal/windowstate"
)

// Options wire the shell to the lifecycle machinery.
type Options struct {
	Controller   *lifecycle.Controller
	Supervisor   *engine.Supervisor
	DashboardURL string
	WindowStore  *windowstate.Store
}

// Model is the main Bubbletea model for the gantry shell.
type Model struct {
	// Window dimensions
	width  int
	height int

	// UI state
	ready    bool
	showLogs bool
	quitting bool

	// Components
	spinner spinner.Model
	header  Header
	helpBar HelpBar
	logs    LogTail

	// Lifecycle state mirrored from controller notifications
	phase        lifecycle.Phase
	phaseMessage string

	keys KeyBindings

	controller   *lifecycle.Controller
	supervisor   *engine.Supervisor
	dashboardURL string

	store    *windowstate.Store
	winState windowstate.State
}

// New creates a new shell model.
func New(opts Options) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)

	var st windowstate.State
	if opts.WindowStore != nil {
		st = opts.WindowStore.Load()
	} else {
		st = windowstate.Default()
	}

	return Model{
		spinner:      sp,
		header:       NewHeader(),
		helpBar:      NewHelpBar(),
		logs:         NewLogTail(),
		phase:        lifecycle.PhaseIdle,
		phaseMessage: "Starting…",
		keys:         DefaultKeyBindings(),
		controller:   opts.Controller,
		supervisor:   opts.Supervisor,
		dashboardURL: opts.DashboardURL,
		store:        opts.WindowStore,
		winState:     st,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.launchCmd(),
	)
}

// launchCmd kicks off the launch attempt once the program is running, so no
// phase notification is emitted before the UI can receive it.
func (m Model) launchCmd() tea.Cmd {
	controller := m.controller
	return func() tea.Msg {
		go controller.Launch(context.Background())
		return nil
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.header.SetWidth(msg.Width)
		m.helpBar.SetWidth(msg.Width)
		m.logs.SetSize(msg.Width-2, m.logHeight())
		m.persistGeometry()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case phaseMsg:
		return m.handlePhase(lifecycle.PhaseChange(msg))

	case engineLineMsg:
		m.logs.Append(engine.OutputLine(msg))
		return m, nil

	case surfaceMsg:
		m.helpBar.SetNotice("Another gantry launch was redirected to this window")
		return m, clearNoticeCmd()

	case quitRequestedMsg:
		return m, m.beginQuit()

	case clearNoticeMsg:
		m.helpBar.ClearNotice()
		return m, nil

	case shutdownDeadlineMsg:
		// Shutdown never confirmed. The host makes forward progress anyway.
		if m.quitting {
			slog.Error("host fallback deadline reached, exiting")
			return m, tea.Quit
		}
		return m, nil

	case openResultMsg:
		if msg.Err != nil {
			m.helpBar.SetNotice(msg.Err.Error())
			return m, clearNoticeCmd()
		}
		return m, nil

	case spinner.TickMsg:
		// No spinner renders once the attempt settles; stop the tick loop
		// until shutdown restarts it.
		if m.phase.Terminal() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.showLogs {
		return m, m.logs.Update(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, m.beginQuit()

	case key.Matches(msg, m.keys.OpenDashboard):
		if m.phase == lifecycle.PhaseReady {
			return m, openDashboardCmd(m.dashboardURL)
		}

	case key.Matches(msg, m.keys.ToggleLogs):
		m.showLogs = !m.showLogs
		m.logs.SetSize(m.width-2, m.logHeight())
		return m, nil
	}

	if m.showLogs {
		return m, m.logs.Update(msg)
	}
	return m, nil
}

func (m Model) handlePhase(pc lifecycle.PhaseChange) (tea.Model, tea.Cmd) {
	prev := m.phase
	m.phase = pc.Phase
	m.phaseMessage = pc.Message
	m.header.SetPhase(pc.Phase)
	m.helpBar.SetPhase(pc.Phase)
	m.header.SetEnginePID(m.supervisor.Pid())

	switch pc.Phase {
	case lifecycle.PhaseTerminated:
		return m, tea.Quit
	case lifecycle.PhaseShuttingDown:
		var cmds []tea.Cmd
		// The tick loop stopped when the attempt settled; the shutdown view
		// needs it again.
		if prev.Terminal() {
			cmds = append(cmds, m.spinner.Tick)
		}
		// Shutdown may have been initiated externally (stop command).
		if !m.quitting {
			m.quitting = true
			cmds = append(cmds, shutdownDeadlineCmd(m.controller.HostDeadline()))
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

// beginQuit starts the shutdown sequence once; the program exits when the
// Terminated phase arrives or the fallback deadline fires.
func (m *Model) beginQuit() tea.Cmd {
	if m.quitting {
		return nil
	}
	m.quitting = true
	m.controller.Quit()
	return shutdownDeadlineCmd(m.controller.HostDeadline())
}

// persistGeometry records the new terminal size. Failures are invisible:
// persistence is an optimization.
func (m *Model) persistGeometry() {
	if m.store == nil {
		return
	}
	m.winState.Width = m.width
	m.winState.Height = m.height
	if err := m.store.Save(m.winState); err != nil {
		slog.Debug("window state save failed", "error", err)
	}
}

func (m Model) logHeight() int {
	// Header, content block, and help bar share the vertical budget.
	h := m.height - 12
	if h < 4 {
		h = 4
	}
	return h
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.header.View()
	content := m.contentView()
	status := m.helpBar.View()

	if m.showLogs {
		return fmt.Sprintf("%s\n%s\n%s\n%s", header, content, m.logs.View(), status)
	}
	return fmt.Sprintf("%s\n%s\n%s", header, content, status)
}

// contentView renders the central block for the current phase.
func (m Model) contentView() string {
	wrapWidth := m.width - 4
	if wrapWidth <= 0 {
		wrapWidth = 76
	}

	switch m.phase {
	case lifecycle.PhaseReady:
		var b strings.Builder
		b.WriteString("\n  " + readyStyle.Render("Backend ready") + "\n\n")
		b.WriteString("  Dashboard: " + dashboardURLStyle.Render(m.dashboardURL) + "\n\n")
		b.WriteString(phaseDetailStyle.Render("  Press o to open it in your browser."))
		return b.String()

	case lifecycle.PhaseFailed:
		var b strings.Builder
		b.WriteString("\n  " + failureTitleStyle.Render("Launch failed") + "\n\n")
		msg := m.phaseMessage
		if f := m.controller.Failure(); f != nil {
			msg = f.Message
		}
		b.WriteString(indent(failureBodyStyle.Render(wordwrap.String(msg, wrapWidth))) + "\n\n")
		b.WriteString(failureHintStyle.Render("  Quit and relaunch gantry to retry. Press l for engine output."))
		if !m.logs.Empty() && !m.showLogs {
			b.WriteString("\n\n" + logTitleStyle.Render("  Recent engine output:") + "\n")
			for _, line := range m.logs.Tail(5) {
				style := logLineStyle
				if line.Stream == "stderr" {
					style = logErrLineStyle
				}
				b.WriteString(indent(style.Render(wordwrap.String(line.Text, wrapWidth))) + "\n")
			}
		}
		return b.String()

	case lifecycle.PhaseShuttingDown:
		return "\n  " + m.spinner.View() + phaseStyle.Render("Shutting down…") + "\n"

	default:
		return "\n  " + m.spinner.View() + phaseStyle.Render(m.phaseMessage) + "\n"
	}
}

// indent prefixes each line with two spaces.
func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

// Run starts the shell and blocks until it exits. The instance listener is
// bound for the program's lifetime so later launch attempts can surface this
// window and the stop command can request shutdown.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())

	// One-way notifications into the UI. These fire on lifecycle
	// goroutines; Send hands them to the program's event queue.
	opts.Controller.OnPhaseChange(func(pc lifecycle.PhaseChange) {
		p.Send(phaseMsg(pc))
	})
	opts.Supervisor.OnOutput(func(line engine.OutputLine) {
		p.Send(engineLineMsg(line))
	})

	listener := instance.NewListener(opts.Controller.SocketPath(),
		func() { p.Send(surfaceMsg{}) },
		func() { p.Send(quitRequestedMsg{}) },
	)
	if err := listener.Start(); err != nil {
		// Not fatal: the shell works without the surface channel.
		slog.Warn("instance listener failed to start", "error", err)
	} else {
		defer listener.Stop()
	}

	slog.Debug("tui.Run: starting program")
	_, err := p.Run()
	slog.Debug("tui.Run: program exited", "error", err)
	return err
}
