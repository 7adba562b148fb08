// Package dashboard renders the live terminal UI: one bar gauge per tracked
// counter on top, the monitored process's relayed output scrolling below.
// Rendering runs on its own cadence against the sample store, so redraws
// stay smooth regardless of how long a poll takes.
package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sheatsley/profiler/internal/relay"
	"github.com/sheatsley/profiler/internal/store"
)

// DefaultRenderInterval is the default redraw cadence. It is intentionally
// faster than the sampling interval so output lines appear promptly.
const DefaultRenderInterval = 250 * time.Millisecond

// maxOutputLines caps the retained output scrollback.
const maxOutputLines = 5000

// sparklineBreakpoint is the minimum terminal width at which gauge rows get
// a history sparkline next to the bar.
const sparklineBreakpoint = 100

// sparklineWidth is the number of history points shown in a gauge sparkline.
const sparklineWidth = 20

// Model is the Bubble Tea model for the profiling dashboard.
type Model struct {
	store          *store.Store
	rel            *relay.Relay
	cmdline        string
	renderInterval time.Duration

	width  int
	height int

	viewport      viewport.Model
	viewportReady bool
	follow        bool

	raw     []relay.Line
	started time.Time

	exitCode   *int
	outputDone bool
	quitting   bool
}

// tickMsg signals a periodic redraw.
type tickMsg time.Time

// lineMsg carries one relayed output line.
type lineMsg relay.Line

// outputDoneMsg signals that the relay has delivered everything.
type outputDoneMsg struct{}

// ProcExitMsg reports the monitored process's exit code. The session sends
// it into the running program.
type ProcExitMsg struct {
	Code int
}

// NewModel creates a dashboard over the given store and relay. cmdline is
// the monitored command shown in the header.
func NewModel(st *store.Store, rel *relay.Relay, cmdline string, renderInterval time.Duration) Model {
	if renderInterval <= 0 {
		renderInterval = DefaultRenderInterval
	}
	return Model{
		store:          st,
		rel:            rel,
		cmdline:        cmdline,
		renderInterval: renderInterval,
		follow:         true,
		started:        time.Now(),
	}
}

// Init starts the redraw timer and the output pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.waitForLine())
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "up", "k", "pgup":
			// Manual scrolling pauses follow mode.
			m.follow = false
		case "f", "end", "G":
			m.follow = true
			if m.viewportReady {
				m.viewport.GotoBottom()
			}
			return m, nil
		}
		if m.viewportReady {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			if m.viewport.AtBottom() {
				m.follow = true
			}
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutViewport()
		m.refreshOutput()

	case tickMsg:
		// The gauge count can grow mid-run (a GPU key appearing after the
		// first successful query), which changes the viewport height.
		m.layoutViewport()
		return m, m.tickCmd()

	case lineMsg:
		m.raw = append(m.raw, relay.Line(msg))
		if len(m.raw) > maxOutputLines {
			m.raw = m.raw[len(m.raw)-maxOutputLines:]
		}
		m.refreshOutput()
		return m, m.waitForLine()

	case outputDoneMsg:
		m.outputDone = true

	case ProcExitMsg:
		code := msg.Code
		m.exitCode = &code
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "starting..."
	}
	return m.render()
}

// ExitCode returns the monitored process's exit code, or ok=false if it has
// not been observed yet.
func (m Model) ExitCode() (int, bool) {
	if m.exitCode == nil {
		return 0, false
	}
	return *m.exitCode, true
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.renderInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForLine blocks on the relay until the next line arrives. Once the
// relay closes, buffered lines are drained before reporting completion.
func (m Model) waitForLine() tea.Cmd {
	rel := m.rel
	return func() tea.Msg {
		if rel == nil {
			return outputDoneMsg{}
		}
		select {
		case line := <-rel.Lines():
			return lineMsg(line)
		case <-rel.Done():
			select {
			case line := <-rel.Lines():
				return lineMsg(line)
			default:
				return outputDoneMsg{}
			}
		}
	}
}

// layoutViewport sizes the output viewport to whatever height remains under
// the header, gauges, and footer.
func (m *Model) layoutViewport() {
	if m.width == 0 {
		return
	}

	chromeHeight := headerHeight + m.gaugeCount() + dividerHeight + footerHeight
	vpHeight := m.height - chromeHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.viewportReady {
		m.viewport = viewport.New(m.width, vpHeight)
		m.viewportReady = true
		m.refreshOutput()
	} else if m.viewport.Width != m.width || m.viewport.Height != vpHeight {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
		m.refreshOutput()
	}
}

// refreshOutput rebuilds the viewport content from the retained lines,
// soft-wrapping to the current width.
func (m *Model) refreshOutput() {
	if !m.viewportReady || m.width == 0 {
		return
	}

	m.viewport.SetContent(renderOutput(m.raw, m.width))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) gaugeCount() int {
	if m.store == nil {
		return 0
	}
	return m.store.Len()
}
