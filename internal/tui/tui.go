// Package tui renders the session log in the terminal and handles the
// operator keys. In simulation mode the S/P/1-4 keys mutate race state and
// publish events directly, bypassing the command channel; this shortcut is
// deliberate and mirrors the behavior operators rely on at the track.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/trackside-data/lapbridge/internal/bridge"
	"github.com/trackside-data/lapbridge/internal/message"
	"github.com/trackside-data/lapbridge/internal/session"
	"github.com/trackside-data/lapbridge/internal/shutdown"
)

const refreshInterval = 100 * time.Millisecond

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	ruleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the bubbletea model for the bridge display.
type Model struct {
	state     *session.State
	publisher *bridge.EventPublisher
	coord     *shutdown.Coordinator

	width  int
	height int
	snap   session.Snapshot
}

// New creates the display model over the shared session state.
func New(state *session.State, publisher *bridge.EventPublisher, coord *shutdown.Coordinator) Model {
	return Model{
		state:     state,
		publisher: publisher,
		coord:     coord,
		width:     80,
		height:    24,
		snap:      state.Snapshot(),
	}
}

// Init starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles keys, resizes, and refresh ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.snap = m.state.Snapshot()
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	now := time.Now()

	switch key := msg.String(); key {
	case "q", "Q", "ctrl+c":
		m.coord.Shutdown()
		return m, tea.Quit

	case "s", "S":
		if m.snap.SimulationMode {
			m.state.StartRace(now)
			m.publisher.Publish(ctx, message.Status{Message: "Simulation race started"})
		}

	case "p", "P":
		if m.snap.SimulationMode {
			m.state.StopRace()
			m.publisher.Publish(ctx, message.Status{Message: "Simulation race stopped"})
		}

	case "1", "2", "3", "4":
		if m.snap.SimulationMode {
			racer := uint32(key[0] - '0')
			m.publisher.Publish(ctx, message.Lap{
				RacerID:  racer,
				SensorID: 1,
				RaceTime: m.state.RaceTime(now),
			})
		}
	}
	return m, nil
}

// View renders header, scrolling log, and the status bar.
func (m Model) View() string {
	mode := "HARDWARE MODE"
	if m.snap.SimulationMode {
		mode = "SIMULATION MODE"
	}
	header := headerStyle.Render(fmt.Sprintf("=== Lapbridge - %s ===", mode))
	rule := ruleStyle.Render(repeatRune('─', m.width))

	// Reserve three lines for the header block and three for the status bar.
	visible := m.height - 6
	if visible < 1 {
		visible = 1
	}
	msgs := m.snap.Messages
	if len(msgs) > visible {
		msgs = msgs[len(msgs)-visible:]
	}
	body := ""
	for _, line := range msgs {
		body += line + "\n"
	}

	help := keyStyle.Render("[Q]") + "uit"
	if m.snap.SimulationMode {
		help = keyStyle.Render("[S]") + "tart race | Sto" + keyStyle.Render("[P]") + " race | " +
			keyStyle.Render("[1-4]") + " Simulate lap | " + keyStyle.Render("[Q]") + "uit"
	}
	status := fmt.Sprintf("Keys: %s\n%s", help,
		dimStyle.Render(fmt.Sprintf("Messages received: %d", m.snap.MessageCount)))

	return lipgloss.JoinVertical(lipgloss.Left, header, rule, body, rule, status)
}

func repeatRune(r rune, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]rune, n)
	for i := range out {
		out[i] = r
	}
	return string(out)
}

// Run drives the TUI until the operator quits or shutdown is requested
// elsewhere; either way the coordinator flag is set when it returns.
func Run(state *session.State, publisher *bridge.EventPublisher, coord *shutdown.Coordinator) error {
	p := tea.NewProgram(New(state, publisher, coord), tea.WithAltScreen())

	// External shutdown (signal, bus failure) also dismisses the display.
	go func() {
		<-coord.Done()
		p.Quit()
	}()

	_, err := p.Run()
	coord.Shutdown()
	return err
}
