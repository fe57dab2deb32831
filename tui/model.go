package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/njyeung/loopwall/playback"
)

// Messages
type (
	// StopMsg asks the model to stop playback, e.g. on SIGTERM.
	StopMsg struct{}

	startedMsg struct{ handle *playback.Handle }
	stoppedMsg struct{ err error }
	tickMsg    time.Time
)

const statusInterval = time.Second

type state int

const (
	stateStarting state = iota
	statePlaying
	stateStopping
	stateStopped
)

// Clearer removes the last presented frame from the screen.
type Clearer interface {
	Clear() error
}

// session is shared by every copy of the Model so that Shutdown sees the
// handle started from Init.
type session struct {
	mu     sync.Mutex
	handle *playback.Handle
	closed bool
}

// Model is the Bubble Tea model hosting one playback loop
type Model struct {
	state   state
	loop    *playback.Loop
	clearer Clearer
	session *session
	source  string

	width   int
	height  int
	spinner spinner.Model
	stats   playback.Stats
	err     error
}

// NewModel creates a model that plays loop. clearer may be nil.
func NewModel(loop *playback.Loop, clearer Clearer, source string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		state:   stateStarting,
		loop:    loop,
		clearer: clearer,
		session: &session{},
		source:  source,
		spinner: s,
	}
}

// Init starts playback
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.start,
		tick(),
	)
}

func (m Model) start() tea.Msg {
	m.session.mu.Lock()
	defer m.session.mu.Unlock()

	if m.session.closed {
		return stoppedMsg{}
	}
	m.session.handle = m.loop.Start()
	return startedMsg{m.session.handle}
}

func waitFor(h *playback.Handle) tea.Cmd {
	return func() tea.Msg {
		return stoppedMsg{h.Wait()}
	}
}

func tick() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m.requestStop(), nil
		}

	case StopMsg:
		return m.requestStop(), nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		if m.state != stateStarting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case startedMsg:
		return m, waitFor(msg.handle)

	case tickMsg:
		m.stats = m.loop.Stats()
		if m.state == stateStarting && m.stats.FramesPresented > 0 {
			m.state = statePlaying
		}
		if m.state == stateStopped {
			return m, nil
		}
		return m, tick()

	case stoppedMsg:
		m.state = stateStopped
		m.err = msg.err
		m.stats = m.loop.Stats()
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) requestStop() Model {
	if m.state != stateStopped {
		m.state = stateStopping
	}
	m.loop.Lifecycle().RequestStop()
	return m
}

// Err returns the fatal error the loop stopped with, if any.
func (m Model) Err() error {
	return m.err
}

// Shutdown stops playback, waits for the loop to release its resources and
// clears the screen. It is safe to call more than once.
func (m Model) Shutdown() error {
	m.session.mu.Lock()
	m.session.closed = true
	h := m.session.handle
	m.session.mu.Unlock()

	var err error
	if h != nil {
		h.RequestStop()
		err = h.Wait()
	} else {
		m.loop.Lifecycle().RequestStop()
		m.loop.Close()
	}

	if m.clearer != nil {
		if cerr := m.clearer.Clear(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
