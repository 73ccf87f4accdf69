package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytcurate/internal/tasks"
)

// ViewState represents the current view of the run monitor.
type ViewState int

const (
	RunningView ViewState = iota
	ResultView
)

// RunFunc executes a pipeline, reporting progress on the channel it is given.
type RunFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.Summary, error)

var phaseTitles = map[tasks.Phase]string{
	tasks.PhaseReplay:   "Replaying failure ledger",
	tasks.PhaseDiscover: "Discovering uploads",
	tasks.PhaseEnrich:   "Fetching statistics",
	tasks.PhaseStats:    "Tracking statistics",
	tasks.PhaseUpdate:   "Updating playlists",
	tasks.PhaseAdd:      "Adding videos",
	tasks.PhaseRadar:    "Refilling release radar",
	tasks.PhaseSort:     "Sorting channels",
}

// Model is the bubbletea model of the run monitor.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	run    RunFunc
	view   ViewState
	width  int
	height int

	bar          progress.Model
	current      tasks.ProgressUpdate
	started      bool
	progressChan chan tasks.ProgressUpdate
	done         chan runResult
	finished     chan struct{}
	final        runResult

	summary *tasks.Summary
	err     error
	updates list.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a monitor that executes run when the program starts.
func NewModel(ctx context.Context, run RunFunc) *Model {
	ctx, cancel := context.WithCancel(ctx)
	return &Model{
		ctx:    ctx,
		cancel: cancel,
		run:    run,
		view:   RunningView,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Summary returns the result of the run, once complete.
func (m *Model) Summary() *tasks.Summary {
	return m.summary
}

// Err returns the error the run ended with.
func (m *Model) Err() error {
	return m.err
}

// Stop cancels the run if it is still going and blocks until the pipeline has returned. The
// result it returned replaces whatever the view last showed.
func (m *Model) Stop() {
	m.cancel()
	if m.finished == nil {
		return
	}
	<-m.finished
	m.summary, m.err = m.final.summary, m.final.err
}

func (m *Model) Init() tea.Cmd {
	return m.startRun()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(min(msg.Width-4, 60), 10)
		if m.view == ResultView {
			m.updates.SetSize(msg.Width-4, m.listHeight())
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.cancel()
			return m, tea.Quit
		}
		if m.view == ResultView {
			var cmd tea.Cmd
			m.updates, cmd = m.updates.Update(msg)
			return m, cmd
		}
		return m, nil

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.current = msg.data.(tasks.ProgressUpdate)
			m.started = true
			return m, m.waitForProgress()
		case MsgRunComplete:
			result := msg.data.(runResult)
			m.summary, m.err = result.summary, result.err
			m.view = ResultView
			m.progressChan, m.done = nil, nil
			m.updates = list.New(updateItems(m.summary), list.NewDefaultDelegate(), max(m.width-4, 20), m.listHeight())
			m.updates.Title = "Playlists"
			m.updates.SetShowHelp(false)
			return m, nil
		}
	}
	return m, nil
}

func (m *Model) View() string {
	switch m.view {
	case RunningView:
		return m.renderRunning()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) startRun() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 64)
	m.done = make(chan runResult, 1)
	m.finished = make(chan struct{})

	ch, done, finished := m.progressChan, m.done, m.finished
	go func() {
		summary, err := m.run(m.ctx, ch)
		m.final = runResult{summary: summary, err: err}
		close(finished)
		close(ch)
		done <- runResult{summary: summary, err: err}
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	ch, done := m.progressChan, m.done
	return func() tea.Msg {
		if ch == nil {
			return nil
		}
		update, ok := <-ch
		if !ok {
			result := <-done
			return runCompleteMsg(result.summary, result.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) listHeight() int {
	return max(m.height-16, 5)
}

func (m *Model) renderRunning() string {
	title := styles.title.Render("ytcurate run")
	if !m.started {
		return fmt.Sprintf("%s\n%s\n\n%s", title, "Starting...", m.help.ShortHelpView(m.keys.ShortHelp()))
	}

	phase := phaseTitles[m.current.Phase]
	pct := 0.0
	if m.current.Total > 0 {
		pct = float64(m.current.Step) / float64(m.current.Total)
	}

	return fmt.Sprintf("%s\n%s (%d/%d)\n%s\n%s\n\n%s",
		title,
		phase, m.current.Step, m.current.Total,
		m.bar.ViewAs(pct),
		styles.help.Render(m.current.Message),
		m.help.ShortHelpView(m.keys.ShortHelp()),
	)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Run failed: %v\n\nPress q to quit", m.err))
	}
	if m.summary == nil {
		return styles.err.Render("No result available\n\nPress q to quit")
	}

	out := RenderSummary(m.summary)
	if len(m.summary.Updates) > 0 {
		out += "\n" + m.updates.View()
	}
	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", out, m.help.ShortHelpView(helpKeys))
}
