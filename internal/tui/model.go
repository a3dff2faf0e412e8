package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/doctag/internal/api"
	"github.com/felixgeelhaar/doctag/internal/guard"
	"github.com/felixgeelhaar/doctag/internal/log"
	"github.com/felixgeelhaar/doctag/internal/notify"
	"github.com/felixgeelhaar/doctag/internal/session"
)

// Route is a screen of the application
type Route int

// Route constants
const (
	// RouteHome is the dashboard
	RouteHome Route = iota
	// RouteLogin is the login form
	RouteLogin
	// RouteBrowser lists projects and documents
	RouteBrowser
	// RouteSubmit creates documents and projects
	RouteSubmit
	// RouteTag tags free text
	RouteTag
)

func (r Route) String() string {
	switch r {
	case RouteLogin:
		return "Login"
	case RouteBrowser:
		return "Projects"
	case RouteSubmit:
		return "Submit"
	case RouteTag:
		return "Tag"
	default:
		return "Home"
	}
}

// Guarded reports whether the route requires a logged-in user
func (r Route) Guarded() bool {
	return r == RouteBrowser || r == RouteSubmit || r == RouteTag
}

// Deps are the services the TUI drives
type Deps struct {
	Client   *api.Client
	Session  *session.Store
	Notifier *notify.Broadcaster
	Logger   *log.Logger
}

// Model is the TUI application state
type Model struct {
	deps   Deps
	ctx    context.Context
	styles Styles

	route    Route
	width    int
	height   int
	quitting bool

	snap   session.Snapshot
	toasts []notify.Toast

	events      chan tea.Msg
	unsubscribe []func()

	// Guard state of the current protected route
	guard       *guard.Guard
	guardState  guard.State
	guardCancel context.CancelFunc
	guardSeq    int

	spinner spinner.Model

	home    *homeState
	login   *loginState
	browser *browserState
	submit  *submitState
	tag     *tagState
}

// Styles contains lipgloss styles for the TUI
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Muted    lipgloss.Style
	Border   lipgloss.Style
	Selected lipgloss.Style
	Tab      lipgloss.Style
	TabOn    lipgloss.Style
	Help     lipgloss.Style
	Key      lipgloss.Style
	KeyDesc  lipgloss.Style
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")). // Purple
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")), // Green
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226")), // Yellow
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("63")).
			Bold(true),
		Tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1),
		TabOn: lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("63")).
			Bold(true).
			Padding(0, 1),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1),
		Key: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")),
		KeyDesc: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}

type keyMap struct {
	Quit       key.Binding
	Home       key.Binding
	Browser    key.Binding
	Submit     key.Binding
	Tag        key.Binding
	Login      key.Binding
	Logout     key.Binding
	Dismiss    key.Binding
	Reload     key.Binding
	New        key.Binding
	Up         key.Binding
	Down       key.Binding
	Open       key.Binding
	Back       key.Binding
	Delete     key.Binding
	ModalHome  key.Binding
	ModalLogin key.Binding
}

var keys = keyMap{
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Home:       key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "home")),
	Browser:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "projects")),
	Submit:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "submit")),
	Tag:        key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tag")),
	Login:      key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "login")),
	Logout:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "logout")),
	Dismiss:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dismiss")),
	Reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	New:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Back:       key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
	Delete:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
	ModalHome:  key.NewBinding(key.WithKeys("h", "esc"), key.WithHelp("h", "home")),
	ModalLogin: key.NewBinding(key.WithKeys("l", "enter"), key.WithHelp("l", "login")),
}

// NewModel creates the application model. It subscribes to session and
// notification changes until Close is called.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.Logger == nil {
		deps.Logger = log.Nop()
	}
	m := &Model{
		deps:    deps,
		ctx:     ctx,
		styles:  DefaultStyles(),
		route:   RouteHome,
		events:  make(chan tea.Msg, 64),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		home:    &homeState{},
	}
	if deps.Session != nil {
		m.snap = deps.Session.Snapshot()
		m.unsubscribe = append(m.unsubscribe, deps.Session.Subscribe(func(s session.Snapshot) {
			m.forward(sessionMsg{snap: s})
		}))
	}
	if deps.Notifier != nil {
		m.unsubscribe = append(m.unsubscribe, deps.Notifier.Subscribe(func(ev notify.Event) {
			m.forward(notifyMsg{event: ev})
		}))
	}
	return m
}

// forward hands a message from another goroutine to the event loop. It
// drops the message if the loop has fallen far behind.
func (m *Model) forward(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
		m.deps.Logger.Warn("tui event dropped", "type", fmt.Sprintf("%T", msg))
	}
}

func (m *Model) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.events:
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Close releases subscriptions and cancels pending guard checks
func (m *Model) Close() {
	for _, unsubscribe := range m.unsubscribe {
		unsubscribe()
	}
	m.unsubscribe = nil
	m.leaveRoute()
}

// Route returns the current screen
func (m *Model) Route() Route {
	return m.route
}

// Init starts the event listener and loads the dashboard (required by Bubble Tea)
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.listen(), m.navigate(RouteHome))
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionMsg:
		m.snap = msg.snap
		return m, m.listen()

	case notifyMsg:
		m.applyNotification(msg.event)
		return m, m.listen()

	case guardSettledMsg:
		return m, m.settleGuard(msg)

	case dashboardMsg:
		if m.route == RouteHome {
			m.home.loading = false
			d := msg.dashboard
			m.home.dashboard = &d
		}
		return m, nil

	case loginResultMsg:
		return m, m.finishLogin(msg)

	case projectsMsg:
		return m, m.receiveProjects(msg)

	case documentMsg:
		m.receiveDocument(msg)
		return m, nil

	case deletedMsg:
		return m, m.finishDelete(msg)

	case submittedMsg:
		m.finishSubmit(msg)
		return m, nil

	case taggedMsg:
		return m, m.finishTag(msg)
	}

	if form := m.activeForm(); form != nil {
		return m, m.updateForm(form, msg)
	}
	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Ctrl+C always quits
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.modalActive() {
		switch {
		case key.Matches(msg, keys.ModalHome):
			return m, m.navigate(RouteHome)
		case key.Matches(msg, keys.ModalLogin):
			return m, m.navigate(RouteLogin)
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	if form := m.activeForm(); form != nil {
		if msg.String() == "esc" {
			return m, m.cancelForm()
		}
		return m, m.updateForm(form, msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, keys.Dismiss):
		m.dismissNewest()
		return m, nil
	case key.Matches(msg, keys.Home):
		return m, m.navigate(RouteHome)
	case key.Matches(msg, keys.Browser):
		return m, m.navigate(RouteBrowser)
	case key.Matches(msg, keys.Submit):
		return m, m.navigate(RouteSubmit)
	case key.Matches(msg, keys.Tag):
		return m, m.navigate(RouteTag)
	case key.Matches(msg, keys.Login):
		if !m.snap.HasToken() {
			return m, m.navigate(RouteLogin)
		}
		return m, nil
	case key.Matches(msg, keys.Logout):
		return m, m.logout()
	}

	switch m.route {
	case RouteHome:
		if key.Matches(msg, keys.Reload) {
			return m, m.enterRoute()
		}
	case RouteBrowser:
		return m, m.handleBrowserKey(msg)
	case RouteSubmit, RouteTag:
		if key.Matches(msg, keys.New) {
			return m, m.enterRoute()
		}
	}
	return m, nil
}

// View renders the TUI (required by Bubble Tea)
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}

// modalActive reports whether the login-required modal blocks the screen
func (m *Model) modalActive() bool {
	return m.route.Guarded() && m.guard != nil && m.guardState == guard.Anonymous
}

func (m *Model) busy() bool {
	switch {
	case m.route.Guarded() && m.guardState == guard.Unknown:
		return true
	case m.route == RouteHome:
		return m.home.loading
	case m.route == RouteLogin:
		return m.login != nil && m.login.pending
	case m.route == RouteBrowser:
		return m.browser != nil && m.browser.loading
	case m.route == RouteSubmit:
		return m.submit != nil && m.submit.pending
	case m.route == RouteTag:
		return m.tag != nil && m.tag.pending
	}
	return false
}

// activeForm returns the huh form that currently owns the keyboard
func (m *Model) activeForm() *huh.Form {
	if m.modalActive() {
		return nil
	}
	switch m.route {
	case RouteLogin:
		if m.login != nil && !m.login.pending {
			return m.login.form
		}
	case RouteBrowser:
		if m.browser != nil {
			return m.browser.confirm
		}
	case RouteSubmit:
		if m.submit != nil && !m.submit.pending && m.submit.form != nil {
			return m.submit.form
		}
	case RouteTag:
		if m.tag != nil && !m.tag.pending && m.tag.segments == nil {
			return m.tag.form
		}
	}
	return nil
}

func (m *Model) updateForm(form *huh.Form, msg tea.Msg) tea.Cmd {
	updated, cmd := form.Update(msg)
	if f, ok := updated.(*huh.Form); ok {
		form = f
	}

	switch form.State {
	case huh.StateCompleted:
		return tea.Batch(cmd, m.completeForm())
	case huh.StateAborted:
		return m.cancelForm()
	}
	return cmd
}

// Custom messages

type sessionMsg struct {
	snap session.Snapshot
}

type notifyMsg struct {
	event notify.Event
}

type guardSettledMsg struct {
	seq   int
	state guard.State
}

type dashboardMsg struct {
	dashboard api.Dashboard
}

type loginResultMsg struct {
	err error
}

type projectsMsg struct {
	route    Route
	projects []api.Project
	err      error
}

type documentMsg struct {
	document api.Document
	err      error
}

type deletedMsg struct {
	target deleteTarget
	err    error
}

type submittedMsg struct {
	document *api.CreatedDocument
	project  *api.CreatedProject
	err      error
}

type taggedMsg struct {
	markup string
	err    error
}
