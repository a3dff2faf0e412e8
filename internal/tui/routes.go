package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/felixgeelhaar/doctag/internal/api"
	"github.com/felixgeelhaar/doctag/internal/apierr"
	"github.com/felixgeelhaar/doctag/internal/guard"
	"github.com/felixgeelhaar/doctag/internal/notify"
	"github.com/felixgeelhaar/doctag/internal/status"
	"github.com/felixgeelhaar/doctag/internal/tagview"
)

// maxEvents is how many feed entries the dashboard shows
const maxEvents = 10

// maxToasts is how many toasts are stacked on screen at once
const maxToasts = 3

type homeState struct {
	loading   bool
	dashboard *api.Dashboard
}

type loginState struct {
	form    *huh.Form
	creds   api.Credentials
	pending bool
	message string
}

type browserState struct {
	loading  bool
	projects []api.Project
	cursor   int

	// project is the opened project, document the opened document
	project   *api.Project
	docCursor int
	document  *api.Document
	segments  []tagview.Segment

	confirm    *huh.Form
	confirmYes bool
	target     deleteTarget
	message    string
}

type deleteTarget struct {
	projectID  int
	documentID int
	name       string
}

func (t deleteTarget) isDocument() bool {
	return t.documentID != 0
}

func (t deleteTarget) kind() string {
	if t.isDocument() {
		return "document"
	}
	return "project"
}

type submitState struct {
	projects []api.Project
	form     *huh.Form
	kind     string
	document api.NewDocument
	project  api.NewProject
	custom   string
	pending  bool
	message  string
	success  bool
}

type tagState struct {
	form     *huh.Form
	text     string
	pending  bool
	segments []tagview.Segment
	message  string
}

// navigate leaves the current screen and enters r
func (m *Model) navigate(r Route) tea.Cmd {
	m.leaveRoute()
	m.route = r
	if r.Guarded() {
		return m.mountGuard()
	}
	return m.enterRoute()
}

func (m *Model) leaveRoute() {
	if m.guardCancel != nil {
		m.guardCancel()
		m.guardCancel = nil
	}
	if m.guard != nil {
		m.guard.Unmount()
		m.guard = nil
	}
}

// mountGuard checks the session for a protected route. An unresolved
// identity is fetched once; the result arrives as a guardSettledMsg.
func (m *Model) mountGuard() tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	g := guard.New(m.deps.Session)
	settled := make(chan guard.State, 1)
	g.OnSettle = func(s guard.State) { settled <- s }

	m.guardSeq++
	seq := m.guardSeq
	m.guard, m.guardCancel = g, cancel
	m.guardState = g.Mount(ctx)

	switch m.guardState {
	case guard.Authenticated:
		return m.enterRoute()
	case guard.Anonymous:
		return nil
	}
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		select {
		case s := <-settled:
			return guardSettledMsg{seq: seq, state: s}
		case <-ctx.Done():
			return nil
		}
	})
}

func (m *Model) settleGuard(msg guardSettledMsg) tea.Cmd {
	if msg.seq != m.guardSeq || m.guard == nil {
		return nil
	}
	m.guardState = msg.state
	if msg.state == guard.Authenticated {
		return m.enterRoute()
	}
	return nil
}

// enterRoute resets the current screen and starts its initial load
func (m *Model) enterRoute() tea.Cmd {
	switch m.route {
	case RouteHome:
		m.home.loading = true
		return tea.Batch(m.spinner.Tick, m.loadDashboard())
	case RouteLogin:
		m.login = &loginState{}
		m.login.form = newLoginForm(&m.login.creds)
		return m.login.form.Init()
	case RouteBrowser:
		m.browser = &browserState{loading: true}
		return tea.Batch(m.spinner.Tick, m.loadProjects(RouteBrowser))
	case RouteSubmit:
		m.submit = &submitState{pending: true}
		return tea.Batch(m.spinner.Tick, m.loadProjects(RouteSubmit))
	case RouteTag:
		m.tag = &tagState{}
		m.tag.form = newTagForm(&m.tag.text)
		return m.tag.form.Init()
	}
	return nil
}

func (m *Model) cancelForm() tea.Cmd {
	if m.route == RouteBrowser && m.browser != nil && m.browser.confirm != nil {
		m.browser.confirm = nil
		return nil
	}
	return m.navigate(RouteHome)
}

// completeForm acts on a submitted form of the current screen
func (m *Model) completeForm() tea.Cmd {
	switch m.route {
	case RouteLogin:
		m.login.pending = true
		m.login.message = ""
		return tea.Batch(m.spinner.Tick, m.loginCmd(m.login.creds))

	case RouteBrowser:
		b := m.browser
		b.confirm = nil
		if !b.confirmYes {
			return nil
		}
		b.loading = true
		return tea.Batch(m.spinner.Tick, m.deleteCmd(b.target))

	case RouteSubmit:
		return m.startSubmit()

	case RouteTag:
		m.tag.pending = true
		m.tag.message = ""
		return tea.Batch(m.spinner.Tick, m.tagCmd(m.tag.text))
	}
	return nil
}

func (m *Model) logout() tea.Cmd {
	if m.deps.Session != nil {
		if err := m.deps.Session.Logout(); err != nil {
			m.deps.Logger.Warn("logout failed", "error", err)
		}
		m.snap = m.deps.Session.Snapshot()
	}
	return m.navigate(RouteHome)
}

// Commands

func (m *Model) loadDashboard() tea.Cmd {
	client, ctx := m.deps.Client, m.ctx
	return func() tea.Msg {
		return dashboardMsg{dashboard: api.LoadDashboard(ctx, client)}
	}
}

func (m *Model) loginCmd(creds api.Credentials) tea.Cmd {
	store, ctx := m.deps.Session, m.ctx
	return func() tea.Msg {
		return loginResultMsg{err: store.Login(ctx, creds)}
	}
}

func (m *Model) loadProjects(route Route) tea.Cmd {
	client, ctx := m.deps.Client, m.ctx
	return func() tea.Msg {
		projects, err := client.Projects(ctx)
		return projectsMsg{route: route, projects: projects, err: err}
	}
}

func (m *Model) loadDocument(projectID, documentID int) tea.Cmd {
	client, ctx := m.deps.Client, m.ctx
	return func() tea.Msg {
		doc, err := client.Document(ctx, projectID, documentID)
		return documentMsg{document: doc, err: err}
	}
}

func (m *Model) deleteCmd(target deleteTarget) tea.Cmd {
	client, ctx := m.deps.Client, m.ctx
	return func() tea.Msg {
		var err error
		if target.isDocument() {
			err = client.DeleteDocument(ctx, target.projectID, target.documentID)
		} else {
			err = client.DeleteProject(ctx, target.projectID)
		}
		return deletedMsg{target: target, err: err}
	}
}

func (m *Model) tagCmd(text string) tea.Cmd {
	client, ctx := m.deps.Client, m.ctx
	return func() tea.Msg {
		tagged, err := client.Tag(ctx, text)
		return taggedMsg{markup: tagged.TaggedText, err: err}
	}
}

// Result handlers

func (m *Model) finishLogin(msg loginResultMsg) tea.Cmd {
	if m.route != RouteLogin || m.login == nil {
		return nil
	}
	m.login.pending = false
	if msg.err != nil {
		m.login.message = loginFailure(msg.err)
		m.login.creds = api.Credentials{Username: m.login.creds.Username}
		m.login.form = newLoginForm(&m.login.creds)
		return m.login.form.Init()
	}
	if m.deps.Session != nil {
		m.snap = m.deps.Session.Snapshot()
	}
	return m.navigate(RouteHome)
}

// loginFailure renders the inline message for a failed login.
func loginFailure(err error) string {
	apiErr, ok := apierr.As(err)
	if !ok {
		return err.Error()
	}
	switch apiErr.Status {
	case 400, 401, 403:
		return "Invalid username or password."
	}
	return inlineError("Login", err)
}

// inlineError renders a failed request next to the form that sent it.
func inlineError(title string, err error) string {
	apiErr, ok := apierr.As(err)
	if !ok {
		return err.Error()
	}
	if apiErr.IsBusiness() {
		return apiErr.Message
	}
	return status.Inline(title, apiErr.Status)
}

func (m *Model) receiveProjects(msg projectsMsg) tea.Cmd {
	if msg.route != m.route {
		return nil
	}
	switch m.route {
	case RouteBrowser:
		b := m.browser
		b.loading = false
		if msg.err != nil {
			b.message = inlineError("Fetch Projects", msg.err)
			return nil
		}
		b.projects = msg.projects
		b.cursor = clamp(b.cursor, len(b.projects))
		if b.project != nil {
			b.project = findProject(b.projects, b.project.ID)
			if b.project != nil {
				b.docCursor = clamp(b.docCursor, len(b.project.Documents))
			}
		}

	case RouteSubmit:
		s := m.submit
		s.pending = false
		if msg.err != nil {
			s.message = inlineError("Fetch Projects", msg.err)
			return nil
		}
		s.projects = writableProjects(m.identity(), msg.projects)
		s.form = m.newSubmitForm()
		if s.form == nil {
			s.message = "You do not have write access to any project."
			return nil
		}
		return s.form.Init()
	}
	return nil
}

func (m *Model) receiveDocument(msg documentMsg) {
	if m.route != RouteBrowser || m.browser == nil {
		return
	}
	b := m.browser
	b.loading = false
	if msg.err != nil {
		b.message = inlineError("Fetch Document", msg.err)
		return
	}
	doc := msg.document
	b.document = &doc
	b.segments = nil
	if doc.Tagged() {
		segments, err := tagview.Parse(doc.TaggedText)
		if err != nil {
			m.deps.Logger.Debug("failed to parse tagged text", "error", err)
		}
		b.segments = segments
	}
}

func (m *Model) finishDelete(msg deletedMsg) tea.Cmd {
	if m.route != RouteBrowser || m.browser == nil {
		return nil
	}
	b := m.browser
	b.loading = false
	if msg.err != nil {
		b.message = inlineError("Delete "+capitalize(msg.target.kind()), msg.err)
		return nil
	}
	b.message = fmt.Sprintf("Deleted %s %q.", msg.target.kind(), msg.target.name)
	b.document = nil
	b.segments = nil
	if !msg.target.isDocument() {
		b.project = nil
	}
	b.loading = true
	return m.loadProjects(RouteBrowser)
}

func (m *Model) startSubmit() tea.Cmd {
	s := m.submit
	client, ctx := m.deps.Client, m.ctx

	switch s.kind {
	case kindProject:
		project := s.project
		if project.Permissions == api.VisibilityCustom {
			project.CustomPermissions = api.ParsePermissions(s.custom)
		}
		if err := project.Validate(); err != nil {
			s.message = err.Error()
			s.form = m.newSubmitForm()
			return s.form.Init()
		}
		s.pending = true
		return tea.Batch(m.spinner.Tick, func() tea.Msg {
			created, err := client.CreateProject(ctx, project)
			return submittedMsg{project: &created, err: err}
		})

	default:
		doc := s.document
		if err := doc.Validate(); err != nil {
			s.message = err.Error()
			s.form = m.newSubmitForm()
			return s.form.Init()
		}
		s.pending = true
		return tea.Batch(m.spinner.Tick, func() tea.Msg {
			created, err := client.CreateDocument(ctx, doc)
			return submittedMsg{document: &created, err: err}
		})
	}
}

func (m *Model) finishSubmit(msg submittedMsg) {
	if m.route != RouteSubmit || m.submit == nil {
		return
	}
	s := m.submit
	s.pending = false
	if msg.err != nil {
		title := "Create Document"
		if msg.project != nil {
			title = "Create Project"
		}
		s.message = inlineError(title, msg.err)
		s.success = false
		s.form = nil
		return
	}
	s.form = nil
	s.success = true
	switch {
	case msg.project != nil:
		s.message = fmt.Sprintf("Project %q created.", msg.project.Name)
	case msg.document != nil:
		s.message = fmt.Sprintf("Document %q submitted to project #%d. Tagging runs in the background.",
			msg.document.Name, msg.document.ProjectID)
	}
}

func (m *Model) finishTag(msg taggedMsg) tea.Cmd {
	if m.route != RouteTag || m.tag == nil {
		return nil
	}
	t := m.tag
	t.pending = false
	if msg.err != nil {
		t.message = inlineError("Tag Text", msg.err)
		t.form = newTagForm(&t.text)
		return t.form.Init()
	}
	segments, err := tagview.Parse(msg.markup)
	if err != nil {
		t.message = err.Error()
		return nil
	}
	if segments == nil {
		segments = []tagview.Segment{}
	}
	t.segments = segments
	return nil
}

// Browser navigation

func (m *Model) handleBrowserKey(msg tea.KeyMsg) tea.Cmd {
	b := m.browser
	if b == nil || b.loading {
		return nil
	}

	switch {
	case b.document != nil:
		if key.Matches(msg, keys.Back) {
			b.document, b.segments = nil, nil
		}
		if key.Matches(msg, keys.Delete) {
			return m.confirmDelete(deleteTarget{
				projectID:  b.project.ID,
				documentID: b.document.ID,
				name:       b.document.Name,
			})
		}

	case b.project != nil:
		docs := b.project.Documents
		switch {
		case key.Matches(msg, keys.Up):
			b.docCursor = clamp(b.docCursor-1, len(docs))
		case key.Matches(msg, keys.Down):
			b.docCursor = clamp(b.docCursor+1, len(docs))
		case key.Matches(msg, keys.Back):
			b.project = nil
			b.docCursor = 0
		case key.Matches(msg, keys.Open) && len(docs) > 0:
			b.loading = true
			return tea.Batch(m.spinner.Tick, m.loadDocument(b.project.ID, docs[b.docCursor].ID))
		case key.Matches(msg, keys.Delete) && len(docs) > 0:
			return m.confirmDelete(deleteTarget{
				projectID:  b.project.ID,
				documentID: docs[b.docCursor].ID,
				name:       docs[b.docCursor].Name,
			})
		case key.Matches(msg, keys.Reload):
			b.loading = true
			return m.loadProjects(RouteBrowser)
		}

	default:
		switch {
		case key.Matches(msg, keys.Up):
			b.cursor = clamp(b.cursor-1, len(b.projects))
		case key.Matches(msg, keys.Down):
			b.cursor = clamp(b.cursor+1, len(b.projects))
		case key.Matches(msg, keys.Open) && len(b.projects) > 0:
			p := b.projects[b.cursor]
			b.project = &p
			b.docCursor = 0
		case key.Matches(msg, keys.Delete) && len(b.projects) > 0:
			p := b.projects[b.cursor]
			return m.confirmDelete(deleteTarget{projectID: p.ID, name: p.Name})
		case key.Matches(msg, keys.Reload):
			b.loading = true
			return m.loadProjects(RouteBrowser)
		}
	}
	return nil
}

// confirmDelete asks before deleting. Users without write permission on the
// project get a message instead.
func (m *Model) confirmDelete(target deleteTarget) tea.Cmd {
	b := m.browser
	if !m.identity().CanWrite(target.projectID) {
		b.message = fmt.Sprintf("You do not have permission to delete this %s.", target.kind())
		return nil
	}
	b.target = target
	b.confirmYes = false
	b.message = ""
	b.confirm = newConfirmForm(
		fmt.Sprintf("Are you sure you want to delete the %s: %s?", target.kind(), target.name),
		&b.confirmYes,
	)
	return b.confirm.Init()
}

// Toasts

func (m *Model) applyNotification(ev notify.Event) {
	switch ev.Type {
	case notify.EventToast:
		m.toasts = append(m.toasts, ev.Toast)
	case notify.EventDismissed:
		for i, t := range m.toasts {
			if t.ID == ev.Toast.ID {
				m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
				break
			}
		}
	}
}

func (m *Model) dismissNewest() {
	if len(m.toasts) == 0 {
		return
	}
	newest := m.toasts[len(m.toasts)-1]
	m.toasts = m.toasts[:len(m.toasts)-1]
	if m.deps.Notifier != nil {
		m.deps.Notifier.Dismiss(newest.ID)
	}
}

// Helpers

func (m *Model) identity() api.User {
	if m.snap.Identity == nil {
		return api.User{}
	}
	return *m.snap.Identity
}

func writableProjects(user api.User, projects []api.Project) []api.Project {
	var out []api.Project
	for _, p := range projects {
		if user.CanWrite(p.ID) {
			out = append(out, p)
		}
	}
	return out
}

func findProject(projects []api.Project, id int) *api.Project {
	for i := range projects {
		if projects[i].ID == id {
			p := projects[i]
			return &p
		}
	}
	return nil
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func projectOption(p api.Project) huh.Option[string] {
	return huh.NewOption(fmt.Sprintf("%s (#%d)", p.Name, p.ID), strconv.Itoa(p.ID))
}
