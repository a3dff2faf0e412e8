package tui

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/doctag/internal/api"
	"github.com/felixgeelhaar/doctag/internal/apierr"
	"github.com/felixgeelhaar/doctag/internal/guard"
	"github.com/felixgeelhaar/doctag/internal/notify"
	"github.com/felixgeelhaar/doctag/internal/tagview"
)

func (m *Model) render() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch {
	case m.modalActive():
		b.WriteString(m.renderModal())
	case m.route.Guarded() && m.guardState == guard.Unknown:
		b.WriteString(m.spinner.View() + " Checking session...")
	default:
		b.WriteString(m.renderRoute())
	}
	b.WriteString("\n")

	if toasts := m.renderToasts(); toasts != "" {
		b.WriteString("\n")
		b.WriteString(toasts)
		b.WriteString("\n")
	}

	b.WriteString(m.renderHelpLine())
	return b.String()
}

func (m *Model) renderRoute() string {
	switch m.route {
	case RouteLogin:
		return m.renderLogin()
	case RouteBrowser:
		return m.renderBrowser()
	case RouteSubmit:
		return m.renderSubmit()
	case RouteTag:
		return m.renderTag()
	default:
		return m.renderHome()
	}
}

// renderHeader renders the title and navigation tabs
func (m *Model) renderHeader() string {
	title := m.styles.Title.Render("🏷  doctag")

	var tabs []string
	for _, r := range []Route{RouteHome, RouteBrowser, RouteSubmit, RouteTag} {
		style := m.styles.Tab
		if r == m.route {
			style = m.styles.TabOn
		}
		tabs = append(tabs, style.Render(r.String()))
	}

	user := m.styles.Muted.Render("not logged in")
	switch {
	case m.snap.Identity != nil:
		user = m.styles.Success.Render(m.snap.Identity.Username)
	case m.snap.HasToken():
		user = m.styles.Muted.Render("…")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(tabs, " "), "   ", user),
	)
}

// renderModal renders the login-required dialog
func (m *Model) renderModal() string {
	modal := guard.LoginRequired
	if gm := m.guard.Modal(); gm != nil {
		modal = *gm
	}

	actions := make([]string, 0, len(modal.Actions))
	for _, a := range modal.Actions {
		k := "h"
		if a == guard.GoLogin {
			k = "l"
		}
		actions = append(actions, m.styles.Key.Render("["+k+"]")+" "+a.String())
	}

	body := m.styles.Warning.Render(modal.Title) + "\n\n" +
		modal.Body + "\n\n" +
		strings.Join(actions, "   ")
	return m.styles.Border.BorderForeground(lipgloss.Color("226")).Render(body)
}

func (m *Model) renderHome() string {
	var b strings.Builder

	if m.snap.Identity != nil {
		b.WriteString(m.styles.Subtitle.Render("Welcome back, " + m.snap.Identity.Username + "."))
	} else {
		b.WriteString(m.styles.Subtitle.Render("Press l to log in and start tagging documents."))
	}
	b.WriteString("\n\n")

	if m.home.loading || m.home.dashboard == nil {
		b.WriteString(m.spinner.View() + " Loading dashboard...")
		return b.String()
	}
	d := m.home.dashboard

	b.WriteString(m.styles.Title.Render("Projects"))
	b.WriteString("\n")
	switch {
	case d.ProjectsErr != nil:
		b.WriteString(m.renderInline("Fetch Projects", d.ProjectsErr))
	case len(d.Projects) == 0:
		b.WriteString(m.styles.Muted.Render("No projects yet."))
	default:
		for _, p := range d.Projects {
			fmt.Fprintf(&b, "  %s %s\n", p.Name, m.styles.Muted.Render(fmt.Sprintf("(%d documents)", len(p.Documents))))
		}
	}
	b.WriteString("\n\n")

	b.WriteString(m.styles.Title.Render("Recent Activity"))
	b.WriteString("\n")
	switch {
	case d.EventsErr != nil:
		b.WriteString(m.renderInline("Fetch Events", d.EventsErr))
	case len(d.Events) == 0:
		b.WriteString(m.styles.Muted.Render("Nothing happened yet."))
	default:
		events := d.Events
		if len(events) > maxEvents {
			events = events[:maxEvents]
		}
		for _, ev := range events {
			b.WriteString("  " + formatEvent(ev) + "  " + m.styles.Muted.Render(formatAge(time.Since(ev.Timestamp))) + "\n")
		}
	}
	return b.String()
}

// formatEvent renders a feed entry, e.g. "Document Report created".
func formatEvent(ev api.Event) string {
	kind := "Project"
	if ev.DocumentID != nil {
		kind = "Document"
	}
	if ev.Type != "" {
		kind = capitalize(ev.Type)
	}
	return fmt.Sprintf("%s %s %s", kind, ev.Name, ev.Action)
}

func (m *Model) renderLogin() string {
	var b strings.Builder
	if m.login == nil {
		return ""
	}
	if m.login.pending {
		b.WriteString(m.spinner.View() + " Logging in...")
	} else if m.login.form != nil {
		b.WriteString(m.login.form.View())
	}
	if m.login.message != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(m.login.message))
	}
	return b.String()
}

func (m *Model) renderBrowser() string {
	bs := m.browser
	if bs == nil {
		return ""
	}
	var b strings.Builder

	switch {
	case bs.loading:
		b.WriteString(m.spinner.View() + " Loading...")
	case bs.confirm != nil:
		b.WriteString(bs.confirm.View())
	case bs.document != nil:
		b.WriteString(m.renderDocument(bs.document, bs.segments))
	case bs.project != nil:
		b.WriteString(m.styles.Title.Render(bs.project.Name))
		b.WriteString("\n")
		if len(bs.project.Documents) == 0 {
			b.WriteString(m.styles.Muted.Render("This project has no documents."))
		}
		for i, d := range bs.project.Documents {
			b.WriteString(m.renderListItem(i == bs.docCursor, d.Name, "updated "+formatAge(time.Since(d.UpdatedAt))))
		}
	default:
		b.WriteString(m.styles.Title.Render("Projects"))
		b.WriteString("\n")
		if len(bs.projects) == 0 {
			b.WriteString(m.styles.Muted.Render("No projects yet."))
		}
		user := m.identity()
		for i, p := range bs.projects {
			access := "read"
			if user.CanWrite(p.ID) {
				access = "write"
			}
			b.WriteString(m.renderListItem(i == bs.cursor, p.Name,
				fmt.Sprintf("%d documents · %s", len(p.Documents), access)))
		}
	}

	if bs.message != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Warning.Render(bs.message))
	}
	return b.String()
}

func (m *Model) renderListItem(selected bool, name, detail string) string {
	line := name
	if selected {
		line = m.styles.Selected.Render("> " + name)
	} else {
		line = "  " + line
	}
	return line + "  " + m.styles.Muted.Render(detail) + "\n"
}

func (m *Model) renderDocument(doc *api.Document, segments []tagview.Segment) string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(doc.Name))
	b.WriteString("\n")
	if !doc.Tagged() {
		b.WriteString(m.styles.Muted.Render("Tagging in progress. Press r to reload."))
		b.WriteString("\n\n")
		b.WriteString(doc.Text)
		return b.String()
	}
	b.WriteString(m.renderSegments(segments))
	if labels := tagview.Labels(segments); len(labels) > 0 {
		b.WriteString("\n\n")
		legend := make([]string, 0, len(labels))
		for _, l := range labels {
			legend = append(legend, labelStyle(l).Render(l))
		}
		b.WriteString(m.styles.Muted.Render("Entities: ") + strings.Join(legend, " "))
	}
	return b.String()
}

func (m *Model) renderSegments(segments []tagview.Segment) string {
	text := tagview.Render(segments, func(s tagview.Segment) string {
		return labelStyle(s.Label).Render(s.Text + " " + s.Label)
	})
	if m.width > 0 {
		return lipgloss.NewStyle().Width(m.width - 2).Render(text)
	}
	return text
}

var labelPalette = []string{"63", "33", "37", "70", "136", "166", "125", "98"}

// labelStyle gives each entity label a stable color
func labelStyle(label string) lipgloss.Style {
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	color := labelPalette[int(h.Sum32())%len(labelPalette)]
	return lipgloss.NewStyle().
		Background(lipgloss.Color(color)).
		Foreground(lipgloss.Color("230")).
		Padding(0, 1)
}

func (m *Model) renderSubmit() string {
	s := m.submit
	if s == nil {
		return ""
	}
	var b strings.Builder
	switch {
	case s.pending:
		b.WriteString(m.spinner.View() + " Working...")
	case s.form != nil:
		b.WriteString(s.form.View())
	}
	if s.message != "" {
		b.WriteString("\n")
		style := m.styles.Error
		if s.success {
			style = m.styles.Success
		}
		b.WriteString(style.Render(s.message))
	}
	return b.String()
}

func (m *Model) renderTag() string {
	t := m.tag
	if t == nil {
		return ""
	}
	var b strings.Builder
	switch {
	case t.pending:
		b.WriteString(m.spinner.View() + " Tagging...")
	case t.segments != nil:
		b.WriteString(m.styles.Title.Render("Result"))
		b.WriteString("\n")
		b.WriteString(m.renderSegments(t.segments))
	case t.form != nil:
		b.WriteString(t.form.View())
	}
	if t.message != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(t.message))
	}
	return b.String()
}

// renderInline renders a fetch failure in place of the section content
func (m *Model) renderInline(title string, err error) string {
	return m.styles.Error.Render(inlineError(title, err))
}

// renderToasts renders the newest toasts, newest last
func (m *Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	toasts := m.toasts
	if len(toasts) > maxToasts {
		toasts = toasts[len(toasts)-maxToasts:]
	}
	rendered := make([]string, 0, len(toasts))
	for _, t := range toasts {
		rendered = append(rendered, m.renderToast(t))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}

func (m *Model) renderToast(t notify.Toast) string {
	color, titleStyle := lipgloss.Color("196"), m.styles.Error
	if t.Err != nil && t.Err.Severity == apierr.SeverityWarning {
		color, titleStyle = lipgloss.Color("226"), m.styles.Warning
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Render(titleStyle.Render(t.Title()) + "\n" + t.Message())
}

// renderHelpLine renders the keyboard shortcuts for the current screen
func (m *Model) renderHelpLine() string {
	var bindings []struct{ key, desc string }
	add := func(k, d string) { bindings = append(bindings, struct{ key, desc string }{k, d}) }

	switch {
	case m.modalActive():
		add("h", "home")
		add("l", "login")
	case m.activeForm() != nil:
		add("enter", "submit")
		add("esc", "cancel")
	default:
		add("h", "home")
		add("p", "projects")
		add("s", "submit")
		add("t", "tag")
		if m.snap.HasToken() {
			add("o", "logout")
		} else {
			add("l", "login")
		}
		if m.route == RouteBrowser {
			add("↑/↓", "move")
			add("enter", "open")
			add("x", "delete")
			add("esc", "back")
		}
		if m.route == RouteSubmit || m.route == RouteTag {
			add("n", "new")
		}
		if len(m.toasts) > 0 {
			add("d", "dismiss")
		}
	}
	add("q", "quit")

	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		parts = append(parts, m.styles.Key.Render(kb.key)+" "+m.styles.KeyDesc.Render(kb.desc))
	}
	return m.styles.Help.Render(strings.Join(parts, " • "))
}

// formatAge formats a duration as a coarse relative age, e.g. "3h ago"
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
