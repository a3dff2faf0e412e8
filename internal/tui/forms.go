package tui

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/huh"

	"github.com/felixgeelhaar/doctag/internal/api"
)

const (
	kindDocument = "document"
	kindProject  = "project"
)

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

func newLoginForm(creds *api.Credentials) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("username").
				Title("Username").
				Value(&creds.Username).
				Validate(required("username")),
			huh.NewInput().
				Key("password").
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&creds.Password).
				Validate(required("password")),
		).Title("Login"),
	).WithShowHelp(true)
}

func validateTagText(s string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n == 0 || utf8.RuneCountInString(s) > api.MaxTagLength {
		return api.ErrTextTooLong
	}
	return nil
}

func newTagForm(text *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Key("text").
				Title("Text").
				Description("Named entities are recognized and highlighted.").
				CharLimit(api.MaxTagLength).
				Lines(8).
				Value(text).
				Validate(validateTagText),
		).Title("Tag Text"),
	).WithShowHelp(true)
}

func newConfirmForm(title string, confirmed *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title(title).
				Affirmative("Delete").
				Negative("Cancel").
				Value(confirmed),
		),
	)
}

// newSubmitForm builds the document/project submission form. Only projects
// the user can write to are offered and project creation requires the
// create-projects permission. It returns nil when there is nothing the user
// may submit.
func (m *Model) newSubmitForm() *huh.Form {
	s := m.submit
	user := m.identity()

	var kinds []huh.Option[string]
	if len(s.projects) > 0 {
		kinds = append(kinds, huh.NewOption("Document", kindDocument))
	}
	if user.CreateProjects {
		kinds = append(kinds, huh.NewOption("Project", kindProject))
	}
	if len(kinds) == 0 {
		return nil
	}
	if s.kind == "" {
		s.kind = kinds[0].Value
	}
	if s.project.Permissions == "" {
		s.project.Permissions = api.VisibilityNone
	}

	projectOptions := make([]huh.Option[string], 0, len(s.projects))
	for _, p := range s.projects {
		projectOptions = append(projectOptions, projectOption(p))
	}

	groups := []*huh.Group{
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("kind").
				Title("What do you want to submit?").
				Options(kinds...).
				Value(&s.kind),
		),
	}

	if len(projectOptions) > 0 {
		groups = append(groups, huh.NewGroup(
			huh.NewSelect[string]().
				Key("project").
				Title("Project").
				Options(projectOptions...).
				Value(&s.document.Project),
			huh.NewInput().
				Key("name").
				Title("Document name").
				Value(&s.document.Name).
				Validate(required("name")),
			huh.NewText().
				Key("text").
				Title("Text").
				Lines(8).
				Value(&s.document.Text).
				Validate(required("text")),
		).Title("New Document").WithHideFunc(func() bool { return s.kind != kindDocument }))
	}

	groups = append(groups,
		huh.NewGroup(
			huh.NewInput().
				Key("project_name").
				Title("Project name").
				Value(&s.project.Name).
				Validate(required("name")),
			huh.NewSelect[api.ProjectVisibility]().
				Key("permissions").
				Title("Who else can access it?").
				Options(
					huh.NewOption("Only me", api.VisibilityNone),
					huh.NewOption("Everyone can read", api.VisibilityRead),
					huh.NewOption("Everyone can write", api.VisibilityWrite),
					huh.NewOption("Custom", api.VisibilityCustom),
				).
				Value(&s.project.Permissions),
		).Title("New Project").WithHideFunc(func() bool { return s.kind != kindProject }),

		huh.NewGroup(
			huh.NewInput().
				Key("custom").
				Title("Custom permissions").
				Description("Format: <username>:<r/w>,<username>:<r/w>").
				Placeholder("alice:r,bob:w").
				Value(&s.custom).
				Validate(func(v string) error {
					if len(api.ParsePermissions(v)) == 0 {
						return api.ErrInvalidCustomPermissions
					}
					return nil
				}),
		).WithHideFunc(func() bool {
			return s.kind != kindProject || s.project.Permissions != api.VisibilityCustom
		}),
	)

	return huh.NewForm(groups...).WithShowHelp(true)
}
