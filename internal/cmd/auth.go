package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/doctag/internal/api"
	"github.com/felixgeelhaar/doctag/internal/apierr"
	"github.com/felixgeelhaar/doctag/internal/tui"
	"github.com/felixgeelhaar/doctag/internal/ux"
)

// invalidLoginError is a rejected login. It unwraps to the API error so the
// exit code reflects the status.
type invalidLoginError struct {
	err error
}

func (e *invalidLoginError) Error() string { return "Invalid username or password." }

func (e *invalidLoginError) Unwrap() error { return e.err }

// loginError maps a failed token request to the message shown to the user.
func loginError(err error) error {
	if apiErr, ok := apierr.As(err); ok {
		switch apiErr.Status {
		case 400, 401, 403:
			return &invalidLoginError{err: err}
		}
	}
	return err
}

func newLoginCmd(r *runner) *cobra.Command {
	var (
		creds   api.Credentials
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the tagging service",
		Long: `Exchange a username and password for a session. The session is kept
in ~/.doctag/session.json and expires after 30 minutes without use.

Examples:
  # Prompt for credentials
  doctag login

  # Provide the username, prompt for the password
  doctag login --username alice

  # Renew the access token with the stored refresh token
  doctag login --refresh
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.load(cmd, appOptions{})
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if refresh {
				if err := a.store.Refresh(ctx); err != nil {
					return fmt.Errorf("failed to refresh session: %w", err)
				}
				fmt.Fprintln(out, "Session refreshed.")
				return nil
			}

			if (creds.Username == "" || creds.Password == "") && tui.ShouldPrompt() {
				creds, err = tui.PromptForCredentials(creds)
				if err != nil {
					return err
				}
			}
			if err := creds.Validate(); err != nil {
				return err
			}

			if err := a.store.Login(ctx, creds); err != nil {
				return loginError(err)
			}

			if user := a.identity(ctx); user.LoggedIn() {
				fmt.Fprintf(out, "Logged in as %s.\n", user.Username)
				return nil
			}
			fmt.Fprintln(out, "Logged in.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password (prompted when omitted)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "renew the access token with the refresh token")
	return cmd
}

func newLogoutCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.load(cmd, appOptions{})
			if err != nil {
				return err
			}
			if err := a.store.Logout(); err != nil {
				return fmt.Errorf("failed to remove session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

// userView renders a user with the per-project permissions
type userView struct {
	user api.User
}

func (v userView) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Username:         %s\n", v.user.Username)
	fmt.Fprintf(w, "Create projects:  %s\n", yesNo(v.user.CreateProjects))
	if len(v.user.ProjectPermissions) == 0 {
		fmt.Fprintln(w, "Projects:         none")
		return nil
	}

	ids := make([]string, 0, len(v.user.ProjectPermissions))
	for id := range v.user.ProjectPermissions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintln(w)
	t := &ux.Table{Headers: []string{"PROJECT", "PERMISSION"}}
	for _, id := range ids {
		t.Rows = append(t.Rows, []string{id, string(v.user.ProjectPermissions[id])})
	}
	return t.RenderText(w)
}

func newWhoamiCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user and their project permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.load(cmd, appOptions{})
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}

			user := a.identity(cmd.Context())
			if !user.LoggedIn() {
				return identityError(a)
			}
			return a.output(cmd.OutOrStdout(), user, userView{user: user})
		},
	}
}

// identityError returns the most recent failed identity check, which is
// registered without being announced.
func identityError(a *app) error {
	entries := a.notifier.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].IsIdentityCheck() {
			return fmt.Errorf("failed to resolve identity: %w", entries[i])
		}
	}
	return errors.New("failed to resolve identity")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
