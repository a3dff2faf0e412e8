package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/doctag/internal/api"
	"github.com/felixgeelhaar/doctag/internal/apierr"
	"github.com/felixgeelhaar/doctag/internal/config"
	"github.com/felixgeelhaar/doctag/internal/log"
	"github.com/felixgeelhaar/doctag/internal/notify"
	"github.com/felixgeelhaar/doctag/internal/session"
	"github.com/felixgeelhaar/doctag/internal/ux"
	"github.com/felixgeelhaar/doctag/internal/version"
)

// CommandContext holds the persistent flags shared by every command.
type CommandContext struct {
	ConfigPath string
	APIURL     string
	Format     string
	LogLevel   string
	NoColor    bool
}

// NewCommandContext extracts the persistent flags from cmd.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	apiURL, err := cmd.Flags().GetString("api")
	if err != nil {
		return nil, err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}
	noColor, err := cmd.Flags().GetBool("no-color")
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		ConfigPath: configPath,
		APIURL:     apiURL,
		Format:     format,
		LogLevel:   logLevel,
		NoColor:    noColor,
	}, nil
}

// loadConfig reads the configuration file and applies flag overrides.
func (c *CommandContext) loadConfig() (*config.Config, string, error) {
	path := c.ConfigPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if c.APIURL != "" {
		cfg.BaseURL = c.APIURL
	}
	if c.Format != "" {
		cfg.Output.Format = c.Format
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}
	if c.NoColor {
		cfg.Output.NoColor = true
	}
	return cfg, path, nil
}

// app is the wired service graph behind a command run.
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	client   *api.Client
	store    *session.Store
	notifier *notify.Broadcaster

	// interactive apps render notifications themselves
	interactive bool
	logFile     io.Closer
}

type appOptions struct {
	// interactive apps own the terminal: logs go to the log file and
	// notifications expire on their own
	interactive bool
	stderr      io.Writer
}

func newApp(ctx context.Context, cc *CommandContext, opts appOptions) (*app, error) {
	cfg, _, err := cc.loadConfig()
	if err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logCfg := log.Config{
		Level:     level,
		Format:    log.ParseFormat(cfg.Logging.Format),
		Output:    opts.stderr,
		Component: "cli",
	}
	if logCfg.Output == nil {
		logCfg.Output = os.Stderr
	}

	a := &app{cfg: cfg, interactive: opts.interactive}
	if opts.interactive {
		path, err := cfg.LogPath()
		if err != nil {
			return nil, err
		}
		f, err := log.OpenFile(path)
		if err != nil {
			return nil, err
		}
		a.logFile = f
		logCfg.Output = f
		logCfg.Component = "tui"
	}
	a.logger = log.New(logCfg)
	log.SetDefaultLogger(a.logger)

	// Non-interactive runs keep every notification until drain
	ttl := time.Duration(0)
	if opts.interactive {
		ttl = cfg.ToastTTL
	}
	a.notifier = notify.New(notify.WithTTL(ttl))
	a.client = api.New(cfg.BaseURL,
		api.WithRoot(cfg.APIRoot),
		api.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		api.WithUserAgent(version.GetInfo().UserAgent()),
		api.WithLogger(a.logger),
		api.WithReporter(a.notifier),
	)

	sessionPath, err := cfg.SessionPath()
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = session.New(a.client, session.NewFileStore(sessionPath), session.WithLogger(a.logger))
	a.client.SetTokenSource(a.store)

	if err := a.store.Init(log.IntoContext(ctx, a.logger)); err != nil {
		a.logger.Warn("starting without a session", "error", err)
	}
	return a, nil
}

// identity waits for the restored session to resolve and returns the user.
// The anonymous user is returned when no one is logged in.
func (a *app) identity(ctx context.Context) api.User {
	a.store.Wait()
	snap := a.store.Snapshot()
	if snap.Identity != nil {
		return *snap.Identity
	}
	return a.store.FetchIdentity(ctx)
}

// requireLogin fails fast when no token is stored.
func (a *app) requireLogin() error {
	if !a.store.Snapshot().HasToken() {
		return ux.NewErrorWithSuggestion(ux.ErrNotLoggedIn, "Run 'doctag login' first")
	}
	return nil
}

// output writes data in the configured format
func (a *app) output(w io.Writer, data any, text ux.TextRenderer) error {
	return ux.Write(a.cfg.Output.Format, &ux.FormatterOptions{Writer: w, NoColor: a.cfg.Output.NoColor},
		ux.Output{Data: data, Text: text})
}

// drain prints the notifications raised during the run, except the one that
// the command itself returns, and empties the registry.
func (a *app) drain(w io.Writer, result error) {
	skip := ""
	if apiErr, ok := apierr.As(result); ok {
		skip = apiErr.ID
	}
	for _, e := range a.notifier.Entries() {
		if !e.IsIdentityCheck() && e.ID != skip {
			t := notify.Toast{ID: e.ID, Err: e}
			fmt.Fprintf(w, "%s: %s\n", t.Title(), t.Message())
		}
		a.notifier.Dismiss(e.ID)
	}
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.notifier != nil {
		a.notifier.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
