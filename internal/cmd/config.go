package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/doctag/internal/config"
	"github.com/felixgeelhaar/doctag/internal/ux"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit doctag configuration",
		Long: `Manage the doctag configuration stored at ~/.doctag/config.yaml

Configuration includes:
  • The tagging service URL and API root
  • Request timeout and notification lifetime
  • Logging and output settings

Environment variables DOCTAG_API_URL, DOCTAG_SESSION_FILE and
DOCTAG_LOG_LEVEL override the file, and may also be set in a .env file.

Examples:
  # View the effective configuration
  doctag config view

  # Point doctag at another server
  doctag config set base_url https://tagger.example.com

  # Get a specific value
  doctag config get logging.level

  # Show configuration file path
  doctag config path
`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "view",
			Short: "Display the effective configuration",
			Args:  cobra.NoArgs,
			RunE:  runConfigView,
		},
		&cobra.Command{
			Use:   "edit",
			Short: "Edit configuration in $EDITOR",
			Args:  cobra.NoArgs,
			RunE:  runConfigEdit,
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Get a specific configuration value",
			Long:  `Retrieve the value of a configuration key using dot notation (e.g., logging.level).`,
			Args:  cobra.ExactArgs(1),
			RunE:  runConfigGet,
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a specific configuration value",
			Long:  `Set the value of a configuration key using dot notation (e.g., output.format json).`,
			Args:  cobra.ExactArgs(2),
			RunE:  runConfigSet,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show configuration file path",
			Args:  cobra.NoArgs,
			RunE:  runConfigPath,
		},
	)
	return cmd
}

// configView renders the configuration file location and its contents
type configView struct {
	path string
	cfg  *config.Config
}

func (v configView) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Configuration file: %s\n\n", v.path)
	data, err := yaml.Marshal(v.cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func runConfigView(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}

	cfg, path, err := cmdCtx.loadConfig()
	if err != nil {
		return ux.FormatError(err, "loading configuration")
	}

	return ux.Write(cfg.Output.Format,
		&ux.FormatterOptions{Writer: cmd.OutOrStdout(), NoColor: cfg.Output.NoColor},
		ux.Output{Data: cfg, Text: configView{path: path, cfg: cfg}})
}

// configPath resolves --config or the default location
func configPath(cmd *cobra.Command) (string, error) {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return "", fmt.Errorf("failed to create command context: %w", err)
	}
	if cmdCtx.ConfigPath != "" {
		return cmdCtx.ConfigPath, nil
	}
	return config.DefaultPath()
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	path, err := configPath(cmd)
	if err != nil {
		return ux.FormatError(err, "getting config path")
	}

	// Make sure there is a file to edit
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Default().Save(path); err != nil {
			return ux.FormatError(err, "creating configuration")
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.CommandContext(cmd.Context(), editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor: %w", err)
	}

	cfg, err := config.ReadFile(path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Configuration may contain errors: %v\n", err)
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration updated successfully")
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	cfg, _, err := cmdCtx.loadConfig()
	if err != nil {
		return ux.FormatError(err, "loading configuration")
	}

	value, err := cfg.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get value: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	path, err := configPath(cmd)
	if err != nil {
		return ux.FormatError(err, "getting config path")
	}

	// Environment overrides must not end up in the file
	cfg, err := config.ReadFile(path)
	if err != nil {
		return ux.FormatError(err, "loading configuration")
	}
	if err := cfg.Set(key, value); err != nil {
		return fmt.Errorf("failed to set value: %w", err)
	}
	if err := cfg.Save(path); err != nil {
		return ux.FormatError(err, "saving configuration")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s = %s\n", key, value)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := configPath(cmd)
	if err != nil {
		return ux.FormatError(err, "getting config path")
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
