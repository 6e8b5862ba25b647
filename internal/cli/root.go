// Package cli provides the command-line interface for dress.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/dress/internal/cli/commands"
	"github.com/leapstack-labs/dress/internal/cli/output"
	"github.com/leapstack-labs/dress/internal/config"
	"github.com/leapstack-labs/dress/pkg/adapter"
	"github.com/spf13/cobra"

	// Register the built-in adapters.
	_ "github.com/leapstack-labs/dress/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/dress/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/dress/pkg/adapters/sqlite"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

// newRootCmd also returns a function closing the datasource. cobra skips
// PersistentPostRunE when a command fails, so Execute calls it as well.
func newRootCmd() (*cobra.Command, func() error) {
	var (
		cfgFile string
		env     *commands.Env
	)

	rootCmd := &cobra.Command{
		Use:   "dress",
		Short: "dress - database schema metadata for documentation",
		Long: `dress reads table, column, comment and DDL metadata from MySQL,
PostgreSQL and SQLite databases and presents it in one normalized shape.

The datasource is configured in dress.yaml, DRESS_* environment variables
or flags. dress never modifies the inspected schema.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd, cfg.Verbose)
			if cfg.File != "" {
				logger.Debug("using config file", slog.String("path", cfg.File))
			}

			env = &commands.Env{
				Config:   cfg,
				Source:   adapter.NewSource(cfg.Adapter, logger),
				Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
				Logger:   logger,
			}

			ctx := config.WithLogger(cmd.Context(), logger)
			cmd.SetContext(commands.WithEnv(ctx, env))
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return closeEnv(env)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./dress.yaml)")
	flags.String("datasource", "", "Datasource type (Database/MySQL|Database/PostgreSQL|Database/SQLite3)")
	flags.String("host", "", "Database host")
	flags.Int("port", 0, "Database port")
	flags.String("user", "", "Database user")
	flags.String("password", "", "Database password")
	flags.String("database", "", "Database name, or file path for SQLite")
	flags.String("charset", "", "Connection charset (MySQL)")
	flags.String("schema", "", "Schema to restrict PostgreSQL lookups to")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.StringP("output", "o", "", "Output format (auto|table|markdown|json|yaml)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.OutputFormats, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("datasource", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return adapter.ListAdapters(), cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewTablesCommand())
	rootCmd.AddCommand(commands.NewColumnsCommand())
	rootCmd.AddCommand(commands.NewCommentCommand())
	rootCmd.AddCommand(commands.NewDDLCommand())
	rootCmd.AddCommand(commands.NewDescribeCommand())
	rootCmd.AddCommand(commands.NewSnapshotCommand())
	rootCmd.AddCommand(commands.NewAdaptersCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd, func() error { return closeEnv(env) }
}

func closeEnv(env *commands.Env) error {
	if env == nil || env.Source == nil {
		return nil
	}
	return env.Source.Close()
}

// newLogger builds a text logger on stderr: debug level when verbose.
func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// Execute runs the root command.
func Execute() error {
	rootCmd, closeSource := newRootCmd()
	defer func() { _ = closeSource() }()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for dress.

To load completions:

Bash:
  $ source <(dress completion bash)

Zsh:
  $ dress completion zsh > "${fpath[1]}/_dress"

Fish:
  $ dress completion fish | source

PowerShell:
  PS> dress completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
