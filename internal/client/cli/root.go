package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/pmvault/internal/client/config"
	"github.com/dmitrijs2005/pmvault/internal/logging"
	"github.com/spf13/cobra"
)

// runners are swapped in tests.
type runners struct {
	agent func(ctx context.Context, cfg *config.Config, log logging.Logger) error
	shell func(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error
}

var defaultRunners = runners{agent: RunAgent, shell: RunShell}

// NewRootCommand builds the pmvault command tree. Flag parsing is left to
// config.Load so flags and a config file work the same for every
// subcommand.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultRunners)
}

func newRootCommand(r runners) *cobra.Command {
	root := &cobra.Command{
		Use:   "pmvault",
		Short: "A password manager with client-side encryption",
		Long: `pmvault keeps your credentials encrypted with a master password that
never leaves this machine. The agent holds the unlocked vault in memory;
the shell talks to it over a local socket.`,
		SilenceUsage: true,
	}

	agentCmd := &cobra.Command{
		Use:                "agent",
		Short:              "Run the background agent",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args)
			if err != nil {
				return err
			}
			log, err := logging.New(cmd.ErrOrStderr(), logging.Options{Backend: cfg.LogBackend, Format: cfg.LogFormat, Level: cfg.LogLevel})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return r.agent(ctx, cfg, log)
		},
	}

	shellCmd := &cobra.Command{
		Use:                "shell",
		Short:              "Open the interactive shell",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args)
			if err != nil {
				return err
			}
			return r.shell(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	root.AddCommand(agentCmd, shellCmd)
	return root
}

// loadConfig turns the panics of config.Load into an error.
func loadConfig(args []string) (cfg *config.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid configuration: %v", r)
		}
	}()
	return config.Load(args), nil
}

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context) error {
	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		return fmt.Errorf("pmvault: %w", err)
	}
	return nil
}
