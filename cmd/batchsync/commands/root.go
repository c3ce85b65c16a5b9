package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/momentics/batchsync/facade"
	"github.com/momentics/batchsync/internal/log"
	"github.com/momentics/batchsync/internal/version"
)

var (
	ErrLogHandlerFailed = errors.New("log handler failed")
	ErrConfigFailed     = errors.New("config load failed")
)

func NewRootCmd(name, shortDesc, longDesc string) *cobra.Command {
	args := NewRootArgs()

	cmd := &cobra.Command{
		Use:           name,
		Short:         shortDesc,
		Long:          longDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.String(),
	}

	cmd.PersistentFlags().StringVar(args.logLevel, "log_level", "warn", "Set the log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(args.logFormat, "log_format", "text", "Set the log format (text, logfmt, json)")
	cmd.PersistentFlags().StringVar(args.configPath, "config", "", "Pipeline config file (YAML)")

	err := cmd.MarkPersistentFlagFilename("config", "yaml", "yml")
	if err != nil {
		panic(err)
	}

	cmd.PersistentPreRunE = func(cc *cobra.Command, _ []string) error {
		h, err := log.CreateHandlerWithStrings(
			cc.ErrOrStderr(),
			args.GetLogLevel(),
			args.GetLogFormat(),
		)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLogHandlerFailed, err)
		}

		slog.SetDefault(slog.New(h))

		slog.Debug("ready to go")

		return nil
	}

	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		slog.Debug("shutting down")

		return nil
	}

	cmd.AddCommand(NewRunCmd(args))
	cmd.AddCommand(NewTimedWaitCmd())
	cmd.AddCommand(NewTimedLockCmd())
	cmd.AddCommand(NewTurnstileCmd())
	cmd.AddCommand(NewJournalCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// loadConfig reads --config, or the defaults plus environment overrides.
func loadConfig(args *RootArgs) (*facade.Config, error) {
	cfg, err := facade.LoadConfig(args.GetConfigPath())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigFailed, err)
	}

	return cfg, nil
}
