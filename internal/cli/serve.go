package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/syncsys/syncsys/internal/notify"
	"github.com/syncsys/syncsys/internal/processor"
	"github.com/syncsys/syncsys/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the request processor",
		Long: `Run the request processor against the configured shared folders.

The processor watches the requests folder, executes each request
against the SQLite database, and writes the response into the
responses folder. It runs until interrupted.

Example:
  syncsys serve --config config.yaml
  syncsys serve --config config.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger := setupLogging(opts.RootOptions, cfg)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	var notifier notify.Notifier
	if cfg.Notify.Enabled {
		mailer := &notify.OutboxMailer{Dir: cfg.Notify.Outbox}
		notifier = notify.NewTicketNotifier(st, mailer, cfg.Notify.Table, cfg.Notify.Sender, cfg.Notify.Addresses, logger)
		logger.Info("ticket notifications enabled", "table", cfg.Notify.Table, "outbox", cfg.Notify.Outbox)
	}

	proc, err := processor.New(cfg, st, notifier, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "create processor", err)
	}
	if err := proc.Start(); err != nil {
		return WrapExitError(ExitCommandError, "start processor", err)
	}

	// Use command's context if available (for testing), otherwise the
	// process signals decide when to stop.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(cmd.OutOrStdout(), "Processor started. Watching for requests...")
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	<-ctx.Done()
	logger.Info("shutting down")
	proc.Stop()
	logger.Info("processor stopped gracefully")
	return nil
}
