package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/syncsys/syncsys/internal/client"
)

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	*RootOptions
	ClientID string
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <statement> [param...]",
		Short: "Run a raw SQL statement through the processor",
		Long: `Run a raw SQL statement through the file-drop protocol.

The statement is sent as a request file and executed by a running
processor; this command does not touch the database directly.
Positional parameters are parsed as JSON values, falling back to
plain strings.

Example:
  syncsys sql "SELECT * FROM tickets WHERE status = ?" open
  syncsys sql "UPDATE tickets SET status = ? WHERE id = ?" closed 7`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.ClientID, "client-id", "", "override the generated client ID")

	return cmd
}

func runSQL(opts *SQLOptions, cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger := setupLogging(opts.RootOptions, cfg)

	var c *client.Client
	if opts.ClientID != "" {
		c, err = client.NewWithID(cfg, opts.ClientID, logger)
	} else {
		c, err = client.New(cfg, logger)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "create client", err)
	}
	defer c.Close()

	params := make([]any, 0, len(args)-1)
	for _, raw := range args[1:] {
		params = append(params, parseParam(raw))
	}

	result, err := c.ExecSQL(args[0], params...)
	if err != nil {
		return WrapExitError(ExitFailure, "sql", err)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if f.Format == "json" {
		return f.Success(result)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return WrapExitError(ExitFailure, "encode result", err)
	}
	return f.Success(string(out))
}

// parseParam interprets a positional argument as a JSON value, so
// numbers and booleans bind with their SQL types. Anything that does
// not parse is a plain string.
func parseParam(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
