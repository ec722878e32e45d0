package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syncsys/syncsys/internal/store"
)

// DBOptions holds flags shared by the db subcommands.
type DBOptions struct {
	*RootOptions
}

// NewDBCommand creates the db command group.
func NewDBCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DBOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Administer the SQLite database",
	}

	cmd.AddCommand(newDBInitCommand(opts))
	cmd.AddCommand(newDBBackupCommand(opts))
	cmd.AddCommand(newDBRestoreCommand(opts))
	cmd.AddCommand(newDBTablesCommand(opts))
	cmd.AddCommand(newDBInfoCommand(opts))
	cmd.AddCommand(newDBStatsCommand(opts))
	cmd.AddCommand(newDBVacuumCommand(opts))
	cmd.AddCommand(newDBCheckCommand(opts))

	return cmd
}

// withStore loads config, opens the store, runs fn and closes the
// store. Most db subcommands funnel through here.
func withStore(opts *DBOptions, fn func(*store.Store, *OutputFormatter) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(opts.RootOptions)
		if err != nil {
			return err
		}
		setupLogging(opts.RootOptions, cfg)

		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			return WrapExitError(ExitCommandError, "open database", err)
		}
		defer st.Close()

		f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		return fn(st, f)
	}
}

func newDBInitCommand(opts *DBOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <schema-file>",
		Short: "Create tables from a JSON schema file",
		Long: `Create tables from a JSON schema file.

The file maps table names to column definitions:

  {"tables": {"tickets": {"columns": {"id": "INTEGER", "status": "TEXT"},
              "primary_key": "id", "indexes": ["status"]}}}

Existing tables are left untouched.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withStore(opts, func(st *store.Store, f *OutputFormatter) error {
			if err := st.CreateTablesFromSchemaFile(context.Background(), args[0]); err != nil {
				return WrapExitError(ExitFailure, "init schema", err)
			}
			return f.Success(map[string]any{"schema_applied": args[0]})
		})(c, args)
	}
	return cmd
}

func newDBBackupCommand(opts *DBOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:           "backup",
		Short:         "Back up the database with VACUUM INTO",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringVar(&name, "name", "", "backup file name (default: timestamped)")
	cmd.RunE = func(c *cobra.Command, args []string) error {
		cfg, err := loadConfig(opts.RootOptions)
		if err != nil {
			return err
		}
		setupLogging(opts.RootOptions, cfg)

		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			return WrapExitError(ExitCommandError, "open database", err)
		}
		defer st.Close()

		path, err := st.Backup(context.Background(), cfg.Database.BackupPath, name)
		if err != nil {
			return WrapExitError(ExitFailure, "backup", err)
		}
		f := &OutputFormatter{Format: opts.Format, Writer: c.OutOrStdout(), Verbose: opts.Verbose}
		return f.Success(map[string]any{"backup_file": path})
	}
	return cmd
}

func newDBRestoreCommand(opts *DBOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Replace the database with a backup",
		Long: `Replace the database file with a backup copy.

The processor must not be running: restore swaps the database file
out from under any open connection.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		cfg, err := loadConfig(opts.RootOptions)
		if err != nil {
			return err
		}
		setupLogging(opts.RootOptions, cfg)

		if err := store.RestoreDatabase(cfg.Database.Path, args[0]); err != nil {
			return WrapExitError(ExitFailure, "restore", err)
		}
		f := &OutputFormatter{Format: opts.Format, Writer: c.OutOrStdout(), Verbose: opts.Verbose}
		return f.Success(map[string]any{"restored_from": args[0]})
	}
	return cmd
}

func newDBTablesCommand(opts *DBOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tables",
		Short:         "List tables",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withStore(opts, func(st *store.Store, f *OutputFormatter) error {
			tables, err := st.ListTables(context.Background())
			if err != nil {
				return WrapExitError(ExitFailure, "list tables", err)
			}
			if f.Format == "json" {
				return f.Success(tables)
			}
			for _, t := range tables {
				fmt.Fprintln(f.Writer, t)
			}
			return nil
		})(c, args)
	}
	return cmd
}

func newDBInfoCommand(opts *DBOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "info <table>",
		Short:         "Show a table's columns, indexes and row count",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withStore(opts, func(st *store.Store, f *OutputFormatter) error {
			info, err := st.Info(context.Background(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "table info", err)
			}
			if f.Format == "json" {
				return f.Success(info)
			}
			fmt.Fprintf(f.Writer, "Table: %s (%d rows)\n", args[0], info.RowCount)
			for _, col := range info.Columns {
				pk := ""
				if col.PrimaryKey {
					pk = " PRIMARY KEY"
				}
				fmt.Fprintf(f.Writer, "  %s %s%s\n", col.Name, col.Type, pk)
			}
			for _, idx := range info.Indexes {
				fmt.Fprintf(f.Writer, "  index %s\n", idx)
			}
			return nil
		})(c, args)
	}
	return cmd
}

func newDBStatsCommand(opts *DBOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Show database-wide statistics",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withStore(opts, func(st *store.Store, f *OutputFormatter) error {
			stats, err := st.Stats(context.Background())
			if err != nil {
				return WrapExitError(ExitFailure, "database stats", err)
			}
			if f.Format == "json" {
				return f.Success(stats)
			}
			fmt.Fprintf(f.Writer, "Database size: %d bytes (%d pages x %d)\n",
				stats.DatabaseSize, stats.PageCount, stats.PageSize)
			fmt.Fprintf(f.Writer, "File size: %d bytes\n", stats.FileSize)
			for table, count := range stats.Tables {
				fmt.Fprintf(f.Writer, "  %s: %d rows\n", table, count)
			}
			return nil
		})(c, args)
	}
	return cmd
}

func newDBVacuumCommand(opts *DBOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vacuum",
		Short:         "Compact the database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withStore(opts, func(st *store.Store, f *OutputFormatter) error {
			if err := st.Vacuum(context.Background()); err != nil {
				return WrapExitError(ExitFailure, "vacuum", err)
			}
			return f.Success("vacuum complete")
		})(c, args)
	}
	return cmd
}

func newDBCheckCommand(opts *DBOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "check",
		Short:         "Run an integrity check",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		return withStore(opts, func(st *store.Store, f *OutputFormatter) error {
			ok, err := st.CheckIntegrity(context.Background())
			if err != nil {
				return WrapExitError(ExitFailure, "integrity check", err)
			}
			if !ok {
				_ = f.Error("integrity check failed", nil)
				return NewExitError(ExitFailure, "integrity check failed")
			}
			return f.Success("integrity ok")
		})(c, args)
	}
	return cmd
}
