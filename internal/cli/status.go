package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syncsys/syncsys/internal/store"
)

// StatusReport is the health summary printed by the status command.
type StatusReport struct {
	RequestsFolder   folderStatus `json:"requests_folder"`
	ResponsesFolder  folderStatus `json:"responses_folder"`
	DatabaseOK       bool         `json:"database_ok"`
	DatabaseError    string       `json:"database_error,omitempty"`
	DatabaseSize     int64        `json:"database_size"`
	LoggedOperations int64        `json:"logged_operations"`
	Healthy          bool         `json:"healthy"`
}

type folderStatus struct {
	Path         string `json:"path"`
	Accessible   bool   `json:"accessible"`
	PendingFiles int    `json:"pending_files"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report system health",
		Long: `Report system health: shared folder accessibility, pending file
counts, and database integrity. Exits non-zero when any check fails.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	setupLogging(opts, cfg)

	report := &StatusReport{
		RequestsFolder:  checkFolder(cfg.SharedFolder.Requests),
		ResponsesFolder: checkFolder(cfg.SharedFolder.Responses),
	}

	report.DatabaseOK, report.DatabaseError, report.DatabaseSize, report.LoggedOperations =
		checkDatabase(cfg.Database.Path)

	report.Healthy = report.RequestsFolder.Accessible &&
		report.ResponsesFolder.Accessible &&
		report.DatabaseOK

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if f.Format == "json" {
		if err := f.Success(report); err != nil {
			return err
		}
	} else {
		printStatus(f, report)
	}

	if !report.Healthy {
		return NewExitError(ExitFailure, "system unhealthy")
	}
	return nil
}

func checkFolder(path string) folderStatus {
	st := folderStatus{Path: path}
	entries, err := os.ReadDir(path)
	if err != nil {
		return st
	}
	st.Accessible = true
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			st.PendingFiles++
		}
	}
	return st
}

func checkDatabase(path string) (ok bool, errMsg string, size int64, logged int64) {
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	st, err := store.Open(path)
	if err != nil {
		return false, err.Error(), size, 0
	}
	defer st.Close()

	ctx := context.Background()
	intact, err := st.CheckIntegrity(ctx)
	if err != nil {
		return false, err.Error(), size, 0
	}
	if !intact {
		return false, "integrity check failed", size, 0
	}

	if err := st.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_log").Scan(&logged); err != nil {
		return false, err.Error(), size, 0
	}
	return true, "", size, logged
}

func printStatus(f *OutputFormatter, r *StatusReport) {
	printFolder := func(label string, fs folderStatus) {
		state := "ok"
		if !fs.Accessible {
			state = "NOT ACCESSIBLE"
		}
		fmt.Fprintf(f.Writer, "%s: %s (%s, %d pending)\n",
			label, filepath.Clean(fs.Path), state, fs.PendingFiles)
	}

	printFolder("Requests", r.RequestsFolder)
	printFolder("Responses", r.ResponsesFolder)

	if r.DatabaseOK {
		fmt.Fprintf(f.Writer, "Database: ok (%d bytes, %d logged operations)\n",
			r.DatabaseSize, r.LoggedOperations)
	} else {
		fmt.Fprintf(f.Writer, "Database: FAILED (%s)\n", r.DatabaseError)
	}

	if r.Healthy {
		fmt.Fprintln(f.Writer, "Status: healthy")
	} else {
		fmt.Fprintln(f.Writer, "Status: UNHEALTHY")
	}
}
