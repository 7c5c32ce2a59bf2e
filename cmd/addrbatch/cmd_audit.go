package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/addrbatch/pkg/audit"
	"github.com/newtron-network/addrbatch/pkg/cli"
	"github.com/newtron-network/addrbatch/pkg/settings"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View the audit trail",
	Long: `View the audit trail of executed phases.

Each confirmed apply or revert phase is recorded with:
  - Timestamp and run id
  - Login user and device host
  - Dialect and direction
  - Command count, trouble notes and the final error

Recording is enabled with --audit-log, $ADDRBATCH_AUDIT_LOG or
'addrbatch settings set audit_log <path>'.

Examples:
  addrbatch audit list --host fw1
  addrbatch audit list --last 24h --failures`,
}

var (
	auditFile      string
	auditHost      string
	auditUser      string
	auditDirection string
	auditLast      string
	auditLimit     int
	auditFailures  bool
	auditJSON      bool
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit events, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		e, err := settings.LoadEnv()
		if err != nil {
			return err
		}
		path := auditPath(auditFile, e, s)
		if path == "" {
			return fmt.Errorf("no audit log configured: use --file, set ADDRBATCH_AUDIT_LOG, or run 'addrbatch settings set audit_log <path>'")
		}

		filter := audit.Filter{
			Host:        auditHost,
			User:        auditUser,
			Direction:   auditDirection,
			FailureOnly: auditFailures,
			Newest:      true,
			Limit:       auditLimit,
		}
		if auditLast != "" {
			duration, err := time.ParseDuration(auditLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", auditLast)
			}
			filter.StartTime = time.Now().Add(-duration)
		}

		logger, err := audit.NewFileLogger(path, audit.RotationConfig{})
		if err != nil {
			return err
		}
		defer logger.Close()

		events, err := logger.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}

		if auditJSON {
			return json.NewEncoder(os.Stdout).Encode(events)
		}
		if len(events) == 0 {
			fmt.Println("No audit events found")
			return nil
		}

		t := cli.NewTable("TIMESTAMP", "USER", "HOST", "DIALECT", "DIRECTION", "COMMANDS", "DURATION", "STATUS")
		for _, event := range events {
			t.Row(
				event.Timestamp.Format("2006-01-02 15:04:05"),
				event.User,
				event.Host,
				event.Dialect,
				event.Direction,
				strconv.Itoa(event.Commands),
				time.Duration(event.Duration).Round(time.Millisecond).String(),
				eventStatus(event),
			)
		}
		t.Flush()
		return nil
	},
}

func eventStatus(e *audit.Event) string {
	switch {
	case e.Error != "":
		return cli.Red("failed")
	case len(e.Troubles) > 0:
		return cli.Yellow(fmt.Sprintf("%d trouble", len(e.Troubles)))
	case e.Success:
		return cli.Green("ok")
	}
	return cli.Yellow(e.State)
}

func init() {
	auditListCmd.Flags().StringVar(&auditFile, "file", "", "audit log file (default from environment or settings)")
	auditListCmd.Flags().StringVar(&auditHost, "host", "", "Filter by device host")
	auditListCmd.Flags().StringVar(&auditUser, "user", "", "Filter by login user")
	auditListCmd.Flags().StringVar(&auditDirection, "direction", "", "Filter by direction (apply, revert)")
	auditListCmd.Flags().StringVar(&auditLast, "last", "", "Show events from last duration (e.g., 24h)")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum events to show")
	auditListCmd.Flags().BoolVar(&auditFailures, "failures", false, "Show only failed phases")
	auditListCmd.Flags().BoolVar(&auditJSON, "json", false, "JSON output")

	auditCmd.AddCommand(auditListCmd)
}
