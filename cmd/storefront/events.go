package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pmgasset/nomadtech/internal/eventlog"
)

// newEventsCmd inspects the webhook archive when a delivery needs a manual
// replay from the processor dashboard.
func newEventsCmd() *cobra.Command {
	events := &cobra.Command{
		Use:   "events",
		Short: "Inspect archived webhook events",
	}

	var limit int64
	failed := &cobra.Command{
		Use:   "failed",
		Short: "List the most recent events that failed processing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			archive, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer archive.Close(cmd.Context())

			entries, err := archive.Failed(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no failed events")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tattempts=%d\t%s\t%s\n",
					e.EventID, e.Type, e.Attempts, e.ReceivedAt.Format(time.RFC3339), e.Error)
			}
			return nil
		},
	}
	failed.Flags().Int64Var(&limit, "limit", 20, "maximum number of events to list")

	show := &cobra.Command{
		Use:   "show <event-id>",
		Short: "Print one archived event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer archive.Close(cmd.Context())

			entry, err := archive.Get(cmd.Context(), args[0])
			if errors.Is(err, eventlog.ErrEventNotFound) {
				return fmt.Errorf("event %s is not in the archive", args[0])
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entry)
		},
	}

	events.AddCommand(failed, show)
	return events
}

func openArchive(cmd *cobra.Command) (*eventlog.Archive, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Mongo.URI == "" {
		return nil, errors.New("MONGO_URI is not set; the webhook archive is disabled")
	}
	db, err := eventlog.Connect(cmd.Context(), cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, err
	}
	return eventlog.NewArchive(db), nil
}
