package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tendant/visit-content/pkg/visitcontent"
)

var pendingCmd = &cobra.Command{
	Use:     "pending",
	Short:   "List events awaiting moderation, newest first",
	GroupID: "moderation",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		console, sess, err := session(ctx)
		if err != nil {
			return err
		}
		view, err := console.Load(ctx, sess, visitcontent.TabEvents)
		if err != nil {
			return err
		}
		return printEvents(cmd.OutOrStdout(), view.Events)
	},
}

var publishedCmd = &cobra.Command{
	Use:     "published",
	Short:   "List published events by date",
	GroupID: "moderation",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := buildRuntime(cmd.Context())
		if err != nil {
			return err
		}
		events, err := r.Service.ListPublished(cmd.Context())
		if err != nil {
			return err
		}
		return printEvents(cmd.OutOrStdout(), events)
	},
}

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Queue candidate events from an ingestion source",
	GroupID: "moderation",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")

		ctx := cmd.Context()
		console, sess, err := session(ctx)
		if err != nil {
			return err
		}
		report, err := console.Sync(ctx, sess, source)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), report)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: fetched %d, queued %d, skipped %d\n",
			report.Source, report.Fetched, len(report.Queued), len(report.Rejected))
		for _, rej := range report.Rejected {
			fmt.Fprintf(out, "  skipped #%d %s: %s\n", rej.Index, rej.ExternalID, rej.Reason)
		}
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:     "approve <event-id>",
	Short:   "Publish a pending event",
	GroupID: "moderation",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return moderate(cmd.Context(), args[0], func(ctx context.Context, c *visitcontent.Console, s *visitcontent.Session, id uuid.UUID) error {
			_, err := c.Approve(ctx, s, id)
			return err
		}, cmd, "approved")
	},
}

var rejectCmd = &cobra.Command{
	Use:     "reject <event-id>",
	Short:   "Delete an event permanently",
	GroupID: "moderation",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirmed, _ := cmd.Flags().GetBool("yes")
		return moderate(cmd.Context(), args[0], func(ctx context.Context, c *visitcontent.Console, s *visitcontent.Session, id uuid.UUID) error {
			_, err := c.Reject(ctx, s, id, confirmed)
			return err
		}, cmd, "rejected")
	},
}

func init() {
	syncCmd.Flags().String("source", "", "ingestion source name (default: the first configured source)")
	rejectCmd.Flags().Bool("yes", false, "confirm the permanent deletion")
}

func moderate(ctx context.Context, arg string, action func(context.Context, *visitcontent.Console, *visitcontent.Session, uuid.UUID) error, cmd *cobra.Command, done string) error {
	id, err := uuid.Parse(arg)
	if err != nil {
		return fmt.Errorf("invalid event id %q", arg)
	}
	console, sess, err := session(ctx)
	if err != nil {
		return err
	}
	if err := action(ctx, console, sess, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", done, id)
	return nil
}
