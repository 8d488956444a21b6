package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendant/visit-content/pkg/visitcontent"
	"github.com/tendant/visit-content/pkg/visitcontent/notify"
	repopg "github.com/tendant/visit-content/pkg/visitcontent/repo/postgres"
)

var migrateCmd = &cobra.Command{
	Use:     "migrate <up|down|status>",
	Short:   "Manage the postgres schema",
	GroupID: "system",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DatabaseType != "postgres" {
			return errors.New("migrate needs a postgres DATABASE_URL")
		}
		db, err := repopg.OpenDB(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		out := cmd.OutOrStdout()
		switch args[0] {
		case "up":
			if err := repopg.MigrateUp(db); err != nil {
				return err
			}
		case "down":
			if err := repopg.MigrateDown(db); err != nil {
				return err
			}
		case "status":
		default:
			return fmt.Errorf("unknown migrate action %q (want up, down or status)", args[0])
		}

		state, err := repopg.Status(cmd.Context(), db)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(out, state)
		}
		fmt.Fprintf(out, "schema version %d", state.Version)
		if state.Dirty {
			fmt.Fprint(out, " (dirty)")
		}
		fmt.Fprintln(out)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:     "token",
	Short:   "Issue an operator bearer token for the HTTP console",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := buildRuntime(cmd.Context())
		if err != nil {
			return err
		}
		if r.Auth == nil {
			return errors.New("JWT_SECRET is not set")
		}
		id, _ := cmd.Flags().GetString("id")
		email, _ := cmd.Flags().GetString("email")
		if id == "" {
			id = operatorID
		}
		if email == "" {
			email = operatorEmail
		}
		token, err := r.Auth.Issue(visitcontent.Identity{ID: id, Email: email})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow the moderation audit feed",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		if cfg.NATSURL == "" {
			return errors.New("NATS_URL is not set")
		}
		sub, err := notify.NewSubscriber(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer sub.Close()

		messages, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return err
		}
		defer cancel()

		out := cmd.OutOrStdout()
		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case msg, ok := <-messages:
				if !ok {
					return nil
				}
				if jsonOutput {
					fmt.Fprintf(out, "{\"subject\":%q,\"data\":%s}\n", msg.Subject, compact(msg.Data))
					continue
				}
				fmt.Fprintf(out, "%-24s %s\n", msg.Subject, compact(msg.Data))
			}
		}
	},
}

func init() {
	tokenCmd.Flags().String("id", "", "identity id (default: --operator-id)")
	tokenCmd.Flags().String("email", "", "identity email (default: --operator-email)")
	watchCmd.Flags().String("topic", notify.TopicAll, "subject to follow (wildcards allowed)")
}

func compact(data []byte) []byte {
	var v json.RawMessage
	if err := json.Unmarshal(data, &v); err != nil {
		b, _ := json.Marshal(string(data))
		return b
	}
	b, err := json.Marshal(v)
	if err != nil {
		return data
	}
	return b
}
