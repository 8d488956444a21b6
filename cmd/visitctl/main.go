package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tendant/visit-content/pkg/visitcontent"
	"github.com/tendant/visit-content/pkg/visitcontent/config"
)

var (
	jsonOutput    bool
	operatorID    string
	operatorEmail string
	verbose       bool

	cfg *config.ServerConfig
	rt  *config.Runtime
)

func defaultOperator() string {
	if s := os.Getenv("VISIT_OPERATOR_ID"); s != "" {
		return s
	}
	if s := os.Getenv("USER"); s != "" {
		return s
	}
	return "operator"
}

var rootCmd = &cobra.Command{
	Use:           "visitctl <command>",
	Short:         "Moderate event submissions and manage the visitor directory",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(config.WithEnv())
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rt != nil {
			rt.Close()
			rt = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&operatorID, "operator-id", defaultOperator(), "operator identity recorded on queued events")
	rootCmd.PersistentFlags().StringVar(&operatorEmail, "operator-email", os.Getenv("VISIT_OPERATOR_EMAIL"), "operator email")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline activity to stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: "moderation", Title: "Moderation:"},
		&cobra.Group{ID: "directory", Title: "Directory:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Moderation
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(publishedCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)

	// Directory
	rootCmd.AddCommand(placesCmd)
	rootCmd.AddCommand(landmarksCmd)

	// System
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(watchCmd)
}

// runtime builds the pipeline on first use.
func buildRuntime(ctx context.Context) (*config.Runtime, error) {
	if rt != nil {
		return rt, nil
	}
	var w io.Writer = io.Discard
	if verbose {
		w = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(w, nil))

	var err error
	rt, err = cfg.Build(ctx, logger)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// session opens a console session for the operator named by the flags.
func session(ctx context.Context) (*visitcontent.Console, *visitcontent.Session, error) {
	r, err := buildRuntime(ctx)
	if err != nil {
		return nil, nil, err
	}
	ingesters, err := cfg.BuildIngesters()
	if err != nil {
		return nil, nil, err
	}

	opts := []visitcontent.ConsoleOption{
		visitcontent.WithAuthProvider(localOperator{identity: visitcontent.Identity{ID: operatorID, Email: operatorEmail}}),
		visitcontent.WithActionTimeout(cfg.ActionTimeout),
	}
	for _, ing := range ingesters {
		opts = append(opts, visitcontent.WithIngester(ing))
	}
	console := visitcontent.NewConsole(r.Service, opts...)

	sess, err := console.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("operator %q: %w", operatorID, err)
	}
	return console, sess, nil
}

// localOperator is the identity of whoever runs the command.
type localOperator struct {
	identity visitcontent.Identity
}

func (o localOperator) Current(ctx context.Context) (*visitcontent.Identity, bool) {
	if o.identity.IsZero() {
		return nil, false
	}
	id := o.identity
	return &id, true
}

func (o localOperator) OnChange(fn func(*visitcontent.Identity)) func() { return func() {} }

func (o localOperator) SignOut(ctx context.Context) error { return nil }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
