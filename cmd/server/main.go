package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"

	"github.com/tendant/visit-content/pkg/visitcontent/api"
	"github.com/tendant/visit-content/pkg/visitcontent/auth"
	"github.com/tendant/visit-content/pkg/visitcontent/config"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	rt, err := cfg.Build(ctx, logger)
	if err != nil {
		slog.Error("Failed to build runtime", "err", err)
		os.Exit(1)
	}
	defer rt.Close()

	if rt.Auth == nil {
		slog.Warn("JWT_SECRET is not set; the console and submissions are disabled")
	}

	opts := []api.HandlerOption{
		api.WithHandlerLogger(logger),
		api.WithMaxImageSize(cfg.MaxImageSize),
	}
	if rt.Auth != nil {
		opts = append(opts, api.WithVerifier(rt.Auth.Verifier()))
	}
	handler := api.NewHandler(rt.Service, rt.Console, opts...)

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	server.R.Route("/api/v1", func(r chi.Router) {
		if cfg.SchedulerKeySHA256 != "" {
			apiKeyMiddleware, err := middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
				APIKeys: map[string]string{
					"scheduler": cfg.SchedulerKeySHA256,
				},
			})
			if err != nil {
				slog.Error("Failed initialize API Key middleware", "err", err)
				os.Exit(1)
			}
			r.Mount("/scheduler", handler.SchedulerRoutes(apiKeyMiddleware, auth.WithIdentity))
		}
		r.Mount("/", handler.Routes())
	})

	if rt.Assets != nil {
		server.R.Handle(rt.AssetPath+"/*", http.StripPrefix(rt.AssetPath, rt.Assets))
	}

	slog.Info("Starting visit-content server",
		"environment", cfg.Environment,
		"database", cfg.DatabaseType,
		"storage", cfg.StorageType,
		"sources", len(cfg.Sources),
	)
	server.Run()
}
