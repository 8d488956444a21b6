package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/visit-content/pkg/visitcontent"
	"github.com/tendant/visit-content/pkg/visitcontent/auth"
	"github.com/tendant/visit-content/pkg/visitcontent/ingest"
	"github.com/tendant/visit-content/pkg/visitcontent/notify"
	"github.com/tendant/visit-content/pkg/visitcontent/repo/memory"
	repopg "github.com/tendant/visit-content/pkg/visitcontent/repo/postgres"
	fsstorage "github.com/tendant/visit-content/pkg/visitcontent/storage/fs"
	memorystorage "github.com/tendant/visit-content/pkg/visitcontent/storage/memory"
	s3storage "github.com/tendant/visit-content/pkg/visitcontent/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:          "8080",
		Environment:   "development",
		DatabaseType:  "memory",
		DBSchema:      "visit",
		StorageType:   "memory",
		AssetPrefix:   "events",
		S3:            S3Config{Region: "us-east-1"},
		TokenTTL:      auth.DefaultTTL,
		ActionTimeout: visitcontent.DefaultActionTimeout,
		MaxImageSize:  visitcontent.MaxImageSize,
		Sources: []SourceConfig{
			{Name: ingest.StaticSourceName, Type: "static"},
		},
		EnableEventLogging: true,
	}
}

// ServerConfig represents the configuration shared by the server and visitctl.
// Fields tagged env are read by WithEnv.
type ServerConfig struct {
	Port        string `env:"PORT"`
	Environment string `env:"ENVIRONMENT"` // development, production, testing

	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseType string // "memory", "postgres"; derived from DatabaseURL by WithEnv
	DBSchema     string `env:"DB_SCHEMA"`
	AutoMigrate  bool   `env:"AUTO_MIGRATE"`

	// Asset storage configuration
	StorageURL    string `env:"STORAGE_URL"`
	StorageType   string // "memory", "fs", "s3"
	FSBaseDir     string
	FSURLPrefix   string `env:"ASSET_URL_PREFIX"`
	AssetPrefix   string `env:"ASSET_PREFIX"`
	PublicBaseURL string `env:"ASSET_PUBLIC_BASE_URL"`
	S3            S3Config

	// Audit feed
	NATSURL            string `env:"NATS_URL"`
	EnableEventLogging bool   `env:"EVENT_LOGGING"`

	// Identity
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL"`

	// SHA-256 of the API key accepted on the scheduled sync endpoint; the
	// endpoint is not mounted when empty
	SchedulerKeySHA256 string `env:"SCHEDULER_API_KEY_SHA256"`

	// Pipeline limits
	ActionTimeout time.Duration `env:"ACTION_TIMEOUT"`
	MaxImageSize  int64         `env:"MAX_IMAGE_SIZE"`

	// Ingestion sources; the first one is the console default
	Sources []SourceConfig
}

// S3Config holds the s3:// storage settings that do not fit in STORAGE_URL.
type S3Config struct {
	Bucket                 string
	Region                 string `env:"AWS_REGION"`
	AccessKeyID            string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey        string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint               string `env:"AWS_S3_ENDPOINT"`
	UsePathStyle           bool   `env:"AWS_S3_USE_PATH_STYLE"`
	EnableSSE              bool   `env:"AWS_S3_ENABLE_SSE"`
	SSEAlgorithm           string `env:"AWS_S3_SSE_ALGORITHM"`
	SSEKMSKeyID            string `env:"AWS_S3_SSE_KMS_KEY_ID"`
	CreateBucketIfNotExist bool   `env:"AWS_S3_CREATE_BUCKET"`
	PublicRead             bool   `env:"AWS_S3_PUBLIC_READ"`
}

// SourceConfig describes one ingestion source.
type SourceConfig struct {
	Name     string
	Type     string // "static", "http", "file"
	URL      string
	Path     string
	Timeout  time.Duration
	Attempts int
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.StorageType {
	case "memory":
	case "fs":
		if c.FSBaseDir == "" {
			return errors.New("filesystem storage requires a base directory")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 storage requires a bucket")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("jwt secret must be at least %d bytes", auth.MinSecretLength)
	}
	if c.SchedulerKeySHA256 != "" && c.JWTSecret == "" {
		return errors.New("scheduler api key requires jwt_secret")
	}
	if c.MaxImageSize <= 0 {
		return errors.New("max image size must be positive")
	}
	if c.ActionTimeout < 0 {
		return errors.New("action timeout cannot be negative")
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if src.Name == "" {
			return errors.New("ingestion source name is required")
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate ingestion source %q", src.Name)
		}
		seen[src.Name] = true
		switch src.Type {
		case "static":
		case "http":
			if src.URL == "" {
				return fmt.Errorf("ingestion source %q requires a url", src.Name)
			}
		case "file":
			if src.Path == "" {
				return fmt.Errorf("ingestion source %q requires a path", src.Name)
			}
		default:
			return fmt.Errorf("ingestion source %q has unsupported type %q", src.Name, src.Type)
		}
	}

	return nil
}

// Runtime is everything Build wires together. Close releases the database
// pool and the NATS connection.
type Runtime struct {
	Service visitcontent.Service
	Console *visitcontent.Console
	Auth    *auth.Provider // nil when no JWT secret is configured

	// Assets serves stored files when the filesystem backend has a URL
	// prefix; mount it at AssetPath.
	Assets    http.Handler
	AssetPath string

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// Build creates the service, the console and their collaborators.
func (c *ServerConfig) Build(ctx context.Context, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{}
	fail := func(err error) (*Runtime, error) {
		rt.Close()
		return nil, err
	}

	store, err := c.buildContentStore(ctx, rt)
	if err != nil {
		return fail(fmt.Errorf("failed to build content store: %w", err))
	}

	assets, err := c.buildAssetStore(rt)
	if err != nil {
		return fail(fmt.Errorf("failed to build asset store: %w", err))
	}

	sink, err := c.buildEventSink(logger, rt)
	if err != nil {
		return fail(fmt.Errorf("failed to build event sink: %w", err))
	}

	svc, err := visitcontent.New(
		visitcontent.WithContentStore(store),
		visitcontent.WithAssetStore(assets),
		visitcontent.WithEventSink(sink),
		visitcontent.WithLogger(logger),
		visitcontent.WithMaxImageSize(c.MaxImageSize),
	)
	if err != nil {
		return fail(err)
	}
	rt.Service = svc

	consoleOpts := []visitcontent.ConsoleOption{
		visitcontent.WithActionTimeout(c.ActionTimeout),
		visitcontent.WithConsoleLogger(logger),
	}
	if c.JWTSecret != "" {
		provider, err := auth.New([]byte(c.JWTSecret), auth.WithTTL(c.TokenTTL))
		if err != nil {
			return fail(err)
		}
		rt.Auth = provider
		consoleOpts = append(consoleOpts, visitcontent.WithAuthProvider(provider))
	}
	ingesters, err := c.BuildIngesters()
	if err != nil {
		return fail(err)
	}
	for _, ing := range ingesters {
		consoleOpts = append(consoleOpts, visitcontent.WithIngester(ing))
	}
	rt.Console = visitcontent.NewConsole(svc, consoleOpts...)

	return rt, nil
}

// BuildService creates a Service instance from the configuration. The
// returned function releases its resources.
func (c *ServerConfig) BuildService(ctx context.Context) (visitcontent.Service, func(), error) {
	rt, err := c.Build(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	return rt.Service, rt.Close, nil
}

// buildContentStore creates a ContentStore based on the configuration
func (c *ServerConfig) buildContentStore(ctx context.Context, rt *Runtime) (visitcontent.ContentStore, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		if c.AutoMigrate {
			if err := c.Migrate(); err != nil {
				return nil, err
			}
		}
		pool, err := c.newPool(ctx)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func (c *ServerConfig) newPool(ctx context.Context) (*pgxpool.Pool, error) {
	if c.DatabaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	schema := c.DBSchema
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if schema == "" {
			return nil
		}
		_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// PingPostgres verifies connectivity to Postgres with search_path applied.
// It fails if the schema (when provided) does not exist.
func (c *ServerConfig) PingPostgres(ctx context.Context) error {
	pool, err := c.newPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Migrate applies the embedded schema migrations.
func (c *ServerConfig) Migrate() error {
	db, err := repopg.OpenDB(c.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return repopg.MigrateUp(db)
}

// buildAssetStore creates an AssetStore based on the configuration
func (c *ServerConfig) buildAssetStore(rt *Runtime) (visitcontent.AssetStore, error) {
	switch c.StorageType {
	case "memory":
		var opts []memorystorage.Option
		if c.PublicBaseURL != "" {
			opts = append(opts, memorystorage.WithPublicBaseURL(c.PublicBaseURL))
		}
		return memorystorage.New(opts...), nil

	case "fs":
		backend, err := fsstorage.New(fsstorage.Config{
			BaseDir:   c.FSBaseDir,
			URLPrefix: c.FSURLPrefix,
			Prefix:    c.AssetPrefix,
		})
		if err != nil {
			return nil, err
		}
		if c.FSURLPrefix != "" && c.FSURLPrefix[0] == '/' {
			rt.Assets = backend.Handler()
			rt.AssetPath = c.FSURLPrefix
		}
		return backend, nil

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			Prefix:                 c.AssetPrefix,
			PublicBaseURL:          c.PublicBaseURL,
			EnableSSE:              c.S3.EnableSSE,
			SSEAlgorithm:           c.S3.SSEAlgorithm,
			SSEKMSKeyID:            c.S3.SSEKMSKeyID,
			CreateBucketIfNotExist: c.S3.CreateBucketIfNotExist,
			PublicRead:             c.S3.PublicRead,
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.StorageType)
	}
}

func (c *ServerConfig) buildEventSink(logger *slog.Logger, rt *Runtime) (visitcontent.EventSink, error) {
	var sinks visitcontent.MultiEventSink
	if c.EnableEventLogging {
		sinks = append(sinks, visitcontent.NewLogEventSink(logger))
	}
	if c.NATSURL != "" {
		sink, err := notify.NewSink(c.NATSURL)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() {
			if err := sink.Close(); err != nil {
				logger.Warn("failed to drain nats connection", "err", err)
			}
		})
		sinks = append(sinks, sink)
	}
	switch len(sinks) {
	case 0:
		return visitcontent.NewNoopEventSink(), nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

// BuildIngesters creates the configured ingestion sources in order.
func (c *ServerConfig) BuildIngesters() ([]visitcontent.Ingester, error) {
	ingesters := make([]visitcontent.Ingester, 0, len(c.Sources))
	for _, src := range c.Sources {
		switch src.Type {
		case "static":
			ingesters = append(ingesters, ingest.NewStaticSource(ingest.WithName(src.Name)))
		case "http":
			source, err := ingest.NewHTTPSource(ingest.HTTPConfig{
				Name:     src.Name,
				URL:      src.URL,
				Timeout:  src.Timeout,
				Attempts: src.Attempts,
			})
			if err != nil {
				return nil, err
			}
			ingesters = append(ingesters, source)
		case "file":
			source, err := ingest.NewFileSource(src.Name, src.Path)
			if err != nil {
				return nil, err
			}
			ingesters = append(ingesters, source)
		default:
			return nil, fmt.Errorf("unsupported ingestion source type: %s", src.Type)
		}
	}
	return ingesters, nil
}
