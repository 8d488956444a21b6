package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ingestEnv carries the ingestion variables; each one adds a source.
type ingestEnv struct {
	HTTPURL      string        `env:"INGEST_HTTP_URL"`
	HTTPName     string        `env:"INGEST_HTTP_NAME" env-default:"feed"`
	HTTPTimeout  time.Duration `env:"INGEST_HTTP_TIMEOUT" env-default:"10s"`
	HTTPAttempts int           `env:"INGEST_HTTP_ATTEMPTS" env-default:"3"`
	File         string        `env:"INGEST_FILE"`
	FileName     string        `env:"INGEST_FILE_NAME" env-default:"file"`
	Default      string        `env:"INGEST_DEFAULT"`
	DisableSeed  bool          `env:"INGEST_DISABLE_STATIC"`
}

// WithEnv applies environment variable overrides. Unset variables leave the
// current value alone.
//
// Database:
//
//	DATABASE_URL - "memory" (default) or "postgres://..." / "postgresql://..."
//	DB_SCHEMA, AUTO_MIGRATE
//
// Storage:
//
//	STORAGE_URL - one of:
//	  "memory://" - in-memory storage (default)
//	  "file:///path/to/data?url_prefix=/assets" - filesystem storage
//	  "s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true"
//	ASSET_PREFIX, ASSET_PUBLIC_BASE_URL, ASSET_URL_PREFIX, AWS_* credentials
//
// Pipeline:
//
//	JWT_SECRET, TOKEN_TTL, ACTION_TIMEOUT, MAX_IMAGE_SIZE, NATS_URL, EVENT_LOGGING
//
// Ingestion:
//
//	INGEST_HTTP_URL (+ _NAME, _TIMEOUT, _ATTEMPTS), INGEST_FILE (+ _NAME),
//	INGEST_DEFAULT, INGEST_DISABLE_STATIC
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}
		if err := applyDatabaseURL(c); err != nil {
			return err
		}
		if c.StorageURL != "" {
			if err := applyStorageURL(c.StorageURL, c); err != nil {
				return err
			}
		}

		var ing ingestEnv
		if err := cleanenv.ReadEnv(&ing); err != nil {
			return fmt.Errorf("read ingestion environment: %w", err)
		}
		applyIngestEnv(ing, c)
		return nil
	}
}

// applyDatabaseURL derives the database type from DatabaseURL.
func applyDatabaseURL(c *ServerConfig) error {
	dbURL := c.DatabaseURL
	switch {
	case dbURL == "" || dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = "postgres"
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", redact(dbURL))
	}
	return nil
}

// applyStorageURL configures the asset backend from a storage URL.
func applyStorageURL(raw string, c *ServerConfig) error {
	if raw == "memory" || raw == "memory://" {
		c.StorageType = "memory"
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	query := u.Query()

	switch u.Scheme {
	case "file":
		path := u.Path
		if u.Host != "" {
			path = u.Host + path
		}
		if path == "" {
			return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
		}
		c.StorageType = "fs"
		c.FSBaseDir = path
		if prefix := query.Get("url_prefix"); prefix != "" {
			c.FSURLPrefix = prefix
		}
		return nil

	case "s3":
		if u.Host == "" {
			return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
		}
		c.StorageType = "s3"
		c.S3.Bucket = u.Host
		if v := query.Get("region"); v != "" {
			c.S3.Region = v
		}
		if v := query.Get("endpoint"); v != "" {
			c.S3.Endpoint = v
		}
		if v := query.Get("path_style"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid path_style in STORAGE_URL: %w", err)
			}
			c.S3.UsePathStyle = b
		}
		return nil
	}

	return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", raw)
}

func applyIngestEnv(ing ingestEnv, c *ServerConfig) {
	if ing.DisableSeed {
		kept := c.Sources[:0]
		for _, src := range c.Sources {
			if src.Type != "static" {
				kept = append(kept, src)
			}
		}
		c.Sources = kept
	}
	if ing.HTTPURL != "" {
		c.Sources = upsertSource(c.Sources, SourceConfig{
			Name:     ing.HTTPName,
			Type:     "http",
			URL:      ing.HTTPURL,
			Timeout:  ing.HTTPTimeout,
			Attempts: ing.HTTPAttempts,
		})
	}
	if ing.File != "" {
		c.Sources = upsertSource(c.Sources, SourceConfig{
			Name: ing.FileName,
			Type: "file",
			Path: ing.File,
		})
	}
	if ing.Default != "" {
		c.Sources = promoteSource(c.Sources, ing.Default)
	}
}

func upsertSource(sources []SourceConfig, src SourceConfig) []SourceConfig {
	for i := range sources {
		if sources[i].Name == src.Name {
			sources[i] = src
			return sources
		}
	}
	return append(sources, src)
}

// promoteSource moves the named source to the front so the console uses it
// when no source is given. Unknown names are ignored.
func promoteSource(sources []SourceConfig, name string) []SourceConfig {
	for i := range sources {
		if sources[i].Name == name {
			out := make([]SourceConfig, 0, len(sources))
			out = append(out, sources[i])
			out = append(out, sources[:i]...)
			return append(out, sources[i+1:]...)
		}
	}
	return sources
}

// redact hides the password of a connection URL in error messages.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
