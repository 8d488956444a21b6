package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != "memory" && dbType != "postgres" {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == "postgres" && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithAutoMigrate applies migrations before the pool is opened
func WithAutoMigrate(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AutoMigrate = enabled
		return nil
	}
}

// WithMemoryStorage keeps assets in process memory
func WithMemoryStorage() Option {
	return func(c *ServerConfig) error {
		c.StorageType = "memory"
		return nil
	}
}

// WithFilesystemStorage stores assets under baseDir. A urlPrefix starting
// with "/" also mounts the directory on the HTTP server.
func WithFilesystemStorage(baseDir, urlPrefix string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.StorageType = "fs"
		c.FSBaseDir = baseDir
		c.FSURLPrefix = urlPrefix
		return nil
	}
}

// WithS3Storage stores assets in an S3 bucket
func WithS3Storage(bucket, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}
		c.StorageType = "s3"
		c.S3.Bucket = bucket
		c.S3.Region = region
		return nil
	}
}

// WithS3Credentials sets static AWS credentials for S3 storage
func WithS3Credentials(accessKeyID, secretAccessKey string) Option {
	return func(c *ServerConfig) error {
		c.S3.AccessKeyID = accessKeyID
		c.S3.SecretAccessKey = secretAccessKey
		return nil
	}
}

// WithS3Endpoint sets a custom S3 endpoint (for MinIO, LocalStack, etc.)
func WithS3Endpoint(endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		c.S3.Endpoint = endpoint
		c.S3.UsePathStyle = usePathStyle
		return nil
	}
}

// WithS3Encryption enables server-side encryption for S3 storage
func WithS3Encryption(algorithm, kmsKeyID string) Option {
	return func(c *ServerConfig) error {
		if algorithm != "AES256" && algorithm != "aws:kms" {
			return fmt.Errorf("SSE algorithm must be 'AES256' or 'aws:kms', got: %s", algorithm)
		}
		c.S3.EnableSSE = true
		c.S3.SSEAlgorithm = algorithm
		c.S3.SSEKMSKeyID = kmsKeyID
		return nil
	}
}

// WithPublicBaseURL sets the host that serves stored assets
func WithPublicBaseURL(base string) Option {
	return func(c *ServerConfig) error {
		c.PublicBaseURL = base
		return nil
	}
}

// WithAssetPrefix sets the object key prefix for uploads
func WithAssetPrefix(prefix string) Option {
	return func(c *ServerConfig) error {
		if prefix == "" {
			return fmt.Errorf("asset prefix cannot be empty")
		}
		c.AssetPrefix = prefix
		return nil
	}
}

// WithNATS publishes the audit feed to the NATS server at url
func WithNATS(url string) Option {
	return func(c *ServerConfig) error {
		c.NATSURL = url
		return nil
	}
}

// WithEventLogging enables or disables the slog audit sink
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithJWT enables bearer token identities signed with secret
func WithJWT(secret string, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		if secret == "" {
			return fmt.Errorf("jwt secret cannot be empty")
		}
		c.JWTSecret = secret
		if ttl > 0 {
			c.TokenTTL = ttl
		}
		return nil
	}
}

// WithSchedulerKey mounts the scheduled sync endpoint behind the API key
// whose hex SHA-256 is keySHA256
func WithSchedulerKey(keySHA256 string) Option {
	return func(c *ServerConfig) error {
		if keySHA256 == "" {
			return fmt.Errorf("scheduler key hash cannot be empty")
		}
		c.SchedulerKeySHA256 = keySHA256
		return nil
	}
}

// WithActionTimeout bounds every console action. Zero disables the bound.
func WithActionTimeout(d time.Duration) Option {
	return func(c *ServerConfig) error {
		if d < 0 {
			return fmt.Errorf("action timeout cannot be negative")
		}
		c.ActionTimeout = d
		return nil
	}
}

// WithMaxImageSize overrides the upload size limit
func WithMaxImageSize(n int64) Option {
	return func(c *ServerConfig) error {
		if n <= 0 {
			return fmt.Errorf("max image size must be positive, got: %d", n)
		}
		c.MaxImageSize = n
		return nil
	}
}

// WithStaticSource registers the seed ingestion source under name
func WithStaticSource(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			return fmt.Errorf("source name cannot be empty")
		}
		c.Sources = upsertSource(c.Sources, SourceConfig{Name: name, Type: "static"})
		return nil
	}
}

// WithHTTPSource registers a JSON feed ingestion source
func WithHTTPSource(name, url string, timeout time.Duration) Option {
	return func(c *ServerConfig) error {
		if name == "" || url == "" {
			return fmt.Errorf("http source requires a name and a url")
		}
		c.Sources = upsertSource(c.Sources, SourceConfig{Name: name, Type: "http", URL: url, Timeout: timeout})
		return nil
	}
}

// WithFileSource registers a TOML file ingestion source
func WithFileSource(name, path string) Option {
	return func(c *ServerConfig) error {
		if name == "" || path == "" {
			return fmt.Errorf("file source requires a name and a path")
		}
		c.Sources = upsertSource(c.Sources, SourceConfig{Name: name, Type: "file", Path: path})
		return nil
	}
}

// WithoutSources removes every ingestion source, including the seed source
func WithoutSources() Option {
	return func(c *ServerConfig) error {
		c.Sources = nil
		return nil
	}
}
