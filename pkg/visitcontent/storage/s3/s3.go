// Package s3 stores assets in an S3-compatible bucket (AWS, MinIO).
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tendant/visit-content/pkg/visitcontent"
	"github.com/tendant/visit-content/pkg/visitcontent/objectkey"
)

const backendName = "s3"

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)
	Prefix          string // Key prefix, defaults to objectkey.DefaultPrefix
	PublicBaseURL   string // CDN or website host that fronts the bucket

	// Server-side encryption options
	EnableSSE    bool   // Enable server-side encryption
	SSEAlgorithm string // SSE algorithm (AES256 or aws:kms)
	SSEKMSKeyID  string // Optional KMS key ID for aws:kms algorithm

	// MinIO/S3-compatible service options
	CreateBucketIfNotExist bool // Create bucket if it doesn't exist
	PublicRead             bool // Attach an anonymous read policy when the bucket is created

	Keys objectkey.Generator
}

// Backend is an S3-compatible implementation of the visitcontent.AssetStore interface
type Backend struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	config   Config
	keys     objectkey.Generator
}

var _ visitcontent.AssetStore = (*Backend)(nil)

// New creates a new S3-compatible storage backend
func New(config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}
	if config.EnableSSE {
		switch config.SSEAlgorithm {
		case "AES256", "aws:kms":
		default:
			return nil, fmt.Errorf("invalid SSE algorithm %q", config.SSEAlgorithm)
		}
	}

	var awsCfg aws.Config
	var err error
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}
	client := s3.NewFromConfig(awsCfg, s3Options...)

	keys := config.Keys
	if keys == nil {
		prefix := config.Prefix
		if prefix == "" {
			prefix = objectkey.DefaultPrefix
		}
		keys = objectkey.NewTimestampGenerator(prefix)
	}

	backend := &Backend{
		client: client,
		// Images are capped well below one part, so every upload is a
		// single conditional PutObject.
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = visitcontent.MaxImageSize + manager.MinUploadPartSize
			u.Concurrency = 1
		}),
		bucket: config.Bucket,
		config: config,
		keys:   keys,
	}

	if config.CreateBucketIfNotExist {
		if err := backend.createBucketIfNotExists(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return backend, nil
}

// createBucketIfNotExists creates the bucket if it doesn't exist
func (b *Backend) createBucketIfNotExists(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucket),
	})
	if err == nil {
		return nil
	}

	// MinIO reports a missing bucket in several shapes.
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) &&
		!strings.Contains(err.Error(), "BadRequest") &&
		!strings.Contains(err.Error(), "NoSuchBucket") {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	createInput := &s3.CreateBucketInput{
		Bucket: aws.String(b.bucket),
	}
	if b.config.Region != "us-east-1" {
		createInput.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.config.Region),
		}
	}

	_, err = b.client.CreateBucket(ctx, createInput)
	if err != nil {
		if strings.Contains(err.Error(), "BucketAlreadyExists") ||
			strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	if b.config.PublicRead {
		_, err = b.client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
			Bucket: aws.String(b.bucket),
			Policy: aws.String(PublicReadPolicy(b.bucket)),
		})
		if err != nil {
			return fmt.Errorf("failed to set public read policy: %w", err)
		}
	}

	return nil
}

// PublicReadPolicy is a bucket policy granting anonymous GetObject.
func PublicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}

// Store uploads the asset under a fresh key. If-None-Match: * makes the
// bucket refuse a write to a key that already exists.
func (b *Backend) Store(ctx context.Context, asset visitcontent.AssetFile) (string, error) {
	key, err := b.keys.GenerateKey(&objectkey.KeyMetadata{FileName: asset.Name, ContentType: asset.ContentType})
	if err != nil {
		return "", &visitcontent.UploadError{Backend: backendName, Err: err}
	}

	input := b.putObjectInput(key, asset)
	if _, err := b.uploader.Upload(ctx, input); err != nil {
		return "", &visitcontent.UploadError{Backend: backendName, Key: key, Err: describe(err)}
	}
	return b.URL(key), nil
}

func (b *Backend) putObjectInput(key string, asset visitcontent.AssetFile) *s3.PutObjectInput {
	contentType := asset.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	input := &s3.PutObjectInput{
		Bucket:       aws.String(b.bucket),
		Key:          aws.String(key),
		Body:         asset.Body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(visitcontent.AssetCacheControl),
		IfNoneMatch:  aws.String("*"),
	}
	if asset.Size > 0 {
		input.ContentLength = aws.Int64(asset.Size)
	}

	if b.config.EnableSSE {
		switch b.config.SSEAlgorithm {
		case "AES256":
			input.ServerSideEncryption = types.ServerSideEncryptionAes256
		case "aws:kms":
			input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
			if b.config.SSEKMSKeyID != "" {
				input.SSEKMSKeyId = aws.String(b.config.SSEKMSKeyID)
			}
		}
	}
	return input
}

// describe keeps the remote error code and message so the operator sees
// what the bucket said.
func describe(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s: %w", apiErr.ErrorCode(), apiErr.ErrorMessage(), err)
	}
	return err
}

// URL returns the public address of key.
func (b *Backend) URL(key string) string {
	if b.config.PublicBaseURL != "" {
		return strings.TrimRight(b.config.PublicBaseURL, "/") + "/" + key
	}
	if b.config.Endpoint != "" {
		base := strings.TrimRight(b.config.Endpoint, "/")
		if b.config.UsePathStyle {
			return base + "/" + b.bucket + "/" + key
		}
		if u, err := url.Parse(base); err == nil && u.Host != "" {
			u.Host = b.bucket + "." + u.Host
			u.Path = "/" + key
			return u.String()
		}
		return base + "/" + b.bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.bucket, b.config.Region, key)
}
