// Package storage archives bundle documents to S3-compatible object
// storage. It is optional infrastructure: unconfigured deployments get a
// disabled service whose operations fail fast, and the archiver above it
// treats that as a no-op.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/fx"

	"github.com/stixgraph/stixgraph/internal/config"
	"github.com/stixgraph/stixgraph/pkg/logger"
)

var Module = fx.Module("storage",
	fx.Provide(NewService),
)

// Service holds the S3 client for the archive bucket. A nil client means
// storage was not configured.
type Service struct {
	client *s3.Client
	log    *slog.Logger
	bucket string
}

// UploadOptions carries optional object attributes for an upload.
type UploadOptions struct {
	ContentType string
	Metadata    map[string]string
}

// UploadResult reports what was written.
type UploadResult struct {
	Key  string
	ETag string
	Size int64
}

// NewService builds the storage service from config. Missing endpoint or
// credentials disable it rather than failing startup.
func NewService(cfg *config.Config, log *slog.Logger) (*Service, error) {
	scoped := log.With(logger.Scope("storage"))

	if !cfg.Storage.IsConfigured() {
		scoped.Info("storage service disabled - no configuration provided")
		return &Service{log: scoped}, nil
	}

	client, err := newS3Client(cfg.Storage)
	if err != nil {
		return nil, err
	}

	scoped.Info("storage service initialized",
		slog.String("endpoint", cfg.Storage.Endpoint),
		slog.String("bucket", cfg.Storage.Bucket),
	)

	return &Service{
		client: client,
		log:    scoped,
		bucket: cfg.Storage.Bucket,
	}, nil
}

// newS3Client wires static credentials and a fixed endpoint. Path-style
// addressing is forced; MinIO and most self-hosted S3 servers require it.
func newS3Client(cfg config.StorageConfig) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.Endpoint,
				HostnameImmutable: true,
				SigningRegion:     cfg.Region,
			}, nil
		},
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

// Enabled reports whether the service has a configured client.
func (s *Service) Enabled() bool {
	return s.client != nil
}

// Upload writes data under key in the archive bucket.
func (s *Service) Upload(ctx context.Context, key string, data io.Reader, size int64, opts UploadOptions) (*UploadResult, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("object storage not configured")
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          data,
		ContentLength: aws.Int64(size),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		s.log.Error("object upload failed",
			slog.String("key", key),
			logger.Error(err),
		)
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	s.log.Debug("object stored",
		slog.String("key", key),
		slog.String("bucket", s.bucket),
		slog.Int64("size", size),
	)

	return &UploadResult{
		Key:  key,
		ETag: strings.Trim(aws.ToString(out.ETag), `"`),
		Size: size,
	}, nil
}

// ArchiveKey is the bucket key for an archived bundle version:
// bundles/{sanitized_version}.json
func ArchiveKey(version string) string {
	return fmt.Sprintf("bundles/%s.json", SanitizeVersion(version))
}

var (
	unsafeKeyChars      = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	collapseUnderscores = regexp.MustCompile(`_{2,}`)
)

// SanitizeVersion rewrites a version string into a safe key segment.
// Unsafe runs become single underscores; a version with nothing left
// maps to "unversioned". Output is capped at 200 characters.
func SanitizeVersion(version string) string {
	s := unsafeKeyChars.ReplaceAllString(version, "_")
	s = collapseUnderscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")

	if len(s) > 200 {
		s = s[:200]
	}
	if s == "" {
		return "unversioned"
	}
	return s
}
