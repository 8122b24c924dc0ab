package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Store is a Store backed by AWS S3 or an S3 compatible service.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	cfg     Config
	logger  *zap.Logger
}

// NewS3Store creates an S3 store. Static credentials are used when set,
// the default AWS credential chain otherwise.
func NewS3Store(ctx context.Context, cfg Config, logger *zap.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		cfg:     cfg,
		logger:  logger.Named("s3"),
	}, nil
}

// Put implements Store.
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Object, error) {
	fullKey := s.cfg.fullKey(key)
	body, size, err := seekable(r)
	if err != nil {
		return Object{}, err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(fullKey),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return Object{}, fmt.Errorf("failed to upload to S3: %w", err)
	}
	s.logger.Debug("uploaded object", zap.String("key", fullKey), zap.Int64("size", size))

	objectURL, err := s.url(ctx, fullKey)
	if err != nil {
		return Object{}, err
	}
	return Object{Key: key, URL: objectURL, Size: size, ContentType: opts.ContentType}, nil
}

// Delete implements Store.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.cfg.fullKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// SignedURL implements Store.
func (s *S3Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.presignGet(ctx, s.cfg.fullKey(key), ttl)
}

func (s *S3Store) url(ctx context.Context, fullKey string) (string, error) {
	if s.cfg.Public {
		return s.publicURL(fullKey), nil
	}
	return s.presignGet(ctx, fullKey, s.cfg.signedURLTTL())
}

func (s *S3Store) presignGet(ctx context.Context, fullKey string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.cfg.signedURLTTL()
	}
	out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(fullKey),
	}, func(po *s3.PresignOptions) { po.Expires = ttl })
	if err != nil {
		return "", fmt.Errorf("failed to presign S3 URL: %w", err)
	}
	return out.URL, nil
}

func (s *S3Store) publicURL(fullKey string) string {
	escaped := (&url.URL{Path: fullKey}).EscapedPath()
	if s.cfg.Endpoint != "" {
		base := strings.TrimRight(s.cfg.Endpoint, "/")
		return fmt.Sprintf("%s/%s/%s", base, s.cfg.Bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, escaped)
}
