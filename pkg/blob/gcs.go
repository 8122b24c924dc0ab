package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GCSStore is a Store backed by Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
	cfg    Config
	logger *zap.Logger
}

// NewGCSStore creates a GCS store. CredentialsFile selects a service
// account key; Endpoint points the client at an emulator.
func NewGCSStore(ctx context.Context, cfg Config, logger *zap.Logger) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	return &GCSStore{client: client, cfg: cfg, logger: logger.Named("gcs")}, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// Put implements Store.
func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Object, error) {
	fullKey := s.cfg.fullKey(key)

	writer := s.client.Bucket(s.cfg.Bucket).Object(fullKey).NewWriter(ctx)
	writer.ContentType = opts.ContentType
	if len(opts.Metadata) > 0 {
		writer.Metadata = opts.Metadata
	}

	written, err := io.Copy(writer, r)
	if err != nil {
		_ = writer.Close()
		return Object{}, fmt.Errorf("failed to upload object %s to GCS: %w", fullKey, err)
	}
	if err := writer.Close(); err != nil {
		return Object{}, fmt.Errorf("failed to close GCS writer for %s: %w", fullKey, err)
	}
	s.logger.Debug("uploaded object", zap.String("key", fullKey), zap.Int64("size", written))

	objectURL, err := s.url(fullKey)
	if err != nil {
		return Object{}, err
	}
	return Object{Key: key, URL: objectURL, Size: written, ContentType: opts.ContentType}, nil
}

// Delete implements Store.
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.cfg.Bucket).Object(s.cfg.fullKey(key)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete from GCS: %w", err)
	}
	return nil
}

// SignedURL implements Store.
func (s *GCSStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.sign(s.cfg.fullKey(key), ttl)
}

func (s *GCSStore) url(fullKey string) (string, error) {
	if s.cfg.Public {
		return s.publicURL(fullKey), nil
	}
	return s.sign(fullKey, s.cfg.signedURLTTL())
}

func (s *GCSStore) sign(fullKey string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.cfg.signedURLTTL()
	}
	signed, err := s.client.Bucket(s.cfg.Bucket).SignedURL(fullKey, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(ttl),
		Scheme:  storage.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign GCS URL: %w", err)
	}
	return signed, nil
}

func (s *GCSStore) publicURL(fullKey string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.cfg.Bucket, (&url.URL{Path: fullKey}).EscapedPath())
}
