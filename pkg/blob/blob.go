// Package blob stores photo binaries in an object store.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// Driver names a Store implementation.
type Driver string

const (
	DriverS3     Driver = "s3"
	DriverGCS    Driver = "gcs"
	DriverMemory Driver = "memory"
)

// DefaultSignedURLTTL is used when the configuration leaves it unset.
const DefaultSignedURLTTL = 24 * time.Hour

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("blob: object not found")

// PutOptions describes an upload.
type PutOptions struct {
	ContentType string
	Size        int64
	Metadata    map[string]string
}

// Object describes a stored binary.
type Object struct {
	Key         string
	URL         string
	Size        int64
	ContentType string
}

// Store is the object store used by the photo service. It has no
// transactional semantics: a successful Put stays until Delete.
type Store interface {
	// Put uploads r under key and returns the object with the URL clients
	// should use: the public URL for public buckets, a signed URL otherwise.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Object, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// SignedURL returns a time-limited download URL for key.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Config selects and configures the Store.
type Config struct {
	Driver          Driver        `koanf:"driver" validate:"oneof=s3 gcs memory"`
	Bucket          string        `koanf:"bucket" validate:"required_unless=Driver memory"`
	Prefix          string        `koanf:"prefix"`
	Region          string        `koanf:"region"`
	Endpoint        string        `koanf:"endpoint"`
	PathStyle       bool          `koanf:"path_style"`
	AccessKeyID     string        `koanf:"access_key_id"`
	SecretAccessKey string        `koanf:"secret_access_key"`
	CredentialsFile string        `koanf:"credentials_file"`
	Public          bool          `koanf:"public"`
	SignedURLTTL    time.Duration `koanf:"signed_url_ttl"`
}

// New builds the Store selected by cfg.Driver.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case DriverS3:
		return NewS3Store(ctx, cfg, logger)
	case DriverGCS:
		return NewGCSStore(ctx, cfg, logger)
	case DriverMemory, "":
		return NewMemoryStore(cfg.Bucket, cfg.Public), nil
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.Driver)
	}
}

func (c Config) signedURLTTL() time.Duration {
	if c.SignedURLTTL > 0 {
		return c.SignedURLTTL
	}
	return DefaultSignedURLTTL
}

func (c Config) fullKey(key string) string {
	if c.Prefix == "" {
		return key
	}
	return c.Prefix + "/" + key
}

// seekable returns r as an io.ReadSeeker, buffering it when needed, along
// with its size.
func seekable(r io.Reader) (io.ReadSeeker, int64, error) {
	if br, ok := r.(*bytes.Reader); ok {
		return br, br.Size(), nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("read upload: %w", err)
	}
	return bytes.NewReader(data), int64(len(data)), nil
}
