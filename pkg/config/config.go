package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/narwhalmedia/gallery/pkg/auth"
	"github.com/narwhalmedia/gallery/pkg/blob"
	"github.com/narwhalmedia/gallery/pkg/database"
	"github.com/narwhalmedia/gallery/pkg/events"
	"github.com/narwhalmedia/gallery/pkg/logger"
	"github.com/narwhalmedia/gallery/pkg/pagination"
	"github.com/narwhalmedia/gallery/pkg/transaction"
)

// Config is the interface that all service configs must implement.
type Config interface {
	Validate() error
}

// BaseConfig contains common configuration for all services.
type BaseConfig struct {
	Service    ServiceConfig    `koanf:"service"`
	Database   database.Config  `koanf:"database"`
	Logger     logger.Config    `koanf:"logger"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Auth       auth.Config      `koanf:"auth"`
	Pagination PaginationConfig `koanf:"pagination"`
}

// ServiceConfig contains service-specific metadata.
type ServiceConfig struct {
	Name        string `koanf:"name" validate:"required"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // dev, staging, production
	Port        int    `koanf:"port" validate:"min=1,max=65535"`
	GRPCPort    int    `koanf:"grpc_port" validate:"min=0,max=65535"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// PaginationConfig contains pagination configuration.
type PaginationConfig struct {
	// CursorEncryptionKey switches cursors from plain base64 to AES-GCM.
	CursorEncryptionKey string `koanf:"cursor_encryption_key" validate:"omitempty,len=16|len=24|len=32"`
}

// Codec returns the cursor codec for this configuration.
func (c PaginationConfig) Codec() (pagination.Codec, error) {
	return pagination.NewCodec(c.CursorEncryptionKey)
}

// HTTPConfig contains HTTP server settings.
type HTTPConfig struct {
	MaxUploadSize   int64         `koanf:"max_upload_size" validate:"min=1"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// MaxRequestBody bounds a multipart request: the upload plus its form fields.
func (c HTTPConfig) MaxRequestBody() int64 {
	return c.MaxUploadSize + multipartOverhead
}

// GalleryConfig is the configuration of the gallery service.
type GalleryConfig struct {
	BaseConfig  `koanf:",squash"`
	Transaction transaction.Config `koanf:"transaction"`
	Storage     blob.Config        `koanf:"storage"`
	Events      events.Config      `koanf:"events"`
	HTTP        HTTPConfig         `koanf:"http"`
}

// Validate validates the gallery configuration.
func (c *GalleryConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.Transaction.Options(); err != nil {
		return fmt.Errorf("transaction: %w", err)
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		return errors.New("database path is required for the sqlite driver")
	}
	return nil
}

// DefaultGalleryConfig returns default configuration values.
func DefaultGalleryConfig() *GalleryConfig {
	return &GalleryConfig{
		BaseConfig: BaseConfig{
			Service: ServiceConfig{
				Name:        "gallery",
				Environment: "dev",
				Port:        DefaultHTTPPort,
				GRPCPort:    DefaultGRPCPort,
			},
			Database: database.DefaultConfig(),
			Logger:   *logger.DefaultConfig(),
			Metrics:  MetricsConfig{Enabled: true, Path: "/metrics"},
			Auth:     auth.DefaultConfig(),
		},
		Transaction: transaction.Config{
			Isolation: "read_committed",
			Timeout:   transaction.DefaultTimeout,
			MaxWait:   transaction.DefaultMaxWait,
		},
		Storage: blob.Config{
			Driver:       blob.DriverMemory,
			Region:       "us-east-1",
			Public:       true,
			SignedURLTTL: blob.DefaultSignedURLTTL,
		},
		Events: events.DefaultConfig(),
		HTTP: HTTPConfig{
			MaxUploadSize:   DefaultMaxUploadSize,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Manager handles configuration loading and parsing.
type Manager struct {
	k           *koanf.Koanf
	serviceName string
	configPaths []string
	overrides   map[string]interface{}
}

// NewManager creates a new configuration manager.
func NewManager(serviceName string) *Manager {
	return &Manager{
		k:           koanf.New("."),
		serviceName: serviceName,
		configPaths: getDefaultConfigPaths(serviceName),
	}
}

// WithConfigPaths replaces the files searched for configuration.
func (m *Manager) WithConfigPaths(paths ...string) *Manager {
	m.configPaths = paths
	return m
}

// WithOverrides sets values applied after every other source, keyed by
// dotted path, e.g. "database.host".
func (m *Manager) WithOverrides(values map[string]interface{}) *Manager {
	m.overrides = values
	return m
}

// LoadConfig loads configuration from all sources into cfg. Values already
// in cfg act as defaults.
func (m *Manager) LoadConfig(cfg Config) error {
	// 1. Config files, in order of precedence
	for _, path := range m.configPaths {
		if err := m.loadFromFile(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to load config from %s: %w", path, err)
			}
		}
	}

	// 2. Environment variables
	if url := os.Getenv(legacyAuthURLEnv); url != "" {
		if err := m.k.Set("auth.url", url); err != nil {
			return fmt.Errorf("failed to apply %s: %w", legacyAuthURLEnv, err)
		}
	}
	if err := m.loadFromEnv(keyPaths(reflect.TypeOf(cfg), "")); err != nil {
		return fmt.Errorf("failed to load from environment: %w", err)
	}

	// 3. Explicit overrides
	if len(m.overrides) > 0 {
		if err := m.k.Load(confmap.Provider(m.overrides, "."), nil); err != nil {
			return fmt.Errorf("failed to load overrides: %w", err)
		}
	}

	if err := m.k.Unmarshal("", cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// Get returns a value for the given key.
func (m *Manager) Get(key string) interface{} {
	return m.k.Get(key)
}

// GetString returns a string value for the given key.
func (m *Manager) GetString(key string) string {
	return m.k.String(key)
}

func (m *Manager) loadFromFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	var parser koanf.Parser
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	return m.k.Load(file.Provider(path), parser)
}

// loadFromEnv maps GALLERY_EVENTS_NATS_URL to events.nats.url by matching
// against the known keys; unknown names split at the first underscore.
func (m *Manager) loadFromEnv(known map[string]string) error {
	prefix := strings.ToUpper(m.serviceName) + "_"

	return m.k.Load(env.Provider(prefix, ".", func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, prefix))
		if key, ok := known[name]; ok {
			return key
		}
		return strings.Replace(name, "_", ".", 1)
	}), nil)
}

// keyPaths returns every koanf key of t indexed by its env form.
func keyPaths(t reflect.Type, prefix string) map[string]string {
	out := make(map[string]string)
	collectKeys(t, prefix, out)
	return out
}

func collectKeys(t reflect.Type, prefix string, out map[string]string) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		if strings.HasSuffix(tag, ",squash") {
			collectKeys(f.Type, prefix, out)
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		ft := f.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft != reflect.TypeOf(time.Time{}) {
			collectKeys(ft, key, out)
			continue
		}
		out[strings.ReplaceAll(key, ".", "_")] = key
	}
}

func getDefaultConfigPaths(serviceName string) []string {
	paths := []string{
		"config.yaml",
		"config.json",
		fmt.Sprintf("%s.yaml", serviceName),
		fmt.Sprintf("configs/%s.yaml", serviceName),
		fmt.Sprintf("configs/%s.json", serviceName),
		fmt.Sprintf("configs/%s.%s.yaml", serviceName, getEnvironment()),
	}

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		paths = append([]string{configPath}, paths...)
	}

	return paths
}

func getEnvironment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return "dev"
}

// Load reads the gallery configuration on top of the defaults.
func Load() (*GalleryConfig, error) {
	cfg := DefaultGalleryConfig()
	if err := NewManager(cfg.Service.Name).LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction returns true if running in production environment
func (c ServiceConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// ListenAddress returns the HTTP listen address.
func (c ServiceConfig) ListenAddress() string {
	return fmt.Sprintf(":%d", c.Port)
}

// GRPCListenAddress returns the gRPC listen address.
func (c ServiceConfig) GRPCListenAddress() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
