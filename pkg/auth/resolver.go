package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/narwhalmedia/gallery/pkg/identity"
)

// ErrNoCredentials is returned when a request carries neither an
// Authorization nor a Cookie header.
var ErrNoCredentials = errors.New("no authentication credentials provided")

// ErrInvalidIdentity is returned when the authenticator does not name a user.
var ErrInvalidIdentity = errors.New("invalid user information")

// Credentials are the raw authentication headers of an inbound request.
type Credentials struct {
	Authorization string
	Cookie        string
}

// Empty reports whether no credential was supplied.
func (c Credentials) Empty() bool {
	return strings.TrimSpace(c.Authorization) == "" && strings.TrimSpace(c.Cookie) == ""
}

// BearerToken returns the token of a "Bearer" Authorization header.
func (c Credentials) BearerToken() string {
	token := strings.TrimSpace(c.Authorization)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}

// Resolver turns request credentials into the acting user.
type Resolver interface {
	Resolve(ctx context.Context, creds Credentials) (identity.Identity, error)
}

// Modes of Config.
const (
	ModeJWT    = "jwt"
	ModeRemote = "remote"
)

// Config selects and configures the Resolver.
type Config struct {
	Mode      string        `koanf:"mode" validate:"oneof=jwt remote"`
	URL       string        `koanf:"url" validate:"required_if=Mode remote"`
	Timeout   time.Duration `koanf:"timeout"`
	JWTSecret string        `koanf:"jwt_secret" validate:"required_if=Mode jwt"`
	Issuer    string        `koanf:"issuer"`
	AccessTTL time.Duration `koanf:"access_ttl"`
}

// DefaultConfig returns the remote user-service configuration.
func DefaultConfig() Config {
	return Config{
		Mode:      ModeRemote,
		URL:       "http://localhost:3000/auth/me",
		Timeout:   DefaultRemoteTimeout,
		Issuer:    "gallery",
		AccessTTL: DefaultAccessTTL,
	}
}

// NewResolver builds the Resolver selected by cfg.Mode.
func NewResolver(cfg Config, logger *zap.Logger) (Resolver, error) {
	switch cfg.Mode {
	case ModeJWT:
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("jwt secret required")
		}
		return NewJWTManager(cfg.JWTSecret, cfg.Issuer, cfg.AccessTTL), nil
	case ModeRemote, "":
		if cfg.URL == "" {
			return nil, fmt.Errorf("auth url required")
		}
		return NewRemoteResolver(cfg.URL, cfg.Timeout, logger), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}
