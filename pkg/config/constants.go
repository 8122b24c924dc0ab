package config

import "time"

const (
	// Server ports.
	DefaultHTTPPort = 8080
	DefaultGRPCPort = 9090

	// Upload limits.
	DefaultMaxUploadSize = 10 << 20
	multipartOverhead    = 1 << 20

	// HTTP server timeouts.
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	// legacyAuthURLEnv names the user-service endpoint outside the service
	// prefix.
	legacyAuthURLEnv = "AUTH_URL"
)
