package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/narwhalmedia/gallery/pkg/identity"
)

// RemoteResolver asks the user service who the caller is. The request
// forwards the caller's Authorization and Cookie headers; the response must
// be a JSON user object with an "id".
type RemoteResolver struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewRemoteResolver creates a resolver for the user service at url.
func NewRemoteResolver(url string, timeout time.Duration, logger *zap.Logger) *RemoteResolver {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteResolver{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("auth"),
	}
}

type remoteUser struct {
	ID interface{} `json:"id"`
}

// Resolve implements Resolver.
func (r *RemoteResolver) Resolve(ctx context.Context, creds Credentials) (identity.Identity, error) {
	if creds.Empty() {
		return identity.Identity{}, ErrNoCredentials
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("build user service request: %w", err)
	}
	if creds.Authorization != "" {
		req.Header.Set(headerAuthorization, creds.Authorization)
	}
	if creds.Cookie != "" {
		req.Header.Set(headerCookie, creds.Cookie)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("Error validating user with user-service", zap.Error(err))
		return identity.Identity{}, fmt.Errorf("call user service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		r.logger.Error("Error validating user with user-service", zap.Int("status", resp.StatusCode))
		return identity.Identity{}, fmt.Errorf("user service returned status %d", resp.StatusCode)
	}

	var user remoteUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return identity.Identity{}, fmt.Errorf("decode user service response: %w", err)
	}

	id := identity.Identity{ActorID: idString(user.ID)}
	if id.IsZero() {
		return identity.Identity{}, ErrInvalidIdentity
	}
	return id, nil
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}
