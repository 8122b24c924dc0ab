// Package identity carries the acting user along a request's call chain.
//
// The binding lives in a context.Context: whatever is derived from the bound
// context (including goroutines started with it) sees the same actor, while
// unrelated requests never do.
package identity

import (
	"context"
	"strings"
)

// Identity is the user performing the current operation.
type Identity struct {
	ActorID string `json:"actor_id"`
}

// IsZero reports whether the identity carries no actor.
func (i Identity) IsZero() bool {
	return strings.TrimSpace(i.ActorID) == ""
}

type contextKey struct{}

var identityKey = contextKey{}

// WithIdentity returns a context bound to the given identity. The binding is
// visible to everything derived from the returned context. A zero identity
// leaves the parent's binding in place.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if id.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the nearest bound identity, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// ActorID returns the bound actor id or an empty string.
func ActorID(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.ActorID
}

// Run executes fn with id bound for the duration of fn.
func Run(ctx context.Context, id Identity, fn func(ctx context.Context) error) error {
	return fn(WithIdentity(ctx, id))
}

// RunValue is Run for functions that produce a value.
func RunValue[T any](ctx context.Context, id Identity, fn func(ctx context.Context) (T, error)) (T, error) {
	return fn(WithIdentity(ctx, id))
}
