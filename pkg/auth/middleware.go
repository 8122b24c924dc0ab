package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/narwhalmedia/gallery/pkg/identity"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
)

// ContextKeyActorID is the gin context key holding the resolved actor id.
const ContextKeyActorID = "actor_id"

// GinMiddleware authenticates the request and binds the resolved identity to
// the request context for the rest of the handler chain.
func GinMiddleware(resolver Resolver, logger interfaces.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		creds := Credentials{
			Authorization: c.GetHeader(headerAuthorization),
			Cookie:        c.GetHeader(headerCookie),
		}
		if creds.Empty() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No authentication credentials provided"})
			return
		}

		ctx := c.Request.Context()
		id, err := resolver.Resolve(ctx, creds)
		if err != nil {
			logger.WithContext(ctx).Warn("authentication failed", interfaces.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication failed"})
			return
		}

		c.Request = c.Request.WithContext(identity.WithIdentity(ctx, id))
		c.Set(ContextKeyActorID, id.ActorID)
		c.Next()
	}
}

// Interceptor authenticates gRPC calls with the same resolver as HTTP.
type Interceptor struct {
	resolver Resolver
	skip     map[string]bool
}

// NewInterceptor creates an interceptor. Methods listed in skip are served
// without credentials.
func NewInterceptor(resolver Resolver, skip ...string) *Interceptor {
	m := make(map[string]bool, len(skip))
	for _, method := range skip {
		m[method] = true
	}
	return &Interceptor{resolver: resolver, skip: m}
}

// UnaryServerInterceptor returns a gRPC unary interceptor for authentication
func (a *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if a.skip[info.FullMethod] {
			return handler(ctx, req)
		}
		newCtx, err := a.authenticate(ctx)
		if err != nil {
			return nil, err
		}
		return handler(newCtx, req)
	}
}

// StreamServerInterceptor returns a gRPC stream interceptor for authentication
func (a *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if a.skip[info.FullMethod] {
			return handler(srv, stream)
		}
		newCtx, err := a.authenticate(stream.Context())
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: stream, ctx: newCtx})
	}
}

func (a *Interceptor) authenticate(ctx context.Context) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	creds := Credentials{
		Authorization: first(md.Get("authorization")),
		Cookie:        first(md.Get("cookie")),
	}

	id, err := a.resolver.Resolve(ctx, creds)
	if err != nil {
		if errors.Is(err, ErrNoCredentials) {
			return nil, status.Error(codes.Unauthenticated, "authorization token not provided")
		}
		return nil, status.Errorf(codes.Unauthenticated, "invalid credentials: %v", err)
	}
	return identity.WithIdentity(ctx, id), nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// wrappedServerStream wraps a grpc.ServerStream with a custom context
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
