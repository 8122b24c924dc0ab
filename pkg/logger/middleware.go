package logger

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/narwhalmedia/gallery/pkg/interfaces"
)

// UnaryServerInterceptor returns a gRPC unary server interceptor for logging
func UnaryServerInterceptor(logger interfaces.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		ctx = WithContext(ctx, logger)

		resp, err := handler(ctx, req)

		code := codes.OK
		if err != nil {
			code = status.Code(err)
		}

		log := logger.WithContext(ctx)
		fields := []interfaces.Field{
			interfaces.String("method", info.FullMethod),
			interfaces.Int64("duration_ms", time.Since(start).Milliseconds()),
			interfaces.String("status", code.String()),
		}
		if err != nil {
			log.Error("gRPC request failed", append(fields, interfaces.Error(err))...)
		} else {
			log.Debug("gRPC request completed", fields...)
		}

		return resp, err
	}
}

// StreamServerInterceptor returns a gRPC stream server interceptor for logging
func StreamServerInterceptor(logger interfaces.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		wrapped := &wrappedServerStream{
			ServerStream: ss,
			ctx:          WithContext(ss.Context(), logger),
		}

		err := handler(srv, wrapped)

		fields := []interfaces.Field{
			interfaces.String("method", info.FullMethod),
			interfaces.Int64("duration_ms", time.Since(start).Milliseconds()),
			interfaces.String("status", status.Code(err).String()),
		}
		if err != nil {
			logger.Error("gRPC stream failed", append(fields, interfaces.Error(err))...)
		} else {
			logger.Debug("gRPC stream completed", fields...)
		}

		return err
	}
}

type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// GinMiddleware stores logger in the request context and logs every request
// once it has been served.
func GinMiddleware(logger interfaces.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), logger))

		c.Next()

		fields := []interfaces.Field{
			interfaces.String("method", c.Request.Method),
			interfaces.String("path", c.FullPath()),
			interfaces.Int("status", c.Writer.Status()),
			interfaces.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		log := logger.WithContext(c.Request.Context())
		switch {
		case len(c.Errors) > 0:
			log.Error("HTTP request failed", append(fields, interfaces.String("errors", c.Errors.String()))...)
		case c.Writer.Status() >= 500:
			log.Error("HTTP request failed", fields...)
		default:
			log.Info("HTTP request completed", fields...)
		}
	}
}
