package ops

import (
	"context"
	"runtime/debug"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/narwhalmedia/gallery/pkg/interfaces"
)

// UnaryRecoveryInterceptor turns panics in unary handlers into Internal
// errors.
func UnaryRecoveryInterceptor(logger interfaces.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithContext(ctx).Error("panic recovered",
					interfaces.String("method", info.FullMethod),
					interfaces.Any("panic", r),
					interfaces.String("stack", string(debug.Stack())))
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// StreamRecoveryInterceptor turns panics in stream handlers into Internal
// errors.
func StreamRecoveryInterceptor(logger interfaces.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithContext(ss.Context()).Error("panic recovered in stream",
					interfaces.String("method", info.FullMethod),
					interfaces.Any("panic", r),
					interfaces.String("stack", string(debug.Stack())))
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(srv, ss)
	}
}
