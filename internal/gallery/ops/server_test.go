package ops_test

import (
	"context"
	stderrors "errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/narwhalmedia/gallery/internal/gallery/ops"
	"github.com/narwhalmedia/gallery/pkg/auth"
	"github.com/narwhalmedia/gallery/pkg/logger"
)

func startServer(t *testing.T, srv *ops.Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.GRPC().Serve(lis) }()
	t.Cleanup(srv.Shutdown)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func TestHealth_FollowsChecks(t *testing.T) {
	var failing atomic.Bool
	check := func(context.Context) error {
		if failing.Load() {
			return stderrors.New("database unreachable")
		}
		return nil
	}
	resolver := auth.NewJWTManager("secret-secret-secret-secret-secret", "gallery", time.Minute)
	srv := ops.NewServer(resolver, logger.NewNoop(), check)
	client := startServer(t, srv)
	ctx := context.Background()

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, srv.Refresh(ctx))
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ops.ServiceName})
	require.NoError(t, err, "health checks need no credentials")
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	failing.Store(true)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, srv.Refresh(ctx))
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
