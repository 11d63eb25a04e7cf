package server

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/AlexMickh/exoterra-chat/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestServer_Check(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		checks   map[string]Check
		service  string
		want     grpc_health_v1.HealthCheckResponse_ServingStatus
		wantCode codes.Code
	}{
		{
			name:    "all up",
			checks:  map[string]Check{"db": up, "redis": up},
			service: "",
			want:    grpc_health_v1.HealthCheckResponse_SERVING,
		},
		{
			name:    "one down",
			checks:  map[string]Check{"db": up, "redis": down},
			service: "",
			want:    grpc_health_v1.HealthCheckResponse_NOT_SERVING,
		},
		{
			name:    "asked for the healthy one",
			checks:  map[string]Check{"db": up, "redis": down},
			service: "db",
			want:    grpc_health_v1.HealthCheckResponse_SERVING,
		},
		{
			name:    "asked for the broken one",
			checks:  map[string]Check{"db": up, "redis": down},
			service: "redis",
			want:    grpc_health_v1.HealthCheckResponse_NOT_SERVING,
		},
		{
			name:     "unknown",
			checks:   map[string]Check{"db": up},
			service:  "kafka",
			wantCode: codes.NotFound,
		},
		{
			name:    "nothing to check",
			service: "",
			want:    grpc_health_v1.HealthCheckResponse_SERVING,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.checks)

			resp, err := s.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: tt.service})
			if tt.wantCode != codes.OK {
				assert.Equal(t, tt.wantCode, status.Code(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.GetStatus())
		})
	}
}

func TestServer_OverGRPC(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(grpc.UnaryInterceptor(logger.Interceptor(logger.Nop(context.Background()))))
	Register(gs, New(map[string]Check{"db": func(context.Context) error { return nil }}))
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}
