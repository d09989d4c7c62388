package realtime

import (
	"context"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

//nolint:gochecknoglobals
var (
	redisOnce   sync.Once
	redisClient *redis.Client
	redisErr    error
)

// requireRedis starts one Redis container per test binary and skips when
// Docker is not available.
func requireRedis(t *testing.T) *redis.Client {
	t.Helper()

	redisOnce.Do(func() {
		ctx := context.Background()

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections"),
			},
			Started: true,
		})
		if err != nil {
			redisErr = err
			return
		}

		addr, err := container.PortEndpoint(ctx, "6379/tcp", "")
		if err != nil {
			redisErr = err
			return
		}

		redisClient = redis.NewClient(&redis.Options{Addr: addr})
	})

	if redisErr != nil {
		t.Skipf("redis is not available: %v", redisErr)
	}

	return redisClient
}
