//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biasmeter/internal/platform/config"
	redisclient "biasmeter/internal/platform/redis"
	"biasmeter/pkg/testutil/containers"
)

func TestNewConnectsAndReportsHealthy(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)

	ctx := context.Background()
	client, err := redisclient.New(ctx, config.RedisConfig{
		URL:         rc.URL,
		PoolSize:    4,
		DialTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, client.Health(ctx))
	assert.Equal(t, 4, client.Options().PoolSize)
}
