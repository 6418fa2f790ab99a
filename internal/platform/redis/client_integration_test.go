//go:build integration

package redis_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"agentconsent/internal/platform/config"
	"agentconsent/internal/platform/redis"
	"agentconsent/pkg/testutil/containers"
)

func TestClientConnectsAndRecordsStats(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()

	client, err := redis.New(ctx, config.RedisConfig{URL: rc.URL, PoolSize: 4}, prometheus.NewRegistry())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Health(ctx))
	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	client.RecordPoolStats()
	client.RecordPoolStats()
}

func TestNewWithoutURLIsDisabled(t *testing.T) {
	client, err := redis.New(context.Background(), config.RedisConfig{}, prometheus.NewRegistry())
	require.NoError(t, err)
	require.Nil(t, client)
}
