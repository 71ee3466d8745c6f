package store

import (
	"context"
	"testing"
	"time"

	"github.com/dshuvalov/jumper-challenge/core"
	"github.com/dshuvalov/jumper-challenge/siwe"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(connStr)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestRedisStore(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()
	s := NewRedisStore(client)

	require.NoError(t, s.Ping(ctx))

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	addr := common.HexToAddress("0x742d35cc6634c0532925a3b844bc454e4438f44e")
	session := &core.Session{
		WalletAddress: addr.Hex(),
		SIWE: &siwe.Message{
			Domain:   "localhost:3000",
			Address:  addr,
			URI:      "http://localhost:3000",
			Version:  siwe.Version,
			ChainID:  1,
			Nonce:    "abc123",
			IssuedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Set(ctx, "id-1", session, time.Minute))

	got, err := s.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, addr.Hex(), got.WalletAddress)
	require.NotNil(t, got.SIWE)
	assert.Equal(t, addr, got.SIWE.Address)
	assert.Equal(t, "abc123", got.SIWE.Nonce)

	ttl, err := client.TTL(ctx, DefaultRedisPrefix+"id-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, s.Delete(ctx, "id-1"))
	_, err = s.Get(ctx, "id-1")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestRedisStore_Expiry(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()
	s := NewRedisStore(client)

	require.NoError(t, s.Set(ctx, "short", &core.Session{Nonce: "abc123"}, time.Second))

	require.Eventually(t, func() bool {
		_, err := s.Get(ctx, "short")
		return err == core.ErrSessionNotFound
	}, 5*time.Second, 100*time.Millisecond)
}
