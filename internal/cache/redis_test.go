package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	t.Run("host and port", func(t *testing.T) {
		client := Connect(context.Background(), mr.Addr())
		require.NotNil(t, client)
		defer func() { _ = client.Close() }()
		assert.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
		got, err := mr.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "v", got)
	})

	t.Run("url form", func(t *testing.T) {
		client := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
		require.NotNil(t, client)
		_ = client.Close()
	})

	t.Run("empty address disables redis", func(t *testing.T) {
		assert.Nil(t, Connect(context.Background(), ""))
	})

	t.Run("unreachable server disables redis", func(t *testing.T) {
		assert.Nil(t, Connect(context.Background(), "127.0.0.1:1"))
	})

	t.Run("malformed url disables redis", func(t *testing.T) {
		assert.Nil(t, Connect(context.Background(), "redis://%zz"))
	})
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "inkwell:rl:login:ip:10.0.0.1", RateLimitKey("login", "ip:10.0.0.1"))
}
