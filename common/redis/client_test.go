package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionassist/common/config"
)

func TestNewRedisClient_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	client := NewRedisClient(&config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, Ping(context.Background(), client))
	require.NoError(t, Close(client))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	client := NewRedisClient(&config.RedisConfig{Addr: "127.0.0.1:1"})
	defer Close(client)
	assert.Error(t, Ping(context.Background(), client))
}
