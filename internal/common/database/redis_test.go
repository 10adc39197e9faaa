package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-assistant/internal/common/config"
)

func TestNewRedis_EmptyAddress(t *testing.T) {
	client, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestRedis_PingAndClose(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestRedis_CloseNilClient(t *testing.T) {
	assert.NoError(t, (&RedisClient{}).Close())
}
