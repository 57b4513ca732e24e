package common

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/songquanpeng/contract-tester/common/config"
)

func TestInitRedisClientWithoutConnString(t *testing.T) {
	original := config.RedisConnString
	t.Cleanup(func() { config.RedisConnString = original })

	config.RedisConnString = ""
	require.NoError(t, InitRedisClient())
	require.False(t, IsRedisEnabled())
}

func TestRedisHelpersRequireClient(t *testing.T) {
	original := RDB
	t.Cleanup(func() { RDB = original })
	RDB = nil

	require.Error(t, RedisSet("k", "v", 0))
	_, err := RedisGet("k")
	require.Error(t, err)
	require.Error(t, RedisDel("k"))
}
