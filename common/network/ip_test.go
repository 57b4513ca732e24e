package network

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValidSubnets(t *testing.T) {
	require.NoError(t, IsValidSubnets("10.0.0.0/8, 192.168.0.0/16"))
	require.NoError(t, IsValidSubnets(""))
	require.Error(t, IsValidSubnets("10.0.0.0/8,not-a-subnet"))
}

func TestIsIpInSubnets(t *testing.T) {
	require.True(t, IsIpInSubnets("10.1.2.3", "10.0.0.0/8"))
	require.True(t, IsIpInSubnets("127.0.0.1", "10.0.0.0/8, 127.0.0.0/8"))
	require.False(t, IsIpInSubnets("8.8.8.8", "10.0.0.0/8"))
	require.False(t, IsIpInSubnets("garbage", "10.0.0.0/8"))
}

func TestCheckTargetAllowed(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, CheckTargetAllowed(ctx, "http://127.0.0.1:8080/api/signup", ""))
	require.Error(t, CheckTargetAllowed(ctx, "http://127.0.0.1:8080/api/signup", "127.0.0.0/8"))
	require.NoError(t, CheckTargetAllowed(ctx, "http://10.0.0.5/api/signup", "127.0.0.0/8"))
	require.Error(t, CheckTargetAllowed(ctx, "http:///nohost", "127.0.0.0/8"))
}
