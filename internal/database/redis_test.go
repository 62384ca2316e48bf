package database

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisChecker_InvalidURL(t *testing.T) {
	err := NewRedisChecker().Ping(context.Background(), "http://localhost:6379")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid REDIS_URL")
}

func TestRedisChecker_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	r := &RedisChecker{Timeout: 500 * time.Millisecond}
	err = r.Ping(context.Background(), "redis://"+addr+"/0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping to "+addr+" failed")
}
