package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRedisStore(t *testing.T) {
	m := miniredis.RunT(t)

	s, err := NewRedisStore(m.Addr(), "", 0, "spam-dashboard:", 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Stop()

	exerciseStore(t, s)
}

func TestRedisStorePrefixAndTTL(t *testing.T) {
	m := miniredis.RunT(t)

	s, err := NewRedisStore(m.Addr(), "", 0, "spam-dashboard:", 30*time.Minute, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Stop()

	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "lastScan", []byte(`{"text":"hello"}`)))

	raw, err := m.Get("spam-dashboard:lastScan")
	require.NoError(t, err)
	assert.Equal(t, `{"text":"hello"}`, raw)
	assert.False(t, m.Exists("lastScan"))
	assert.Equal(t, 30*time.Minute, m.TTL("spam-dashboard:lastScan"))

	m.FastForward(31 * time.Minute)
	_, ok, err := s.Read(ctx, "lastScan")
	require.NoError(t, err)
	assert.False(t, ok, "entry should expire after ttl")
}

func TestRedisStoreWithoutTTL(t *testing.T) {
	m := miniredis.RunT(t)

	s, err := NewRedisStore(m.Addr(), "", 0, "", 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Stop()

	require.NoError(t, s.Write(context.Background(), "scan_history", []byte(`[]`)))
	assert.True(t, m.Exists("scan_history"))
	assert.Zero(t, m.TTL("scan_history"))
}

func TestRedisStoreUnreachable(t *testing.T) {
	m, err := miniredis.Run()
	require.NoError(t, err)
	addr := m.Addr()
	m.Close()

	_, err = NewRedisStore(addr, "", 0, "", 0, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "failed to connect to Redis")
}

func TestRedisStoreReadError(t *testing.T) {
	m := miniredis.RunT(t)

	s, err := NewRedisStore(m.Addr(), "", 0, "", 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Stop()

	m.SetError("ERR backend unavailable")
	_, ok, err := s.Read(context.Background(), "theme")
	assert.Error(t, err)
	assert.False(t, ok)
}
