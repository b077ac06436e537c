package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	r := NewRedis(Config{Addr: mr.Addr()})
	t.Cleanup(func() { r.Close() })
	return mr, r
}

func TestRedis_GetSet(t *testing.T) {
	mr, r := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Ping(ctx))

	_, ok, err := r.Get(ctx, "eligibility:ai:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "eligibility:ai:abc", `{"score":80}`, time.Minute))

	val, ok, err := r.Get(ctx, "eligibility:ai:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"score":80}`, val)
	assert.Equal(t, time.Minute, mr.TTL("eligibility:ai:abc"))

	mr.FastForward(2 * time.Minute)
	_, ok, err = r.Get(ctx, "eligibility:ai:abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_Unavailable(t *testing.T) {
	mr, r := setupRedis(t)
	mr.Close()

	_, _, err := r.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, r.Ping(context.Background()))
}
