package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	lim, err := New(Options{PerSecond: 1, Burst: 2})
	require.NoError(t, err)

	now := time.Now()
	assert.True(t, lim.AllowAt("U1", now))
	assert.True(t, lim.AllowAt("U1", now))
	assert.False(t, lim.AllowAt("U1", now), "burst exhausted")

	// keys do not share buckets
	assert.True(t, lim.AllowAt("U2", now))
	assert.Equal(t, 2, lim.Len())

	// refilled after a second
	assert.True(t, lim.AllowAt("U1", now.Add(time.Second)))
}

func TestLimiter_Forget(t *testing.T) {
	lim, err := New(Options{PerSecond: 1, Burst: 1})
	require.NoError(t, err)

	now := time.Now()
	assert.True(t, lim.AllowAt("U1", now))
	assert.False(t, lim.AllowAt("U1", now))

	lim.Forget("U1")
	assert.Equal(t, 0, lim.Len())
	assert.True(t, lim.AllowAt("U1", now), "a forgotten key starts with a full bucket")
}

func TestLimiter_maxKeys(t *testing.T) {
	lim, err := New(Options{PerSecond: 1, Burst: 1, MaxKeys: 2})
	require.NoError(t, err)

	now := time.Now()
	assert.True(t, lim.AllowAt("U1", now))
	assert.False(t, lim.AllowAt("U1", now))
	assert.True(t, lim.AllowAt("U2", now))
	assert.True(t, lim.AllowAt("U3", now))
	assert.Equal(t, 2, lim.Len())

	assert.True(t, lim.AllowAt("U1", now), "an evicted key starts over with a full bucket")
}

func TestNew_defaults(t *testing.T) {
	lim, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, Options{
		PerSecond: DefaultPerSecond,
		Burst:     DefaultBurst,
		IdleTTL:   DefaultIdleTTL,
		MaxKeys:   DefaultMaxKeys,
	}, lim.opts)
}
