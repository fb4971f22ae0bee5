package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "redis://:pw@example.com:6380/3"

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "example.com:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, cfg.PoolSize, opts.PoolSize)
	assert.Equal(t, cfg.MinIdleConns, opts.MinIdleConns)
}

func TestConfigOptionsBadURL(t *testing.T) {
	_, err := Config{URL: "http://nope"}.Options()
	assert.Error(t, err)
}

func TestNewPingsServer(t *testing.T) {
	mini := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.URL = "redis://" + mini.Addr()
	st, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	mini.Close()
	_, err = New(cfg)
	assert.ErrorContains(t, err, "ping redis")
}
