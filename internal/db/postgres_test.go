package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	cfg, err := poolConfig(PoolOptions{DSN: "postgres://clinic:pw@localhost:5432/clinic", MaxConns: 20, MinConns: 4})
	require.NoError(t, err)
	assert.Equal(t, int32(20), cfg.MaxConns)
	assert.Equal(t, int32(4), cfg.MinConns)
	assert.Equal(t, "clinic", cfg.ConnConfig.Database)
}

func TestPoolConfigDefaults(t *testing.T) {
	cfg, err := poolConfig(PoolOptions{DSN: "postgres://clinic@localhost/clinic", MinConns: 50})
	require.NoError(t, err)
	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, int32(1), cfg.MinConns, "min above max falls back")
}

func TestPoolConfigBadDSN(t *testing.T) {
	_, err := poolConfig(PoolOptions{DSN: "postgres://%zz"})
	assert.Error(t, err)
}
