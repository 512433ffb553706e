package store

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolOptionsDefaults(t *testing.T) {
	assert.Equal(t, defaultPool, PoolOptions{}.withDefaults())

	opts := PoolOptions{MaxOpenConns: 4, MaxIdleConns: 8, ConnectTimeout: 2 * time.Second}.withDefaults()
	assert.Equal(t, 4, opts.MaxOpenConns)
	assert.Equal(t, 4, opts.MaxIdleConns, "idle connections are capped by the open limit")
	assert.Equal(t, 2*time.Second, opts.ConnectTimeout)
	assert.Equal(t, 30*time.Minute, opts.ConnMaxLifetime)
}

func TestConfigurePoolAppliesLimits(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	configurePool(db, PoolOptions{MaxOpenConns: 7, MaxIdleConns: 3}.withDefaults())
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}
