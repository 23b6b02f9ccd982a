package internal

import (
	"context"
	"testing"
	"time"

	"sjsage522/pagescope/config"
	"sjsage522/pagescope/logger"
	"sjsage522/pagescope/services/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDependenciesDefaults(t *testing.T) {
	deps, err := NewDependencies(context.Background(), config.Default(), logger.Nop(), false)
	require.NoError(t, err)
	defer deps.Close()

	assert.Nil(t, deps.Cache)
	assert.Nil(t, deps.Publisher)
}

func TestNewDependenciesMemoryCache(t *testing.T) {
	cfg := config.Default()
	cfg.CacheTTL = time.Minute

	deps, err := NewDependencies(context.Background(), cfg, logger.Nop(), false)
	require.NoError(t, err)
	defer deps.Close()

	assert.IsType(t, &cache.MemoryCache{}, deps.Cache)
}

func TestNewDependenciesPublisherNeedsAddr(t *testing.T) {
	cfg := config.Default()
	cfg.RedisAddr = ""

	_, err := NewDependencies(context.Background(), cfg, logger.Nop(), true)
	assert.Error(t, err)
}
