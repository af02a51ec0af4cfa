package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 5001, cfg.HTTPPort)
	assert.Equal(t, "/api/tasks", cfg.APIBasePath)
	assert.Equal(t, DriverMongo, cfg.StorageDriver)
	assert.Equal(t, "task_manager", cfg.MongoDatabase)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.StoreConnectTimeout)
	assert.Empty(t, cfg.RedisAddr)
}

func TestFromViperEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "7000")
	t.Setenv("API_BASE_PATH", "v2/todos/")
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("MONGODB_URI", "mongodb://db:27017/planner")
	t.Setenv("CACHE_TTL", "30s")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.HTTPPort)
	assert.Equal(t, "/v2/todos", cfg.APIBasePath)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, "planner", cfg.MongoDatabase)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
}

func TestFromViperRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "cassandra")

	_, err := FromViper(viper.New())
	assert.Error(t, err)
}

func TestDatabaseFromURI(t *testing.T) {
	assert.Equal(t, "task_manager", databaseFromURI("mongodb://localhost:27017"))
	assert.Equal(t, "tasks", databaseFromURI("mongodb://localhost:27017/tasks?retryWrites=true"))
}
