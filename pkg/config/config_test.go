package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "retailer-service", cfg.ServiceName)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 3600*time.Second, cfg.Cache.MasterDataTTL)
	assert.Equal(t, 60*time.Second, cfg.Cache.RetailerTTL)
	assert.Equal(t, 1000, cfg.Import.BatchSize)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "8099")
	t.Setenv("CACHE_DRIVER", "memory")
	t.Setenv("CACHE_RETAILER_LIST_TTL", "5s")
	t.Setenv("IMPORT_BATCH_SIZE", "250")
	t.Setenv("DB_LOG_LEVEL", "silent")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8099", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 5*time.Second, cfg.Cache.RetailerTTL)
	assert.Equal(t, 250, cfg.Import.BatchSize)
	assert.Equal(t, logger.Silent, cfg.DB.LogLevel)
}

func TestLoad_RejectsNonPositiveBatchSize(t *testing.T) {
	t.Setenv("IMPORT_BATCH_SIZE", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.GetDSN())
}

func TestLogConfig_OmitsSecrets(t *testing.T) {
	t.Setenv("DB_PASSWORD", "hunter2")
	t.Setenv("JWT_SIGNING_KEY", "topsecret")

	cfg, err := Load()
	require.NoError(t, err)

	for _, f := range cfg.LogConfig() {
		assert.NotEqual(t, "hunter2", f.String)
		assert.NotEqual(t, "topsecret", f.String)
	}
}
