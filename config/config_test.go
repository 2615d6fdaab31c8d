package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("PORT", "8080")
	t.Setenv("INTERNAL_AUTH_HEADER", "secret")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USERNAME", "stock")
	t.Setenv("DB_PASSWORD", "stock")
	t.Setenv("DB_DBNAME", "stock")
	t.Setenv("JWT_SECRETKEY", "jwt-secret")
	t.Setenv("JWT_EXPIRE", "3600")
}

func TestInitConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := InitConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "redis", cfg.Lock.Driver)
	assert.Equal(t, 3*time.Second, cfg.Lock.Timeout())
	assert.Equal(t, 10*time.Second, cfg.Lock.TTL())
	assert.Equal(t, 25*time.Millisecond, cfg.Lock.RetryInterval())
	assert.Equal(t, 20, cfg.Lock.PgPoolSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Db.TxRetryBackoff())
	assert.Equal(t, "nats", cfg.Broker.Driver)
	assert.Equal(t, 4, cfg.Import.Concurrency)
}

func TestInitConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOCK_DRIVER", "postgres")
	t.Setenv("LOCK_TIMEOUT_MS", "500")
	t.Setenv("BROKER_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := InitConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Lock.Driver)
	assert.Equal(t, 500*time.Millisecond, cfg.Lock.Timeout())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Broker.KafkaBrokerList())
}

func TestInitConfig_ValidationFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOCK_DRIVER", "memory")

	cfg, err := InitConfig(context.Background())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestInitConfig_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_HOST", "")

	_, err := InitConfig(context.Background())
	assert.Error(t, err)
}
