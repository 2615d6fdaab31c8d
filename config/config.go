package config

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Port               string       `mapstructure:"PORT" validate:"required"`
	InternalAuthHeader string       `mapstructure:"INTERNAL_AUTH_HEADER" validate:"required"`
	Db                 DbConfig     `mapstructure:",squash"`
	Jwt                JwtConfig    `mapstructure:",squash"`
	Redis              RedisConfig  `mapstructure:",squash"`
	Lock               LockConfig   `mapstructure:",squash"`
	Broker             BrokerConfig `mapstructure:",squash"`
	Import             ImportConfig `mapstructure:",squash"`
}

type DbConfig struct {
	Host             string `mapstructure:"DB_HOST" validate:"required"`
	Port             string `mapstructure:"DB_PORT" validate:"required"`
	Username         string `mapstructure:"DB_USERNAME" validate:"required"`
	Password         string `mapstructure:"DB_PASSWORD" validate:"required"`
	DbName           string `mapstructure:"DB_DBNAME" validate:"required"`
	SSLMode          string `mapstructure:"DB_SSLMODE"`
	TxRetryBackoffMs int64  `mapstructure:"TX_RETRY_BACKOFF_MS" validate:"gte=0"`
}

type JwtConfig struct {
	SecretKey string `mapstructure:"JWT_SECRETKEY" validate:"required"`
	Expire    int64  `mapstructure:"JWT_EXPIRE" validate:"required"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"REDIS_ADDR"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type LockConfig struct {
	Driver          string `mapstructure:"LOCK_DRIVER" validate:"required,oneof=redis postgres"`
	TimeoutMs       int64  `mapstructure:"LOCK_TIMEOUT_MS" validate:"gt=0"`
	TTLMs           int64  `mapstructure:"LOCK_TTL_MS" validate:"gt=0"`
	RetryIntervalMs int64  `mapstructure:"LOCK_RETRY_INTERVAL_MS" validate:"gt=0"`
	PgPoolSize      int    `mapstructure:"LOCK_PG_POOL_SIZE" validate:"gt=0"`
}

type BrokerConfig struct {
	Driver         string `mapstructure:"BROKER_DRIVER" validate:"required,oneof=nats kafka amqp none"`
	NatsUrl        string `mapstructure:"NATS_URL"`
	NatsStreamName string `mapstructure:"NATS_STREAM_NAME"`
	KafkaBrokers   string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic     string `mapstructure:"KAFKA_TOPIC"`
	AmqpUrl        string `mapstructure:"AMQP_URL"`
	AmqpExchange   string `mapstructure:"AMQP_EXCHANGE"`
}

type ImportConfig struct {
	Concurrency int `mapstructure:"IMPORT_CONCURRENCY" validate:"gt=0"`
}

func (c LockConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c LockConfig) TTL() time.Duration {
	return time.Duration(c.TTLMs) * time.Millisecond
}

func (c LockConfig) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalMs) * time.Millisecond
}

func (c DbConfig) TxRetryBackoff() time.Duration {
	return time.Duration(c.TxRetryBackoffMs) * time.Millisecond
}

func (c BrokerConfig) KafkaBrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func setDefaults() {
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("TX_RETRY_BACKOFF_MS", 50)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("LOCK_DRIVER", "redis")
	viper.SetDefault("LOCK_TIMEOUT_MS", 3000)
	viper.SetDefault("LOCK_TTL_MS", 10000)
	viper.SetDefault("LOCK_RETRY_INTERVAL_MS", 25)
	viper.SetDefault("LOCK_PG_POOL_SIZE", 20)
	viper.SetDefault("BROKER_DRIVER", "nats")
	viper.SetDefault("NATS_URL", "nats://localhost:4222")
	viper.SetDefault("NATS_STREAM_NAME", "stock")
	viper.SetDefault("KAFKA_TOPIC", "stock.changed")
	viper.SetDefault("AMQP_EXCHANGE", "stock")
	viper.SetDefault("IMPORT_CONCURRENCY", 4)
}

func InitConfig(ctx context.Context) (*Config, error) {
	var cfg Config

	// Reset viper to avoid any previous configuration
	viper.Reset()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetConfigType("env")
	setDefaults()

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}

	_, err := os.Stat(envFile)
	if !os.IsNotExist(err) {
		viper.SetConfigFile(envFile)

		if err := viper.ReadInConfig(); err != nil {
			slog.WarnContext(ctx, "[InitConfig] ReadInConfig warning, continuing with env vars only", "error", err)
		} else {
			slog.InfoContext(ctx, "[InitConfig] Successfully loaded config file", "file", envFile)
		}
	} else {
		slog.InfoContext(ctx, "[InitConfig] No config file found, using environment variables")
	}

	viper.AutomaticEnv()

	envVars := []string{
		"PORT",
		"INTERNAL_AUTH_HEADER",
		"DB_HOST",
		"DB_PORT",
		"DB_USERNAME",
		"DB_PASSWORD",
		"DB_DBNAME",
		"DB_SSLMODE",
		"TX_RETRY_BACKOFF_MS",
		"JWT_SECRETKEY",
		"JWT_EXPIRE",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"LOCK_DRIVER",
		"LOCK_TIMEOUT_MS",
		"LOCK_TTL_MS",
		"LOCK_RETRY_INTERVAL_MS",
		"LOCK_PG_POOL_SIZE",
		"BROKER_DRIVER",
		"NATS_URL",
		"NATS_STREAM_NAME",
		"KAFKA_BROKERS",
		"KAFKA_TOPIC",
		"AMQP_URL",
		"AMQP_EXCHANGE",
		"IMPORT_CONCURRENCY",
	}

	// Bind explicitly so Unmarshal sees env-only keys
	for _, key := range envVars {
		viper.BindEnv(key)
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		slog.ErrorContext(ctx, "[InitConfig] Unmarshal", "failed bind config", err)
		return nil, err
	}

	slog.InfoContext(ctx, "[InitConfig] Configuration after binding",
		"PORT", cfg.Port,
		"DB_HOST", cfg.Db.Host,
		"DB_PORT", cfg.Db.Port,
		"DB_DBNAME", cfg.Db.DbName,
		"LOCK_DRIVER", cfg.Lock.Driver,
		"LOCK_TIMEOUT_MS", cfg.Lock.TimeoutMs,
		"BROKER_DRIVER", cfg.Broker.Driver)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if ok {
			for _, validationErr := range validationErrs {
				slog.ErrorContext(ctx, "[InitConfig] Validation error",
					"field", validationErr.Field(),
					"namespace", validationErr.Namespace(),
					"tag", validationErr.Tag(),
					"value", validationErr.Value())
			}
		} else {
			slog.ErrorContext(ctx, "[InitConfig] Validation", "error", err)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "[InitConfig] Config loaded successfully")
	return &cfg, nil
}
