package config

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// TransferConfig bounds the transfer engine: the instant-rail ceiling and
// the retry policy for storage lock conflicts. Business-rule failures are
// never retried.
type TransferConfig struct {
	InstantMaxAmount decimal.Decimal
	MaxRetries       int
	RetryBackoff     time.Duration
}

// Config is the full server configuration, loaded from .env / environment
// through viper with defaults for local development.
type Config struct {
	Port       string
	Database   DatabaseConfig
	Redis      RedisConfig
	Transfer   TransferConfig
	Settlement SettlementConfig
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type SettlementConfig struct {
	QueueName    string
	PollInterval time.Duration
}

// Load reads configuration. Environment variables override the .env file;
// missing values fall back to defaults.
func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.ReadInConfig()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("transfer.instant_max_amount", "TRANSFER_INSTANT_MAX_AMOUNT")
	viper.BindEnv("transfer.max_retries", "TRANSFER_MAX_RETRIES")
	viper.BindEnv("settlement.queue", "SETTLEMENT_QUEUE")

	viper.SetDefault("port", "8080")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.name", "corebank")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("transfer.instant_max_amount", "500000")
	viper.SetDefault("transfer.max_retries", 3)
	viper.SetDefault("transfer.retry_backoff", 50*time.Millisecond)
	viper.SetDefault("settlement.queue", "neft_settlement_queue")
	viper.SetDefault("settlement.poll_interval", 5*time.Second)

	instantMax, err := decimal.NewFromString(viper.GetString("transfer.instant_max_amount"))
	if err != nil {
		instantMax = decimal.NewFromInt(500000)
	}

	return &Config{
		Port: viper.GetString("port"),
		Database: DatabaseConfig{
			Host:            viper.GetString("database.host"),
			Port:            viper.GetString("database.port"),
			User:            viper.GetString("database.user"),
			Password:        viper.GetString("database.password"),
			Name:            viper.GetString("database.name"),
			SSLMode:         viper.GetString("database.ssl_mode"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("redis.host"),
			Port:     viper.GetString("redis.port"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Transfer: TransferConfig{
			InstantMaxAmount: instantMax,
			MaxRetries:       viper.GetInt("transfer.max_retries"),
			RetryBackoff:     viper.GetDuration("transfer.retry_backoff"),
		},
		Settlement: SettlementConfig{
			QueueName:    viper.GetString("settlement.queue"),
			PollInterval: viper.GetDuration("settlement.poll_interval"),
		},
	}
}
