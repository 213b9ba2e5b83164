package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"payrelay/internal/constants"
)

// LoadConfig reads the optional YAML config file, applies environment
// overrides and defaults, and validates the result. An empty configFile means
// environment-only configuration.
func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if configFile != "" {
		viper.SetConfigType("yaml")
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", constants.DefaultServerPort)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")

	viper.SetDefault("provider.base_url", constants.DefaultProviderBaseURL)
	viper.SetDefault("provider.timeout_seconds", 10)

	viper.SetDefault("poller.interval_seconds", constants.DefaultPollIntervalSeconds)
	viper.SetDefault("dispatch.timeout_seconds", 10)

	viper.SetDefault("storage.subscriptions_file", constants.DefaultSubscriptionsFile)
	viper.SetDefault("storage.ledger_file", constants.DefaultLedgerFile)

	viper.SetDefault("database.migrations_path", "migrations")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

func bindEnvVariables() {
	viper.BindEnv("provider.public_key", "PROVIDER_PUBLIC_KEY")
	viper.BindEnv("provider.secret_key", "PROVIDER_SECRET_KEY")
	viper.BindEnv("provider.base_url", "PROVIDER_BASE_URL")
	viper.BindEnv("provider.timeout_seconds", "PROVIDER_TIMEOUT_SECONDS")

	viper.BindEnv("poller.interval_seconds", "POLLER_INTERVAL_SECONDS")
	viper.BindEnv("dispatch.timeout_seconds", "DISPATCH_TIMEOUT_SECONDS")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("broker.type", "BROKER_TYPE")
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.event_topic", "BROKER_KAFKA_EVENT_TOPIC")

	viper.BindEnv("storage.subscriptions_file", "STORAGE_SUBSCRIPTIONS_FILE")
	viper.BindEnv("storage.ledger_file", "STORAGE_LEDGER_FILE")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	return nil
}
