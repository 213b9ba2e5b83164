package config

import (
	"fmt"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateStatic rejects configurations the process must not start with.
// Missing provider credentials is the canonical fatal case.
func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateProvider(cfg.Provider); err != nil {
		errors = append(errors, err)
	}

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validatePoller(cfg.Poller); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateProvider(cfg ProviderConfig) error {
	if cfg.PublicKey == "" {
		return &ValidationError{
			Field:   "provider.public_key",
			Message: "provider public key is required",
		}
	}

	if cfg.SecretKey == "" {
		return &ValidationError{
			Field:   "provider.secret_key",
			Message: "provider secret key is required",
		}
	}

	if cfg.BaseURL == "" {
		return &ValidationError{
			Field:   "provider.base_url",
			Message: "provider base URL is required",
		}
	}

	if cfg.TimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "provider.timeout_seconds",
			Message: "provider timeout must be positive",
		}
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeout <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeout <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validatePoller(cfg PollerConfig) error {
	if cfg.IntervalSeconds <= 0 {
		return &ValidationError{
			Field:   "poller.interval_seconds",
			Message: fmt.Sprintf("poll interval must be positive, got %d", cfg.IntervalSeconds),
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	// The broker is an optional event mirror; empty type disables it.
	if cfg.Type == "" {
		return nil
	}

	if cfg.Type != "kafka" {
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Kafka.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.Kafka.EventTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.event_topic",
			Message: "event topic is required when the Kafka mirror is enabled",
		}
	}

	return nil
}
