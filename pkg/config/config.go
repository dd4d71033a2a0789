package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Validatable interface {
	Validate() error
}

func validateConfig(c any) error {
	return validate.Struct(c)
}

type Config struct {
	LogLevel  string          `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Content   ContentConfig   `mapstructure:"content"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Gallery   GalleryConfig   `mapstructure:"gallery"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

func (c Config) Validate() error {
	if err := validateConfig(c); err != nil {
		return err
	}
	return c.Content.Validate()
}

func Load[T Validatable]() (T, error) {
	var out T
	if err := viper.Unmarshal(&out); err != nil {
		return out, fmt.Errorf("unable to decode config, %w", err)
	}
	if err := out.Validate(); err != nil {
		return out, fmt.Errorf("invalid config, %w", err)
	}
	return out, nil
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")

	v.SetDefault("content.backend", BackendKubo)
	v.SetDefault("content.api_url", DefaultAPIURL)
	v.SetDefault("content.gateway_url", DefaultGatewayURL)
	v.SetDefault("content.cache_size", 256)
	v.SetDefault("content.fetch_rate", 10.0)
	v.SetDefault("content.fetch_burst", 5)

	v.SetDefault("ledger.poll_interval", DefaultPollInterval)
	v.SetDefault("ledger.confirm_timeout", DefaultConfirmTimeout)
	v.SetDefault("ledger.max_tokens", 10_000)

	v.SetDefault("gateway.port", DefaultGatewayPort)
	v.SetDefault("gateway.log_level", "warn")

	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.insecure", true)
}
