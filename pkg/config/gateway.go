package config

const DefaultGatewayPort = 3000

type GatewayConfig struct {
	Port     int    `mapstructure:"port" flag:"port" validate:"min=1,max=65535"`
	LogLevel string `mapstructure:"log_level" flag:"log-level" validate:"omitempty,oneof=debug info warn error"`
}

func (c GatewayConfig) Validate() error {
	return validateConfig(c)
}
