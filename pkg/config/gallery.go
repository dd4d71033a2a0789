package config

type GalleryConfig struct {
	// Concurrency bounds parallel metadata fetches. Zero fetches every token
	// at once.
	Concurrency int `mapstructure:"concurrency" validate:"gte=0"`
}

type TelemetryConfig struct {
	Enabled     bool              `mapstructure:"enabled"`
	Endpoint    string            `mapstructure:"endpoint"`
	Insecure    bool              `mapstructure:"insecure"`
	SampleRatio float64           `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
	Headers     map[string]string `mapstructure:"headers"`
}
