package config

import (
	"errors"
	"path/filepath"
)

const (
	BackendKubo  = "kubo"
	BackendLocal = "local"

	DefaultAPIURL     = "https://ipfs.infura.io:5001/api/v0"
	DefaultGatewayURL = "https://ipfs.infura.io/ipfs/"
)

// ContentConfig selects and configures the content store.
type ContentConfig struct {
	// Backend is "kubo" for a remote IPFS HTTP API or "local" for the on-disk
	// store served by `doodlemint gateway serve`.
	Backend    string `mapstructure:"backend" validate:"oneof=kubo local"`
	APIURL     string `mapstructure:"api_url" validate:"omitempty,url"`
	GatewayURL string `mapstructure:"gateway_url" validate:"required,url"`
	// AuthHeader is sent as the Authorization header to the API.
	AuthHeader string `mapstructure:"auth_header"`
	DataDir    string `mapstructure:"data_dir" validate:"required_if=Backend local"`

	FetchRate  float64 `mapstructure:"fetch_rate" validate:"gte=0"`
	FetchBurst int     `mapstructure:"fetch_burst" validate:"gte=0"`
	CacheSize  int     `mapstructure:"cache_size" validate:"gte=0"`
}

func (c ContentConfig) Validate() error {
	if err := validateConfig(c); err != nil {
		return err
	}
	if c.Backend == BackendKubo && c.APIURL == "" {
		return errors.New("content.api_url is required for the kubo backend")
	}
	return nil
}

// StoreDir is where the local backend keeps its objects.
func (c ContentConfig) StoreDir() string {
	return filepath.Join(c.DataDir, "store")
}
