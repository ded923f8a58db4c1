package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Load reads the YAML file at path when one is given and then applies
// WATCHPOST_* environment overrides on top of it.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	if strings.TrimSpace(path) != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported db_driver %q", c.DBDriver)
	}
	if strings.TrimSpace(c.DBURL) == "" {
		return fmt.Errorf("db_url required")
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("listen_addr required")
	}
	c.Geocoder.Provider = strings.ToLower(strings.TrimSpace(c.Geocoder.Provider))
	switch c.Geocoder.Provider {
	case "", "none", "static":
	case "google":
		if strings.TrimSpace(c.Geocoder.APIKey) == "" {
			return fmt.Errorf("geocoder.api_key required for google provider")
		}
	default:
		return fmt.Errorf("unsupported geocoder provider %q", c.Geocoder.Provider)
	}
	return nil
}
