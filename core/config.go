package core

import (
	"fmt"
	"strings"
)

// Config carries the ambient session settings. Environment and Overrides
// steer component selection; AppVersion and UserAgent are sent with every
// API request.
type Config struct {
	AppVersion  string `koanf:"app_version" mapstructure:"app_version" yaml:"app_version"`
	UserAgent   string `koanf:"user_agent" mapstructure:"user_agent" yaml:"user_agent"`
	Environment string `koanf:"environment" mapstructure:"environment" yaml:"environment"`
	Overrides   string `koanf:"overrides" mapstructure:"overrides" yaml:"overrides"`
}

func DefaultConfig() Config {
	return Config{
		AppVersion: "Other",
		UserAgent:  "None",
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.AppVersion) == "" {
		return fmt.Errorf("core: app_version is required")
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return fmt.Errorf("core: user_agent is required")
	}
	return nil
}
