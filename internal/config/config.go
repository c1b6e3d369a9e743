// This file defines the configuration structure for the daemon.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the daemon.
// It maps directly to the structure of config.yml.
type Config struct {
	Port         int `mapstructure:"port"`
	PollInterval int `mapstructure:"poll_interval"` // seconds between job status polls
	Remote       struct {
		BaseURL   string `mapstructure:"base_url"`
		TokenFile string `mapstructure:"token_file"`
	} `mapstructure:"remote"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Invoices struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"invoices"`
	BillingRefreshInterval int `mapstructure:"billing_refresh_interval"` // minutes
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with a "PULSE_" prefix.
	// e.g., PULSE_REMOTE_BASE_URL will override the `remote.base_url` key.
	viper.SetEnvPrefix("PULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8585)
	viper.SetDefault("poll_interval", 5)
	viper.SetDefault("remote.base_url", "https://api.reelrocket.ai")
	viper.SetDefault("remote.token_file", "./access_token")
	viper.SetDefault("database.path", "./pulse.db")
	viper.SetDefault("invoices.path", "./invoices")
	viper.SetDefault("billing_refresh_interval", 30)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
