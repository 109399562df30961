package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load loads and validates configuration from:
// 1. Default values
// 2. The YAML file at path (optional)
// 3. ASSIST_* environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("ASSIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow a missing config file, defaults and env vars still apply
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// The official provider always talks to the official endpoint; this
	// mirrors how the admin form pins the URL on save.
	if cfg.APIProvider == "openai" {
		cfg.APIURL = OpenAIEndpoint
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", true)

	v.SetDefault("listen_addr", ":8585")
	v.SetDefault("db_path", "assistant.db")

	v.SetDefault("api_provider", "openai")
	// Empty defaults so viper knows these keys and binds their ASSIST_* env vars.
	v.SetDefault("api_key", "")
	v.SetDefault("api_url", "")
	v.SetDefault("auth_token", "")
	v.SetDefault("model", "gpt-4o-mini")

	v.SetDefault("auto_suggest", false)
	v.SetDefault("min_confidence", 70)
	v.SetDefault("max_templates", 10)
	v.SetDefault("timeout", 30)
	v.SetDefault("temperature", 0.3)
	v.SetDefault("enable_logging", false)
}
