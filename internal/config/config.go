// Package config provides configuration loading, validation, and management
// for the AI assistant service. It handles reading from YAML files and
// environment variables, setting default values, and validating parameters.
package config

import "time"

// OpenAIEndpoint is the chat-completions URL pinned when the provider is
// "openai". Custom providers must supply their own compatible endpoint.
const OpenAIEndpoint = "https://api.openai.com/v1/chat/completions"

// Config defines the service configuration. Values can be set via a
// config.yaml file or environment variables prefixed with ASSIST_
// (e.g. ASSIST_API_KEY).
type Config struct {
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogJSON  bool   `mapstructure:"log_json"`

	ListenAddr string `mapstructure:"listen_addr" validate:"required"`
	// AuthToken, when set, is required as a bearer token on every API call.
	AuthToken string `mapstructure:"auth_token"`

	DBPath string `mapstructure:"db_path" validate:"required"`

	// APIProvider selects between the official OpenAI endpoint and a custom
	// OpenAI-compatible one. For "openai" the URL is pinned to OpenAIEndpoint.
	APIProvider string `mapstructure:"api_provider" validate:"oneof=openai custom"`
	APIKey      string `mapstructure:"api_key"`
	APIURL      string `mapstructure:"api_url" validate:"omitempty,url"`
	Model       string `mapstructure:"model"`

	// AutoSuggest tells the agent UI to request a suggestion as soon as a
	// ticket is opened instead of waiting for a button click.
	AutoSuggest bool `mapstructure:"auto_suggest"`

	// MinConfidence is the inclusive lower bound a suggestion's confidence
	// score must reach to be returned as a success.
	MinConfidence int `mapstructure:"min_confidence" validate:"min=0,max=100"`

	// MaxTemplates caps how many canned responses are sent to the model per
	// request. Zero means unlimited. The cap is a prefix cut in retrieval
	// order; no ranking happens before truncation.
	MaxTemplates int `mapstructure:"max_templates" validate:"min=0"`

	// Timeout is the model API request timeout in seconds.
	Timeout int `mapstructure:"timeout" validate:"gt=0"`

	Temperature float64 `mapstructure:"temperature" validate:"min=0,max=2"`

	// EnableLogging turns on debug logging of raw model request and response
	// payloads.
	EnableLogging bool `mapstructure:"enable_logging"`
}

// ClientConfig is the immutable per-invocation configuration of the model
// client. It is constructed once from validated settings; the temperature
// default lives here, not at call sites.
type ClientConfig struct {
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	Debug       bool
}

// ClientConfig builds the model client configuration from the loaded
// settings.
func (c *Config) ClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:    c.APIURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		Timeout:     time.Duration(c.Timeout) * time.Second,
		Temperature: c.Temperature,
		Debug:       c.EnableLogging,
	}
}

// ClientConfigured reports whether the endpoint/key/model triple required to
// call the model API is present. When it is not, the suggestion pipeline
// fails fast without any network call.
func (c *Config) ClientConfigured() bool {
	return c.APIKey != "" && c.Model != "" && c.APIURL != ""
}
