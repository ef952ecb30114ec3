// Package config loads the gateway's process-wide configuration once at
// startup: front-end credentials, the conversation bucket, provider keys,
// and the four per-family model allow-lists.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// DefaultModel is used for conversations that never selected one.
	DefaultModel = "gpt-5-nano"
	// DefaultImageModel is used by /image when no model: prefix is given.
	DefaultImageModel = "dall-e-2"
)

// AllowLists holds the four disjoint per-family chat model sets.
type AllowLists struct {
	OpenAI    []string `mapstructure:"openai"`
	Anthropic []string `mapstructure:"anthropic"`
	Google    []string `mapstructure:"google"`
	XAI       []string `mapstructure:"xai"`
}

// All returns every allowed chat model across the four families.
func (a AllowLists) All() []string {
	var all []string
	all = append(all, a.OpenAI...)
	all = append(all, a.Anthropic...)
	all = append(all, a.Google...)
	all = append(all, a.XAI...)
	return all
}

// Config is immutable after Load; it is passed by value into constructors
// instead of being read from package globals.
type Config struct {
	TelegramToken string `mapstructure:"telegram_token"`
	Bucket        string `mapstructure:"conversation_bucket"`
	DefaultModel  string `mapstructure:"default_model"`

	StaleAfter   time.Duration `mapstructure:"stale_after"`
	SegmentLimit int           `mapstructure:"segment_limit"`

	OpenAIKey    string `mapstructure:"openai_api_key"`
	AnthropicKey string `mapstructure:"anthropic_api_key"`
	GoogleKey    string `mapstructure:"google_api_key"`
	XAIKey       string `mapstructure:"xai_api_key"`
	XAIBaseURL   string `mapstructure:"xai_base_url"`

	Models AllowLists `mapstructure:"models"`
}

// Load reads configuration from the optional YAML file at path and from
// CHATRELAY_* environment variables, then validates it. Missing required
// settings are fatal to startup by contract; everything later in the
// process treats the returned Config as read-only.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CHATRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("default_model", DefaultModel)
	v.SetDefault("stale_after", time.Hour)
	v.SetDefault("segment_limit", 4096)

	// AutomaticEnv alone does not surface env-only keys to Unmarshal;
	// bind the scalar settings explicitly so a file-less deployment works.
	for _, key := range []string{
		"telegram_token", "conversation_bucket",
		"openai_api_key", "anthropic_api_key", "google_api_key",
		"xai_api_key", "xai_base_url",
	} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.TelegramToken == "" {
		return errors.New("config: telegram_token is required")
	}
	if c.Bucket == "" {
		return errors.New("config: conversation_bucket is required")
	}
	if len(c.Models.All()) == 0 {
		return errors.New("config: model allow-lists are empty")
	}
	if !contains(c.Models.All(), c.DefaultModel) {
		return errors.Errorf("config: default model %q is in no allow-list", c.DefaultModel)
	}
	for _, fam := range []struct {
		name   string
		models []string
		key    string
	}{
		{"openai", c.Models.OpenAI, c.OpenAIKey},
		{"anthropic", c.Models.Anthropic, c.AnthropicKey},
		{"google", c.Models.Google, c.GoogleKey},
		{"xai", c.Models.XAI, c.XAIKey},
	} {
		if len(fam.models) > 0 && fam.key == "" {
			return errors.Errorf("config: %s models are allowed but %s_api_key is unset", fam.name, fam.name)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
