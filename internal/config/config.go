// Package config loads the bot configuration from a JSON5 file with
// environment-variable overrides. Configuration problems are the only
// fatal error class in the system: a bot with a half-valid config must not
// start.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON — identity
// lists are numeric on Telegram and people paste them unquoted.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root configuration for the bot.
type Config struct {
	Channels  ChannelsConfig  `json:"channels"`
	Provider  ProviderConfig  `json:"provider"`
	Models    ModelsConfig    `json:"models"`
	Quota     QuotaConfig     `json:"quota"`
	Access    AccessConfig    `json:"access"`
	Knowledge KnowledgeConfig `json:"knowledge"`
	Router    RouterConfig    `json:"router"`
}

// ChannelsConfig contains per-channel configuration.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	Proxy   string `json:"proxy,omitempty"`
}

type DiscordConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
}

// ProviderConfig names the completion backend and its credential.
// APIKey is read from env YINGBOT_OPENAI_API_KEY only — never persisted.
type ProviderConfig struct {
	Name    string `json:"name,omitempty"` // informational, defaults to "openai"
	APIKey  string `json:"-"`
	BaseURL string `json:"base_url,omitempty"` // OpenAI-compatible endpoint override
}

// ModelsConfig maps the two routing tiers to backend model identifiers.
type ModelsConfig struct {
	Standard string `json:"standard"`
	Premium  string `json:"premium"`
}

// QuotaConfig bounds premium usage.
type QuotaConfig struct {
	DailyPremiumLimit int `json:"daily_premium_limit"`
}

// AccessConfig seeds the admission policy: who may DM the bot, which groups
// it answers in, and how group messages address it.
type AccessConfig struct {
	SuperAdmin       string              `json:"super_admin"`
	Admins           FlexibleStringSlice `json:"admins,omitempty"`
	AllowedGroups    FlexibleStringSlice `json:"allowed_groups,omitempty"`
	AddressingPrefix string              `json:"addressing_prefix,omitempty"`
	ReplyOnReject    bool                `json:"reply_on_reject,omitempty"` // explicit "not authorized" instead of silence
}

type KnowledgeConfig struct {
	Path string `json:"path,omitempty"` // FAQ JSON document; empty disables the FAQ stage
}

type RouterConfig struct {
	RequestTimeoutSeconds int `json:"request_timeout_seconds,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{Name: "openai"},
		Models: ModelsConfig{
			Standard: "gpt-4o-mini",
			Premium:  "gpt-4o",
		},
		Quota:  QuotaConfig{DailyPremiumLimit: 25},
		Router: RouterConfig{RequestTimeoutSeconds: 60},
	}
}

// Validate checks the invariants the rest of the system assumes. Any error
// here terminates the process before a single message is read.
func (c *Config) Validate() error {
	var errs []error

	if !c.Channels.Telegram.Enabled && !c.Channels.Discord.Enabled {
		errs = append(errs, errors.New("no channel enabled: set a telegram or discord token"))
	}
	if c.Channels.Telegram.Enabled && c.Channels.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram enabled without a token"))
	}
	if c.Channels.Discord.Enabled && c.Channels.Discord.Token == "" {
		errs = append(errs, errors.New("discord enabled without a token"))
	}
	if c.Provider.APIKey == "" {
		errs = append(errs, errors.New("provider API key is not set (YINGBOT_OPENAI_API_KEY)"))
	}
	if c.Access.SuperAdmin == "" {
		errs = append(errs, errors.New("access.super_admin is not set"))
	}
	if c.Quota.DailyPremiumLimit <= 0 {
		errs = append(errs, errors.New("quota.daily_premium_limit must be positive"))
	}
	if c.Models.Standard == "" || c.Models.Premium == "" {
		errs = append(errs, errors.New("models.standard and models.premium must both be set"))
	}
	return errors.Join(errs...)
}
