package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Load reads config from a JSON5 file, then overlays env vars. A missing
// file is fine — env vars alone can carry a full deployment.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("YINGBOT_TELEGRAM_TOKEN", &c.Channels.Telegram.Token)
	envStr("YINGBOT_TELEGRAM_PROXY", &c.Channels.Telegram.Proxy)
	envStr("YINGBOT_DISCORD_TOKEN", &c.Channels.Discord.Token)
	envStr("YINGBOT_OPENAI_API_KEY", &c.Provider.APIKey)
	envStr("YINGBOT_OPENAI_BASE_URL", &c.Provider.BaseURL)
	envStr("YINGBOT_STANDARD_MODEL", &c.Models.Standard)
	envStr("YINGBOT_PREMIUM_MODEL", &c.Models.Premium)
	envStr("YINGBOT_SUPER_ADMIN", &c.Access.SuperAdmin)
	envStr("YINGBOT_ADDRESSING_PREFIX", &c.Access.AddressingPrefix)
	envStr("YINGBOT_KNOWLEDGE_FILE", &c.Knowledge.Path)

	// Comma-separated identity lists.
	if v := os.Getenv("YINGBOT_ADMIN_IDS"); v != "" {
		c.Access.Admins = splitIDs(v)
	}
	if v := os.Getenv("YINGBOT_GROUP_IDS"); v != "" {
		c.Access.AllowedGroups = splitIDs(v)
	}

	if v := os.Getenv("YINGBOT_DAILY_PREMIUM_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Quota.DailyPremiumLimit = n
		}
	}
	if v := os.Getenv("YINGBOT_REPLY_ON_REJECT"); v != "" {
		c.Access.ReplyOnReject = v == "true" || v == "1"
	}

	// Auto-enable channels if credentials are provided.
	if c.Channels.Telegram.Token != "" {
		c.Channels.Telegram.Enabled = true
	}
	if c.Channels.Discord.Token != "" {
		c.Channels.Discord.Enabled = true
	}
}

func splitIDs(v string) FlexibleStringSlice {
	parts := strings.Split(v, ",")
	out := make(FlexibleStringSlice, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
