package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type BotConfig struct {
	Name   string `yaml:"name" envconfig:"BOT_NAME"`
	Prefix string `yaml:"prefix" envconfig:"BOT_PREFIX"`
}

type TwitchConfig struct {
	Username      string   `yaml:"username" envconfig:"TWITCH_BOT_USERNAME"`
	Token         string   `yaml:"token" envconfig:"TWITCH_BOT_ACCESS_TOKEN"`
	Channels      []string `yaml:"channels" envconfig:"TWITCH_BOT_CHANNELS"`
	ClientID      string   `yaml:"client_id" envconfig:"TWITCH_CLIENT_ID"`
	APIToken      string   `yaml:"api_token" envconfig:"TWITCH_API_ACCESS_TOKEN"`
	BroadcasterID string   `yaml:"broadcaster_id" envconfig:"TWITCH_BROADCASTER_ID"`
	// BotUserID is looked up from Username when empty.
	BotUserID     string   `yaml:"bot_user_id" envconfig:"TWITCH_BOT_USER_ID"`
}

// ChatConfig controls how replies are delivered. ResponseMention set to true
// drops the "user: " prefix from replies.
type ChatConfig struct {
	ResponseMention   bool    `yaml:"response_mention" envconfig:"CHAT_RESPONSE_MENTION"`
	WhisperMode       bool    `yaml:"whisper_mode" envconfig:"CHAT_WHISPER_MODE"`
	MessagesPerSecond float64 `yaml:"messages_per_second" envconfig:"CHAT_MESSAGES_PER_SECOND"`
	Burst             int     `yaml:"burst" envconfig:"CHAT_BURST"`
}

type CooldownConfig struct {
	Global        bool          `yaml:"global" envconfig:"COOLDOWN_GLOBAL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"COOLDOWN_SWEEP_INTERVAL"`
}

type PointsConfig struct {
	PayoutAmount   int64         `yaml:"payout_amount" envconfig:"POINTS_PAYOUT_AMOUNT"`
	PayoutInterval time.Duration `yaml:"payout_interval" envconfig:"POINTS_PAYOUT_INTERVAL"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" envconfig:"DATABASE_PATH"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Twitch   TwitchConfig   `yaml:"twitch"`
	Chat     ChatConfig     `yaml:"chat"`
	Cooldown CooldownConfig `yaml:"cooldown"`
	Points   PointsConfig   `yaml:"points"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load reads .env (if present), then the optional YAML file at path, then
// environment overrides.
func Load(path string, envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	var cfg Config

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize fills defaults and validates values.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}

	cfg.Bot.Prefix = strings.TrimSpace(cfg.Bot.Prefix)
	if cfg.Bot.Prefix == "" {
		cfg.Bot.Prefix = "!"
	}
	cfg.Bot.Name = strings.TrimSpace(cfg.Bot.Name)
	if cfg.Bot.Name == "" {
		cfg.Bot.Name = strings.TrimSpace(cfg.Twitch.Username)
	}

	channels := make([]string, 0, len(cfg.Twitch.Channels))
	for _, ch := range cfg.Twitch.Channels {
		ch = strings.ToLower(strings.TrimSpace(ch))
		if ch != "" {
			channels = append(channels, ch)
		}
	}
	cfg.Twitch.Channels = channels

	// Twitch allows 20 messages per 30 seconds for regular accounts.
	if cfg.Chat.MessagesPerSecond < 0 {
		return fmt.Errorf("config: chat.messages_per_second must be >= 0")
	}
	if cfg.Chat.MessagesPerSecond == 0 {
		cfg.Chat.MessagesPerSecond = 20.0 / 30.0
	}
	if cfg.Chat.Burst <= 0 {
		cfg.Chat.Burst = 1
	}

	if cfg.Cooldown.SweepInterval <= 0 {
		cfg.Cooldown.SweepInterval = time.Minute
	}

	if cfg.Points.PayoutAmount < 0 {
		return fmt.Errorf("config: points.payout_amount must be >= 0")
	}
	if cfg.Points.PayoutInterval <= 0 {
		cfg.Points.PayoutInterval = 5 * time.Minute
	}

	if strings.TrimSpace(cfg.Database.Path) == "" {
		cfg.Database.Path = filepath.Join("data", "chatgate.db")
	}

	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid logging.level %q; allowed: debug, info, warn, error", cfg.Logging.Level)
	}

	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("config: invalid logging.format %q; allowed: text, json", cfg.Logging.Format)
	}

	return nil
}

// HasTwitchLogin reports whether the IRC credentials are present.
func (c *Config) HasTwitchLogin() bool {
	return c.Twitch.Username != "" && c.Twitch.Token != "" && len(c.Twitch.Channels) > 0
}
