package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// OwnerID is seeded into the allow list and gets the default account on boot.
	OwnerID int64 `env:"OWNER_TELEGRAM_ID,required"`

	// Admin
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	// Telegram logging
	LogTelegramChatID int64 `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError     int   `env:"LOG_TOPIC_ERROR"`
	LogTopicPurchase  int   `env:"LOG_TOPIC_PURCHASE"`
	LogTopicRefund    int   `env:"LOG_TOPIC_REFUND"`
	LogTopicAccess    int   `env:"LOG_TOPIC_ACCESS"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsAdmin(telegramID int64) bool {
	if telegramID == c.OwnerID {
		return true
	}
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
