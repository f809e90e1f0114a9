package config

import (
	"errors"
	"io/fs"
	"log"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvBotToken = "TELEGRAM_BOT_TOKEN"
	EnvChatID   = "TELEGRAM_CHAT_ID"
	EnvDelay    = "INTERNWATCH_DELAY_SECONDS"
	EnvJournal  = "INTERNWATCH_JOURNAL"
)

// LoadDotEnv loads KEY=VALUE pairs from files into the process environment
// without overriding variables that are already set. Missing files are fine.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ApplyEnv overlays environment values onto cfg.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvBotToken)); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvChatID)); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := strings.TrimSpace(getenv(EnvDelay)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("[config] ignoring %s=%q: %v", EnvDelay, v, err)
		} else {
			cfg.Run.DelaySeconds = n
		}
	}
	if v := strings.TrimSpace(getenv(EnvJournal)); v != "" {
		cfg.Journal.Path = v
	}
}
