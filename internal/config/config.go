package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"time"

	"internwatch/internal/domain"
	"internwatch/internal/scrape/board"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		Token   string `yaml:"token,omitempty"` // prefer TELEGRAM_BOT_TOKEN or the keychain
		ChatID  string `yaml:"chat_id"`
		APIBase string `yaml:"api_base"`
	} `yaml:"telegram"`

	Run struct {
		DelaySeconds   int     `yaml:"delay_seconds"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		Concurrent     bool    `yaml:"concurrent"`
		HostRatePerSec float64 `yaml:"host_rate_per_sec"`
		HostBurst      int     `yaml:"host_burst"`
		LockFile       string  `yaml:"lock_file"`
	} `yaml:"run"`

	Greenhouse struct {
		APIBase  string `yaml:"api_base"`
		Company  string `yaml:"company"`
		Location string `yaml:"location"`
	} `yaml:"greenhouse"`

	// Boards overrides built-in board specs by source; unset fields keep
	// the built-in value.
	Boards []board.Spec `yaml:"boards,omitempty"`

	// Disabled lists sources to skip entirely.
	Disabled []string `yaml:"disabled,omitempty"`

	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`
}

func Default() Config {
	var cfg Config
	cfg.Telegram.APIBase = "https://api.telegram.org"

	cfg.Run.DelaySeconds = 2
	cfg.Run.TimeoutSeconds = 20
	cfg.Run.HostRatePerSec = 1
	cfg.Run.HostBurst = 2
	cfg.Run.LockFile = "internwatch.lock"

	cfg.Greenhouse.APIBase = "https://boards-api.greenhouse.io/v1/boards/stripe"
	cfg.Greenhouse.Company = "Stripe"
	cfg.Greenhouse.Location = domain.NotSpecified
	return cfg
}

// Load reads path over the defaults. An empty path yields the defaults.
// Unknown keys are an error so a stale or misspelled option is not
// silently ignored.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Delay() time.Duration { return time.Duration(c.Run.DelaySeconds) * time.Second }

func (c Config) Timeout() time.Duration { return time.Duration(c.Run.TimeoutSeconds) * time.Second }

// IsDisabled reports whether source was switched off in the config.
func (c Config) IsDisabled(source string) bool {
	for _, d := range c.Disabled {
		if d == source {
			return true
		}
	}
	return false
}
