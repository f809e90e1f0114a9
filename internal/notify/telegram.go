package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"internwatch/internal/report"
)

const DefaultTelegramAPI = "https://api.telegram.org"

// parseMode matches the escaping report.Build applies.
const parseMode = "HTML"

type TelegramConfig struct {
	APIBase string
	Token   string
	ChatID  string
}

type Telegram struct {
	cfg TelegramConfig
	hc  *http.Client
}

func NewTelegram(cfg TelegramConfig, hc *http.Client) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram: bot token is empty")
	}
	if strings.TrimSpace(cfg.ChatID) == "" {
		return nil, errors.New("telegram: chat id is empty")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultTelegramAPI
	}
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	return &Telegram{cfg: cfg, hc: hc}, nil
}

type sendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Send posts text, split into Telegram-sized chunks, in order. The first
// failed chunk aborts the rest.
func (t *Telegram) Send(ctx context.Context, text string) error {
	chunks := report.Split(text, report.MaxMessageLen)
	for i, chunk := range chunks {
		if err := t.post(ctx, chunk); err != nil {
			return fmt.Errorf("telegram chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	log.Printf("[telegram] delivered chunks=%d chat=%s", len(chunks), t.cfg.ChatID)
	return nil
}

func (t *Telegram) post(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessage{
		ChatID:                t.cfg.ChatID,
		Text:                  text,
		ParseMode:             parseMode,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.cfg.APIBase, "/"), t.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return t.redact(err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := t.hc.Do(req)
	if err != nil {
		return t.redact(err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("status %s: %s", res.Status, strings.TrimSpace(string(b)))
	}
	return nil
}

// net/http errors quote the URL, which carries the token.
func (t *Telegram) redact(err error) error {
	return errors.New(strings.ReplaceAll(err.Error(), t.cfg.Token, "<token>"))
}
