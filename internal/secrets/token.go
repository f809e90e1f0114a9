package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// “Service” groups the app's secrets in the OS keychain.
	KeyringService = "internwatch"

	botTokenAccount = "telegram-bot-token"
)

var ErrNoToken = errors.New("telegram bot token not found in keychain")

func GetBotToken() (string, error) {
	tok, err := keyring.Get(KeyringService, botTokenAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", err
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

func SetBotToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(KeyringService, botTokenAccount, strings.TrimSpace(token))
}

func DeleteBotToken() error {
	return keyring.Delete(KeyringService, botTokenAccount)
}

// ResolveBotToken returns current when already set (env or config file),
// otherwise falls back to the keychain.
func ResolveBotToken(current string) (string, error) {
	if strings.TrimSpace(current) != "" {
		return strings.TrimSpace(current), nil
	}
	return GetBotToken()
}
