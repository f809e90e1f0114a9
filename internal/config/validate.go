package config

import (
	"errors"
	"fmt"
	"strings"

	"internwatch/internal/domain"
	"internwatch/internal/scrape/board"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return errors.New("config validation failed:\n- " + strings.Join(v.Errors, "\n- "))
}

// NormalizeAndValidate returns a normalized copy of cfg and what is wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	return normalizeAndValidate(cfg, true)
}

// NormalizeForDryRun is NormalizeAndValidate without the Telegram
// credential checks; a dry run prints the report instead of sending it.
func NormalizeForDryRun(cfg Config) (Config, Validation) {
	return normalizeAndValidate(cfg, false)
}

func normalizeAndValidate(cfg Config, needTelegram bool) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" || seen[x] {
				continue
			}
			seen[x] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Telegram.Token = strings.TrimSpace(out.Telegram.Token)
	out.Telegram.ChatID = strings.TrimSpace(out.Telegram.ChatID)
	out.Disabled = trimList(out.Disabled)

	// ---- Validation rules ----

	if needTelegram && out.Telegram.Token == "" {
		res.addErr("telegram token is required (set %s or store it in the keychain)", EnvBotToken)
	}
	if needTelegram && out.Telegram.ChatID == "" {
		res.addErr("telegram chat id is required (set %s or telegram.chat_id)", EnvChatID)
	}

	if out.Run.DelaySeconds < 0 {
		res.addErr("run.delay_seconds must be >= 0")
	} else if out.Run.DelaySeconds == 0 {
		res.addWarn("run.delay_seconds is 0; boards may rate-limit back-to-back requests.")
	}

	if out.Run.TimeoutSeconds <= 0 {
		res.addErr("run.timeout_seconds must be > 0")
	} else if out.Run.TimeoutSeconds < 15 || out.Run.TimeoutSeconds > 20 {
		res.addWarn("run.timeout_seconds=%d is outside the usual 15..20 range.", out.Run.TimeoutSeconds)
	}

	if out.Run.HostRatePerSec <= 0 {
		res.addErr("run.host_rate_per_sec must be > 0")
	}
	if out.Run.HostBurst < 1 {
		res.addErr("run.host_burst must be >= 1")
	}

	if strings.TrimSpace(out.Greenhouse.APIBase) == "" {
		res.addErr("greenhouse.api_base is required")
	}

	for _, d := range out.Disabled {
		if !domain.Source(d).Valid() {
			res.addErr("disabled: unknown source %q", d)
		}
	}
	if len(out.Disabled) == len(domain.Sources) {
		res.addWarn("every source is disabled; runs will always report no results.")
	}

	seen := map[domain.Source]bool{}
	for i, b := range out.Boards {
		if seen[b.Source] {
			res.addErr("boards[%d]: duplicate override for %q", i, b.Source)
		}
		seen[b.Source] = true
		if _, err := mergedSpec(b); err != nil {
			res.addErr("boards[%d]: %v", i, err)
		}
	}

	return out, res
}

// Validate fails when cfg cannot drive a run.
func Validate(cfg Config) error {
	_, res := NormalizeAndValidate(cfg)
	return res.Err()
}

// BoardSpecs returns the built-in HTML board specs with overrides applied,
// in pipeline order, minus disabled sources.
func (c Config) BoardSpecs() ([]board.Spec, error) {
	over := map[domain.Source]board.Spec{}
	for _, b := range c.Boards {
		if _, err := mergedSpec(b); err != nil {
			return nil, err
		}
		over[b.Source] = b
	}

	var out []board.Spec
	for _, s := range board.Defaults() {
		if c.IsDisabled(string(s.Source)) {
			continue
		}
		if o, ok := over[s.Source]; ok {
			s = board.Merge(s, o)
		}
		out = append(out, s)
	}
	return out, nil
}

func mergedSpec(o board.Spec) (board.Spec, error) {
	for _, s := range board.Defaults() {
		if s.Source == o.Source {
			m := board.Merge(s, o)
			return m, m.Validate()
		}
	}
	return board.Spec{}, fmt.Errorf("no HTML board named %q", o.Source)
}
