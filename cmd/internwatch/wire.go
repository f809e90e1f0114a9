package main

import (
	"fmt"
	"io"
	"log"
	"net/http"

	"internwatch/internal/config"
	"internwatch/internal/domain"
	"internwatch/internal/notify"
	"internwatch/internal/poll"
	"internwatch/internal/scrape/board"
	"internwatch/internal/scrape/greenhouse"
	"internwatch/internal/scrape/types"
	"internwatch/internal/scrape/util"
	"internwatch/internal/store"
)

// buildFetchers returns the enabled fetchers in pipeline order: the
// Greenhouse API first, then the HTML boards.
func buildFetchers(cfg config.Config, hc *http.Client, limiter *util.HostLimiter) ([]types.Fetcher, error) {
	var out []types.Fetcher

	if !cfg.IsDisabled(string(domain.SourceGreenhouseStripe)) {
		out = append(out, greenhouse.New(greenhouse.Config{
			APIBase:  cfg.Greenhouse.APIBase,
			Company:  cfg.Greenhouse.Company,
			Location: cfg.Greenhouse.Location,
		}, hc, limiter))
	}

	specs, err := cfg.BoardSpecs()
	if err != nil {
		return nil, err
	}
	for _, spec := range specs {
		s, err := board.New(spec, hc, limiter)
		if err != nil {
			return nil, fmt.Errorf("board %s: %w", spec.Source, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// buildRunner wires one poll.Runner from cfg. The returned func releases the
// journal, if any.
func buildRunner(cfg config.Config, dryRun bool, stdout io.Writer) (*poll.Runner, func(), error) {
	hc := &http.Client{Timeout: cfg.Timeout()}
	limiter := util.NewHostLimiter(cfg.Run.HostRatePerSec, cfg.Run.HostBurst)

	fetchers, err := buildFetchers(cfg, hc, limiter)
	if err != nil {
		return nil, nil, err
	}

	var n notify.Notifier
	if dryRun {
		n = notify.Stdout{W: stdout}
	} else {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			APIBase: cfg.Telegram.APIBase,
			Token:   cfg.Telegram.Token,
			ChatID:  cfg.Telegram.ChatID,
		}, hc)
		if err != nil {
			return nil, nil, err
		}
		n = tg
	}

	r := &poll.Runner{
		Fetchers:   fetchers,
		Notifier:   n,
		Delay:      cfg.Delay(),
		Concurrent: cfg.Run.Concurrent,
	}

	closeFn := func() {}
	if cfg.Journal.Path != "" {
		db, err := store.Open(cfg.Journal.Path)
		if err != nil {
			// The journal is optional; a broken one must not block delivery.
			log.Printf("[journal] open %s: %v (continuing without journal)", cfg.Journal.Path, err)
		} else {
			r.Journal = db
			closeFn = func() { _ = db.Close() }
		}
	}
	return r, closeFn, nil
}
