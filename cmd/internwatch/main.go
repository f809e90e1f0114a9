package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"internwatch/internal/config"
	"internwatch/internal/poll"
	"internwatch/internal/scheduler"
	"internwatch/internal/secrets"
	"internwatch/internal/store"

	"github.com/gofrs/flock"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		cfgPath  = flag.String("config", "", "path to config.yml (defaults apply when empty)")
		envFile  = flag.String("env", ".env", "dotenv file loaded before reading the environment")
		dryRun   = flag.Bool("dry-run", false, "print the report to stdout instead of sending it")
		every    = flag.Duration("every", 0, "repeat the run on this interval until interrupted")
		setToken = flag.Bool("set-token", false, "read a Telegram bot token from stdin and store it in the keychain")
		history  = flag.Int("history", 0, "print the last N journal runs and exit")
	)
	flag.Parse()

	if *setToken {
		return storeToken()
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Printf("[config] dotenv %s: %v", *envFile, err)
		return 1
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Printf("[config] load failed (%s): %v", *cfgPath, err)
		return 1
	}
	config.ApplyEnv(&cfg, os.Getenv)

	if *history > 0 {
		return printHistory(cfg.Journal.Path, *history)
	}

	if !*dryRun {
		tok, err := secrets.ResolveBotToken(cfg.Telegram.Token)
		if err != nil {
			log.Printf("[secrets] %v", err)
		}
		cfg.Telegram.Token = tok
	}

	validate := config.NormalizeAndValidate
	if *dryRun {
		validate = config.NormalizeForDryRun
	}
	cfg, res := validate(cfg)
	for _, w := range res.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if err := res.Err(); err != nil {
		log.Printf("[config] %v", err)
		return 1
	}

	lock := flock.New(cfg.Run.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		log.Printf("[lock] %s: %v", cfg.Run.LockFile, err)
		return 1
	}
	if !locked {
		log.Printf("[lock] another run holds %s", cfg.Run.LockFile)
		return 1
	}
	defer func() { _ = lock.Unlock() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, closeFn, err := buildRunner(cfg, *dryRun, os.Stdout)
	if err != nil {
		log.Printf("[engine] %v", err)
		return 1
	}
	defer closeFn()

	if *every > 0 {
		log.Printf("[engine] scheduling every=%s sources=%d", *every, len(runner.Fetchers))
		scheduler.Every(ctx, *every, "run", func(ctx context.Context) error {
			out := runner.Run(ctx)
			log.Printf("[engine] run status=%s total=%d", out.Status(), len(out.Listings))
			return out.Err
		})
		return 0
	}

	out := runner.Run(ctx)
	log.Printf("[engine] run status=%s total=%d took=%s",
		out.Status(), len(out.Listings), out.FinishedAt.Sub(out.StartedAt).Round(time.Millisecond))
	return exitCode(out)
}

func exitCode(out poll.Outcome) int {
	if out.OK() {
		return 0
	}
	return 1
}

func storeToken() int {
	fmt.Fprint(os.Stderr, "Telegram bot token: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		log.Printf("[secrets] read token: %v", err)
		return 1
	}
	tok := strings.TrimSpace(line)
	if tok == "" {
		log.Printf("[secrets] empty token, nothing stored")
		return 1
	}
	if err := secrets.SetBotToken(tok); err != nil {
		log.Printf("[secrets] store token: %v", err)
		return 1
	}
	log.Printf("[secrets] token stored in keychain service=%s", secrets.KeyringService)
	return 0
}

func printHistory(path string, n int) int {
	if path == "" {
		log.Printf("[journal] no journal configured (journal.path or %s)", config.EnvJournal)
		return 1
	}
	db, err := store.Open(path)
	if err != nil {
		log.Printf("[journal] open %s: %v", path, err)
		return 1
	}
	defer db.Close()

	ctx := context.Background()
	runs, err := db.RecentRuns(ctx, n)
	if err != nil {
		log.Printf("[journal] %v", err)
		return 1
	}
	for _, r := range runs {
		fmt.Printf("#%d %s status=%s total=%d\n", r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, r.Total)
		srcs, err := db.RunSources(ctx, r.ID)
		if err != nil {
			log.Printf("[journal] run %d sources: %v", r.ID, err)
			continue
		}
		for _, s := range srcs {
			line := fmt.Sprintf("  %-18s count=%d tier=%s", s.Source, s.Count, s.Tier)
			if s.ErrorKind != "" {
				line += " kind=" + s.ErrorKind
			}
			fmt.Println(line)
		}
	}
	return 0
}
