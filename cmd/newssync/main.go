package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/embergate-hq/ember-news-sync/internal/app"
	"github.com/embergate-hq/ember-news-sync/internal/config"
	"github.com/embergate-hq/ember-news-sync/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "news sync failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// -force and --force are equivalent; both select the bootstrap path.
	force := flag.Bool("force", false, "bootstrap: translate only the newest item regardless of cache state")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateCredentials(); err != nil {
		return fmt.Errorf("check credentials: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	log.Infow("news sync starting",
		"feed_base_url", cfg.FeedBaseURL,
		"model", cfg.TranslatorModel,
		"max_news_count", cfg.MaxNewsCount,
		"force", *force,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	job, err := app.NewJob(ctx, cfg)
	if err != nil {
		logger.ErrorObj("failed to initialize sync job", "error", err.Error())
		return err
	}
	defer job.Close()

	res, err := job.Run(ctx, *force)
	if err != nil {
		return fmt.Errorf("sync run: %w", err)
	}

	log.Infow("news sync finished",
		"mode", res.Mode,
		"fetched", res.Fetched,
		"translated", res.Translated,
		"cached", res.Total,
		"wrote", res.Wrote,
	)
	return nil
}
