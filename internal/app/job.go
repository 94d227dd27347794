package app

import (
	"context"
	"fmt"

	"github.com/embergate-hq/ember-news-sync/internal/config"
	"github.com/embergate-hq/ember-news-sync/internal/feed"
	"github.com/embergate-hq/ember-news-sync/internal/logger"
	"github.com/embergate-hq/ember-news-sync/internal/storage"
	"github.com/embergate-hq/ember-news-sync/internal/syncer"
	"github.com/embergate-hq/ember-news-sync/internal/translator"
	"github.com/embergate-hq/ember-news-sync/pkg/httpclient"
	"github.com/embergate-hq/ember-news-sync/pkg/publishers"
)

// Job wires the feed client, translator, stores and publishers into one
// runnable sync pass. All collaborators are constructed once here and passed
// in explicitly, so tests can substitute any of them at the syncer level.
type Job struct {
	cfg     *config.Config
	service *syncer.Service
	ledger  storage.Ledger
}

// NewJob builds the one-shot sync job from config.
func NewJob(ctx context.Context, cfg *config.Config) (*Job, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	feedClient := feed.NewClient(httpclient.NewRestyClient(cfg.FeedTimeout), cfg.FeedBaseURL)

	engine := translator.New(cfg.TranslatorAPIKey, cfg.TranslatorBaseURL, translator.Options{
		Model:       cfg.TranslatorModel,
		Temperature: float32(cfg.TranslatorTemperature),
		MaxTokens:   cfg.TranslatorMaxTokens,
		Timeout:     cfg.TranslatorTimeout,
	})

	store, err := storage.NewFileStore(cfg.CacheFilePath)
	if err != nil {
		return nil, fmt.Errorf("init cache store: %w", err)
	}

	ledger, err := storage.NewLedger(cfg.LedgerType, cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("init translation ledger: %w", err)
	}
	logger.InfoObj("stores initialized", "storage_config", map[string]any{
		"cache_path":  cfg.CacheFilePath,
		"ledger_type": cfg.LedgerType,
		"ledger_path": cfg.LedgerPath,
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile)
	if err != nil {
		ledger.Close()
		return nil, err
	}

	service, err := syncer.NewService(feedClient, engine, store, ledger, fanout, cfg.MaxNewsCount)
	if err != nil {
		ledger.Close()
		return nil, fmt.Errorf("init sync service: %w", err)
	}

	return &Job{
		cfg:     cfg,
		service: service,
		ledger:  ledger,
	}, nil
}

// buildFanout loads the optional publishers file. No file configured means no
// downstream notification, which is valid.
func buildFanout(ctx context.Context, path string) (*publishers.Fanout, error) {
	if path == "" {
		return publishers.NewFanout(nil), nil
	}

	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, logObjAdapter{})
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, cfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   cfg.ID,
			"type": cfg.Type,
		})
	}
	logger.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})

	return publishers.NewFanout(pubs), nil
}

// Run executes exactly one sync pass.
func (j *Job) Run(ctx context.Context, force bool) (syncer.Result, error) {
	if j == nil || j.service == nil {
		return syncer.Result{}, fmt.Errorf("job is not initialized")
	}
	return j.service.Run(ctx, force)
}

// Close releases the ledger handle.
func (j *Job) Close() {
	if j == nil || j.ledger == nil {
		return
	}
	if err := j.ledger.Close(); err != nil {
		logger.ErrorObj("ledger close failed", "error", err.Error())
	}
}

// logObjAdapter satisfies the publishers.Logger interface with the package logger.
type logObjAdapter struct{}

func (logObjAdapter) InfoObj(msg, key string, obj interface{})  { logger.InfoObj(msg, key, obj) }
func (logObjAdapter) DebugObj(msg, key string, obj interface{}) { logger.DebugObj(msg, key, obj) }
func (logObjAdapter) WarnObj(msg, key string, obj interface{})  { logger.WarnObj(msg, key, obj) }
func (logObjAdapter) ErrorObj(msg, key string, obj interface{}) { logger.ErrorObj(msg, key, obj) }
