package syncer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/embergate-hq/ember-news-sync/internal/domain"
	"github.com/embergate-hq/ember-news-sync/internal/feed"
	"github.com/embergate-hq/ember-news-sync/internal/logger"
	"github.com/embergate-hq/ember-news-sync/internal/storage"
	"github.com/embergate-hq/ember-news-sync/pkg/publishers"
)

// jobName tags summary events published after a run.
const jobName = "news-sync"

// Run modes reported in Result.Mode.
const (
	ModeBootstrap   = "bootstrap"
	ModeIncremental = "incremental"
	ModeNoop        = "noop"
)

// Service drives one end-to-end sync run:
// fetch, select, translate, merge, sort/cap, persist, notify.
type Service struct {
	feed       FeedClient
	translator Translator
	store      CacheStore
	ledger     storage.Ledger
	sink       EventSink
	maxNews    int
}

// NewService wires the orchestrator. ledger and sink may be nil.
func NewService(feedClient FeedClient, translator Translator, store CacheStore, ledger storage.Ledger, sink EventSink, maxNews int) (*Service, error) {
	if feedClient == nil {
		return nil, fmt.Errorf("feed client must not be nil")
	}
	if translator == nil {
		return nil, fmt.Errorf("translator must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("cache store must not be nil")
	}
	if maxNews <= 0 {
		return nil, fmt.Errorf("max news count must be positive, got %d", maxNews)
	}
	return &Service{
		feed:       feedClient,
		translator: translator,
		store:      store,
		ledger:     ledger,
		sink:       sink,
		maxNews:    maxNews,
	}, nil
}

// Result reports what a run did.
type Result struct {
	Mode       string
	Fetched    int
	Translated int
	Total      int
	Wrote      bool
}

// Run executes one sync pass. Only a fetch-phase failure is returned as an
// error; everything downstream degrades locally and the persisted state is
// never touched by a failed fetch.
func (s *Service) Run(ctx context.Context, force bool) (Result, error) {
	start := time.Now()

	items, err := s.fetchBatch(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch phase: %w", err)
	}

	stored := s.store.Load()

	var res Result
	if force || len(stored.News) == 0 {
		res = s.runBootstrap(ctx, items, stored)
	} else {
		res = s.runIncremental(ctx, items, stored)
	}

	logger.InfoObj("sync run completed", "run_result", map[string]any{
		"mode":       res.Mode,
		"fetched":    res.Fetched,
		"translated": res.Translated,
		"total":      res.Total,
		"wrote":      res.Wrote,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return res, nil
}

// fetchBatch pulls the latest entries and fans out one content fetch per
// item. A failed detail fetch degrades that item to placeholder content and
// never cancels its siblings.
func (s *Service) fetchBatch(ctx context.Context) ([]domain.NewsItem, error) {
	items, err := s.feed.FetchLatest(ctx, s.maxNews)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			content, err := s.feed.FetchContent(ctx, items[i].ID)
			if err != nil {
				logger.WarnObj("news content fetch degraded to placeholder", "content_error", map[string]any{
					"id":    items[i].ID,
					"error": err.Error(),
				})
				items[i].Content = feed.ContentUnavailable
				return
			}
			items[i].Content = content
			items[i].Excerpt = feed.Excerpt(content)
		}(i)
	}
	wg.Wait()

	return items, nil
}

// runBootstrap translates only the single most-recent fetched item as a smoke
// test of the translation path, then merges it with whatever was stored.
// An empty fetch leaves the cache untouched.
func (s *Service) runBootstrap(ctx context.Context, items []domain.NewsItem, stored *domain.NewsStorage) Result {
	if len(items) == 0 {
		logger.WarnObj("bootstrap requested but feed returned no items", "stored_count", len(stored.News))
		return Result{Mode: ModeNoop, Total: len(stored.News)}
	}

	head := s.translator.TranslateItem(ctx, items[0])

	merged := []domain.TranslatedNewsItem{head}
	seen := map[int64]bool{head.ID: true}
	for _, item := range items[1:] {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		// Never discard a translation that already exists for this id.
		if prior, ok := stored.ItemByID(item.ID); ok {
			merged = append(merged, prior)
			continue
		}
		merged = append(merged, domain.TranslatedNewsItem{NewsItem: item})
	}
	for _, old := range stored.News {
		if !seen[old.ID] {
			seen[old.ID] = true
			merged = append(merged, old)
		}
	}

	return s.finalize(ctx, ModeBootstrap, merged, []domain.TranslatedNewsItem{head}, len(items))
}

// runIncremental translates exactly the fetched items whose ids are new
// relative to the stored cache and the translation ledger. Ledger-known ids
// missing from the cache are carried in untranslated, so the cache keeps
// reflecting the feed window without a second vendor spend.
func (s *Service) runIncremental(ctx context.Context, items []domain.NewsItem, stored *domain.NewsStorage) Result {
	fresh := make([]domain.NewsItem, 0, len(items))
	var passthrough []domain.TranslatedNewsItem
	for _, item := range items {
		if stored.ContainsID(item.ID) {
			continue
		}
		if s.translatedBefore(item.ID) {
			passthrough = append(passthrough, domain.TranslatedNewsItem{NewsItem: item})
			continue
		}
		fresh = append(fresh, item)
	}

	if len(fresh) == 0 && len(passthrough) == 0 {
		logger.InfoObj("no new items, skipping write", "fetched", len(items))
		return Result{Mode: ModeNoop, Fetched: len(items), Total: len(stored.News)}
	}

	var translated []domain.TranslatedNewsItem
	if len(fresh) > 0 {
		translated = s.translator.TranslateBatch(ctx, fresh)
	}

	superseded := make(map[int64]bool, len(translated)+len(passthrough))
	merged := append([]domain.TranslatedNewsItem(nil), translated...)
	merged = append(merged, passthrough...)
	for i := range merged {
		superseded[merged[i].ID] = true
	}
	for _, old := range stored.News {
		if !superseded[old.ID] {
			merged = append(merged, old)
		}
	}

	return s.finalize(ctx, ModeIncremental, merged, translated, len(items))
}

// finalize sorts, caps, persists and notifies. Write and publish failures are
// logged, never fatal; the ledger is updated only after a successful write.
func (s *Service) finalize(ctx context.Context, mode string, merged, translated []domain.TranslatedNewsItem, fetched int) Result {
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})
	if len(merged) > s.maxNews {
		merged = merged[:s.maxNews]
	}

	out := &domain.NewsStorage{
		LastUpdated: time.Now().UTC(),
		News:        merged,
	}

	res := Result{
		Mode:       mode,
		Fetched:    fetched,
		Translated: len(translated),
		Total:      len(merged),
	}

	if err := s.store.Save(out); err != nil {
		logger.ErrorObj("news cache write failed, previous version remains", "cache_write_error", err.Error())
		return res
	}
	res.Wrote = true

	s.markTranslated(translated)
	s.notify(ctx, out, len(translated))

	return res
}

func (s *Service) translatedBefore(id int64) bool {
	if s.ledger == nil {
		return false
	}
	seen, err := s.ledger.Translated(id)
	if err != nil {
		logger.WarnObj("ledger lookup failed, treating item as new", "ledger_error", map[string]any{
			"id":    id,
			"error": err.Error(),
		})
		return false
	}
	return seen
}

func (s *Service) markTranslated(items []domain.TranslatedNewsItem) {
	if s.ledger == nil {
		return
	}
	for i := range items {
		if err := s.ledger.MarkTranslated(items[i].ID); err != nil {
			logger.WarnObj("ledger mark failed", "ledger_error", map[string]any{
				"id":    items[i].ID,
				"error": err.Error(),
			})
		}
	}
}

func (s *Service) notify(ctx context.Context, stored *domain.NewsStorage, newItems int) {
	if s.sink == nil || s.sink.Size() == 0 {
		return
	}

	evt := publishers.NewEvent(jobName, newItems, stored)
	delivered, err := s.sink.Publish(ctx, evt)
	if err != nil {
		logger.WarnObj("sync event delivery incomplete", "publish_error", map[string]any{
			"delivered": delivered,
			"error":     err.Error(),
		})
		return
	}
	logger.DebugObj("sync event delivered", "publish_result", map[string]any{
		"delivered": delivered,
	})
}
