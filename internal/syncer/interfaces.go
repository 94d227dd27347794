package syncer

import (
	"context"

	"github.com/embergate-hq/ember-news-sync/internal/domain"
	"github.com/embergate-hq/ember-news-sync/pkg/publishers"
)

// FeedClient retrieves news items from the upstream feed.
type FeedClient interface {
	FetchLatest(ctx context.Context, limit int) ([]domain.NewsItem, error)
	FetchContent(ctx context.Context, id int64) (string, error)
}

// Translator produces translated items; it never fails, degraded fields keep
// the original text.
type Translator interface {
	TranslateItem(ctx context.Context, item domain.NewsItem) domain.TranslatedNewsItem
	TranslateBatch(ctx context.Context, items []domain.NewsItem) []domain.TranslatedNewsItem
}

// CacheStore persists the translated news cache between runs.
type CacheStore interface {
	Load() *domain.NewsStorage
	Save(s *domain.NewsStorage) error
}

// EventSink receives a summary event after a run that wrote the cache.
type EventSink interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
	Size() int
}
