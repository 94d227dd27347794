package domain

import (
	"strings"
	"time"
)

// Domain contains core models shared across the sync pipeline.

// Category classifies a news item as published by the upstream feed.
type Category int

const (
	CategoryGeneral Category = iota
	CategoryDevelopment
	CategoryCommunity
)

// ParseCategory maps the feed's raw category string to a Category.
// Unrecognized values fall back to CategoryGeneral.
func ParseCategory(raw string) Category {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "development", "dev":
		return CategoryDevelopment
	case "community":
		return CategoryCommunity
	default:
		return CategoryGeneral
	}
}

func (c Category) String() string {
	switch c {
	case CategoryDevelopment:
		return "development"
	case CategoryCommunity:
		return "community"
	default:
		return "general"
	}
}

// NewsItem is a single feed entry after adaptation, before translation.
type NewsItem struct {
	ID       int64     `json:"id"`
	Date     time.Time `json:"date"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Excerpt  string    `json:"excerpt,omitempty"`
	Category Category  `json:"category"`
	Type     string    `json:"type"`
	Updated  bool      `json:"updated"`
}

// TranslatedNewsItem carries a NewsItem plus its Spanish translation.
// TitleES/ContentES stay empty for items that were merged in without
// passing through the translator.
type TranslatedNewsItem struct {
	NewsItem
	TitleES      string    `json:"title_es,omitempty"`
	ContentES    string    `json:"content_es,omitempty"`
	TranslatedAt time.Time `json:"translated_at,omitzero"`
}

// NewsStorage is the persisted cache document consumed by the public site.
type NewsStorage struct {
	LastUpdated time.Time            `json:"last_updated"`
	News        []TranslatedNewsItem `json:"news"`
}

// ContainsID reports whether the storage already holds an item with the id.
func (s *NewsStorage) ContainsID(id int64) bool {
	_, ok := s.ItemByID(id)
	return ok
}

// ItemByID returns the stored item with the given id, if present.
func (s *NewsStorage) ItemByID(id int64) (TranslatedNewsItem, bool) {
	for i := range s.News {
		if s.News[i].ID == id {
			return s.News[i], true
		}
	}
	return TranslatedNewsItem{}, false
}
