package publishers

import (
	"time"

	"github.com/embergate-hq/ember-news-sync/internal/domain"
)

// Event summarizes a completed sync run for downstream consumers.
type Event struct {
	Job         string      `json:"job"`
	NewItems    int         `json:"new_items"`
	TotalItems  int         `json:"total_items"`
	LastUpdated time.Time   `json:"last_updated"`
	Items       []EventItem `json:"items,omitempty"`
}

// EventItem is a trimmed view of a translated news item carried in the event.
type EventItem struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	TitleES  string `json:"title_es,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
	Category string `json:"category"`
}

// NewEvent constructs an Event from the persisted storage and the count of
// items translated in this run.
func NewEvent(job string, newItems int, stored *domain.NewsStorage) Event {
	evt := Event{
		Job:         job,
		NewItems:    newItems,
		TotalItems:  len(stored.News),
		LastUpdated: stored.LastUpdated,
	}
	for i := range stored.News {
		item := &stored.News[i]
		evt.Items = append(evt.Items, EventItem{
			ID:       item.ID,
			Title:    item.Title,
			TitleES:  item.TitleES,
			Excerpt:  item.Excerpt,
			Category: item.Category.String(),
		})
	}
	return evt
}
