package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/embergate-hq/ember-news-sync/internal/domain"
	"github.com/embergate-hq/ember-news-sync/internal/logger"
	"github.com/embergate-hq/ember-news-sync/pkg/httpclient"
)

// ContentUnavailable is stored as item content when the detail fetch fails.
const ContentUnavailable = "<p>Content unavailable.</p>"

// Client talks to the upstream game-news feed.
type Client struct {
	http    httpclient.Client
	baseURL string
}

// NewClient builds a feed client for the given base URL.
func NewClient(http httpclient.Client, baseURL string) *Client {
	return &Client{
		http:    http,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

// rawEntry is a single entry as delivered by the feed's latest endpoint.
type rawEntry struct {
	ID       int64  `json:"id"`
	Date     string `json:"date"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Type     string `json:"type"`
	Updated  bool   `json:"updated"`
}

// entriesEnvelope is the wrapped response shape some feed deployments return.
type entriesEnvelope struct {
	Entries []rawEntry `json:"entries"`
}

// FetchLatest retrieves the newest feed entries, adapted to NewsItems without
// content, truncated to limit. Any failure here is fatal to the sync run.
func (c *Client) FetchLatest(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	body, err := c.get(ctx, c.baseURL+"/news/latest")
	if err != nil {
		return nil, fmt.Errorf("fetch latest news: %w", err)
	}

	entries, err := decodeEntries(body)
	if err != nil {
		return nil, fmt.Errorf("decode latest news: %w", err)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	items := make([]domain.NewsItem, 0, len(entries))
	for i, entry := range entries {
		item, err := adaptEntry(entry)
		if err != nil {
			logger.WarnObj("feed entry adaptation failed", "entry_error", map[string]any{
				"index": i,
				"id":    entry.ID,
				"error": err.Error(),
			})
			item = placeholderItem(entry)
		}
		items = append(items, item)
	}
	return items, nil
}

// contentEnvelope is the detail response shape; the HTML body nests under content.
type contentEnvelope struct {
	Content string `json:"content"`
}

// FetchContent retrieves the full HTML body for one news item. Failures are
// returned to the caller, which degrades to ContentUnavailable.
func (c *Client) FetchContent(ctx context.Context, id int64) (string, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/news/%d", c.baseURL, id))
	if err != nil {
		return "", fmt.Errorf("fetch news %d content: %w", id, err)
	}

	var envelope contentEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("decode news %d content: %w", id, err)
	}
	if strings.TrimSpace(envelope.Content) == "" {
		return "", fmt.Errorf("news %d detail response has no content field", id)
	}
	return envelope.Content, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.http.Get(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d body: %s", resp.StatusCode(), responseSnippet(body))
	}
	return body, nil
}

// decodeEntries accepts either a bare array of entries or an object wrapping
// them under "entries".
func decodeEntries(body []byte) ([]rawEntry, error) {
	var direct []rawEntry
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var envelope entriesEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("response is neither an entry array nor an entries envelope: %w", err)
	}
	if envelope.Entries == nil {
		return nil, fmt.Errorf("entries envelope has no entries field")
	}
	return envelope.Entries, nil
}

// adaptEntry maps a raw feed entry to a NewsItem without content.
func adaptEntry(entry rawEntry) (domain.NewsItem, error) {
	if entry.ID <= 0 {
		return domain.NewsItem{}, fmt.Errorf("entry has no usable id")
	}

	date, err := parseDate(entry.Date)
	if err != nil {
		return domain.NewsItem{}, fmt.Errorf("entry %d date %q: %w", entry.ID, entry.Date, err)
	}

	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = fmt.Sprintf("News #%d", entry.ID)
	}

	return domain.NewsItem{
		ID:       entry.ID,
		Date:     date,
		Title:    title,
		Category: domain.ParseCategory(entry.Category),
		Type:     strings.TrimSpace(entry.Type),
		Updated:  entry.Updated,
	}, nil
}

// placeholderItem keeps a malformed entry in the batch instead of aborting it.
func placeholderItem(entry rawEntry) domain.NewsItem {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = fmt.Sprintf("News #%d", entry.ID)
	}
	return domain.NewsItem{
		ID:       entry.ID,
		Date:     time.Now().UTC(),
		Title:    title,
		Category: domain.CategoryGeneral,
		Type:     strings.TrimSpace(entry.Type),
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
