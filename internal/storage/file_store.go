package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/embergate-hq/ember-news-sync/internal/domain"
	"github.com/embergate-hq/ember-news-sync/internal/logger"
)

// FileStore persists the translated news cache as one indented JSON document.
// The file is the system of record consumed by the public site between runs.
type FileStore struct {
	path string
}

// NewFileStore builds a store for the given cache file path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("cache file path is empty")
	}
	return &FileStore{path: path}, nil
}

// Path returns the cache file location.
func (f *FileStore) Path() string { return f.path }

// Load reads the persisted cache. A missing, unreadable or malformed file is
// treated as an empty cache so the run can proceed in bootstrap mode.
func (f *FileStore) Load() *domain.NewsStorage {
	fresh := func() *domain.NewsStorage {
		return &domain.NewsStorage{
			LastUpdated: time.Now().UTC(),
			News:        []domain.TranslatedNewsItem{},
		}
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WarnObj("news cache unreadable, starting from empty", "cache_read_error", map[string]any{
				"path":  f.path,
				"error": err.Error(),
			})
		}
		return fresh()
	}

	var stored domain.NewsStorage
	if err := json.Unmarshal(raw, &stored); err != nil {
		logger.WarnObj("news cache malformed, starting from empty", "cache_read_error", map[string]any{
			"path":  f.path,
			"error": err.Error(),
		})
		return fresh()
	}
	if stored.News == nil {
		stored.News = []domain.TranslatedNewsItem{}
	}
	return &stored
}

// Save overwrites the cache file with the given storage, creating the parent
// directory when absent. The previous on-disk version survives a failed write.
func (f *FileStore) Save(s *domain.NewsStorage) error {
	dir := filepath.Dir(f.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}

	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal news cache: %w", err)
	}
	if err := os.WriteFile(f.path, raw, 0o644); err != nil {
		return fmt.Errorf("write news cache: %w", err)
	}
	return nil
}
