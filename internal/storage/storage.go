package storage

import (
	"fmt"
	"strings"
)

// Package storage provides the persisted news cache and the translation ledger.

// Ledger tracks which item ids have ever been translated, so an id that fell
// past the cache cap and reappears upstream is not translated a second time.
type Ledger interface {
	Close() error
	Translated(id int64) (bool, error)
	MarkTranslated(id int64) error
}

// NewLedger creates the configured ledger backend.
func NewLedger(typ, path string) (Ledger, error) {
	switch strings.TrimSpace(strings.ToLower(typ)) {
	case "", "none", "disabled":
		return noopLedger{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt ledger requires a path")
		}
		return openBoltLedger(path)
	default:
		return nil, fmt.Errorf("unsupported ledger type %q", typ)
	}
}

type noopLedger struct{}

func (noopLedger) Close() error                    { return nil }
func (noopLedger) Translated(int64) (bool, error)  { return false, nil }
func (noopLedger) MarkTranslated(int64) error      { return nil }
