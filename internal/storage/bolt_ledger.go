package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	translatedBucket = "translated_news"
	ledgerValueBytes = 8
)

// boltLedger implements a Ledger backed by BoltDB. Entries never expire:
// translation is append-only, so a marked id stays marked for good.
type boltLedger struct {
	db *bolt.DB
}

// openBoltLedger initializes a BoltDB-backed Ledger.
func openBoltLedger(path string) (Ledger, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt ledger: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(translatedBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init ledger bucket: %w", err)
	}

	return &boltLedger{db: db}, nil
}

// Close closes the underlying BoltDB.
func (b *boltLedger) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Translated reports whether the item id has ever been translated.
func (b *boltLedger) Translated(id int64) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}

	var exists bool
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(translatedBucket))
		if bucket == nil {
			return fmt.Errorf("translated bucket missing")
		}
		exists = bucket.Get(ledgerKey(id)) != nil
		return nil
	})
	return exists, err
}

// MarkTranslated records the item id with the time it was translated.
func (b *boltLedger) MarkTranslated(id int64) error {
	if b == nil || b.db == nil {
		return nil
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(translatedBucket))
		if bucket == nil {
			return fmt.Errorf("translated bucket missing")
		}
		buf := make([]byte, ledgerValueBytes)
		binary.BigEndian.PutUint64(buf, uint64(time.Now().Unix()))
		return bucket.Put(ledgerKey(id), buf)
	})
}

func ledgerKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}
