package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/luminahq/insight-engine/internal/interfaces"
)

// kvEntry is the stored representation of one key/value pair
type kvEntry struct {
	Key       string `badgerhold:"key"`
	Value     string
	UpdatedAt time.Time
}

// KVStorage implements the KeyValueStorage interface for Badger
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKVStorage creates a new KVStorage instance
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{
		db:     db,
		logger: logger,
	}
}

func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	var entry kvEntry
	if err := s.db.Store().Get(key, &entry); err != nil {
		if err == badgerhold.ErrNotFound {
			return "", fmt.Errorf("key not found: %s", key)
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return entry.Value, nil
}

func (s *KVStorage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	entry := kvEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}

	if err := s.db.Store().Upsert(key, &entry); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (s *KVStorage) Delete(ctx context.Context, key string) error {
	if err := s.db.Store().Delete(key, &kvEntry{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}
