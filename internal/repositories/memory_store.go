package repositories

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStateStore keeps state in process memory. It is the default backend for local use and tests.
type MemoryStateStore struct {
	mu      sync.RWMutex
	records map[string]StateRecord
	now     func() time.Time
}

var _ StateStore = (*MemoryStateStore)(nil)

// StoreOption customises the memory and SQLite state stores.
type StoreOption func(*storeOptions)

type storeOptions struct {
	now func() time.Time
}

// WithStoreClock overrides the clock used for UpdatedAt stamps.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func applyStoreOptions(opts []StoreOption) storeOptions {
	o := storeOptions{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// NewMemoryStateStore constructs an empty in-memory store.
func NewMemoryStateStore(opts ...StoreOption) *MemoryStateStore {
	o := applyStoreOptions(opts)
	return &MemoryStateStore{records: make(map[string]StateRecord), now: o.now}
}

func (s *MemoryStateStore) Get(_ context.Context, key string) (StateRecord, error) {
	key = strings.TrimSpace(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	if !ok {
		return StateRecord{}, notFound("memory.get", key)
	}
	record.Value = append([]byte(nil), record.Value...)
	return record, nil
}

func (s *MemoryStateStore) Put(_ context.Context, key string, value []byte) (StateRecord, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return StateRecord{}, failure("memory.put", key, errEmptyKey)
	}
	record := StateRecord{Key: key, Value: append([]byte(nil), value...), UpdatedAt: s.now().UTC()}
	s.mu.Lock()
	s.records[key] = record
	s.mu.Unlock()
	record.Value = append([]byte(nil), value...)
	return record, nil
}

func (s *MemoryStateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, strings.TrimSpace(key))
	s.mu.Unlock()
	return nil
}

func (s *MemoryStateStore) Ping(context.Context) error { return nil }

func (s *MemoryStateStore) Close() error { return nil }
