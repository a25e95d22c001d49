package repositories

import (
	"context"
	"net/url"
	"strings"
	"time"

	pfirestore "github.com/espython/website-builder/internal/platform/firestore"
)

type stateDocument struct {
	Key       string    `firestore:"key"`
	Value     []byte    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// FirestoreStateStore stores one document per key. Keys are path-escaped into document ids.
type FirestoreStateStore struct {
	provider   *pfirestore.Provider
	collection string
	base       *pfirestore.BaseRepository[stateDocument]
	now        func() time.Time
}

var _ StateStore = (*FirestoreStateStore)(nil)

// NewFirestoreStateStore binds a store to the given collection.
func NewFirestoreStateStore(provider *pfirestore.Provider, collection string, opts ...StoreOption) *FirestoreStateStore {
	o := applyStoreOptions(opts)
	return &FirestoreStateStore{
		provider:   provider,
		collection: collection,
		base:       pfirestore.NewBaseRepository[stateDocument](provider, collection),
		now:        o.now,
	}
}

// DocumentID maps a state key to a valid Firestore document id.
func DocumentID(key string) string {
	return url.PathEscape(strings.TrimSpace(key))
}

func (s *FirestoreStateStore) Get(ctx context.Context, key string) (StateRecord, error) {
	doc, err := s.base.Get(ctx, DocumentID(key))
	if err != nil {
		return StateRecord{}, err
	}
	updated := doc.Data.UpdatedAt
	if updated.IsZero() {
		updated = doc.UpdateTime
	}
	return StateRecord{Key: strings.TrimSpace(key), Value: doc.Data.Value, UpdatedAt: updated.UTC()}, nil
}

func (s *FirestoreStateStore) Put(ctx context.Context, key string, value []byte) (StateRecord, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return StateRecord{}, failure("firestore.put", key, errEmptyKey)
	}
	now := s.now().UTC()
	if _, err := s.base.Set(ctx, DocumentID(key), stateDocument{Key: key, Value: value, UpdatedAt: now}); err != nil {
		return StateRecord{}, err
	}
	return StateRecord{Key: key, Value: append([]byte(nil), value...), UpdatedAt: now}, nil
}

func (s *FirestoreStateStore) Delete(ctx context.Context, key string) error {
	return s.base.Delete(ctx, DocumentID(key))
}

func (s *FirestoreStateStore) Ping(ctx context.Context) error {
	return s.provider.Ping(ctx, s.collection)
}

// Close is a no-op; the provider owns the client lifecycle.
func (s *FirestoreStateStore) Close() error { return nil }
