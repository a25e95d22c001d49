package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func stateStores(t *testing.T) map[string]StateStore {
	t.Helper()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := WithStoreClock(func() time.Time { return now })

	sqlite, err := OpenSQLiteStateStore(context.Background(), filepath.Join(t.TempDir(), "state", "builder.db"), clock)
	if err != nil {
		t.Fatalf("OpenSQLiteStateStore: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]StateStore{
		"memory": NewMemoryStateStore(clock),
		"sqlite": sqlite,
	}
}

func TestStateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stateStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(ctx, "missing"); !IsNotFound(err) {
				t.Fatalf("expected not found, got %v", err)
			}

			put, err := store.Put(ctx, SiteKey("prj_1"), []byte(`{"a":1}`))
			if err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := store.Get(ctx, SiteKey("prj_1"))
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if diff := cmp.Diff(put, got); diff != "" {
				t.Fatalf("record mismatch (-put +got):\n%s", diff)
			}

			if _, err := store.Put(ctx, SiteKey("prj_1"), []byte(`{"a":2}`)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, err = store.Get(ctx, SiteKey("prj_1"))
			if err != nil {
				t.Fatalf("Get after overwrite: %v", err)
			}
			if string(got.Value) != `{"a":2}` {
				t.Fatalf("expected overwritten value, got %s", got.Value)
			}

			if err := store.Delete(ctx, SiteKey("prj_1")); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := store.Delete(ctx, SiteKey("prj_1")); err != nil {
				t.Fatalf("second Delete: %v", err)
			}
			if _, err := store.Get(ctx, SiteKey("prj_1")); !IsNotFound(err) {
				t.Fatalf("expected not found after delete, got %v", err)
			}
			if err := store.Ping(ctx); err != nil {
				t.Fatalf("Ping: %v", err)
			}
		})
	}
}

func TestStateStoreKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	for name, store := range stateStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{PreviewModeKey, ProjectStateKey, SiteKey("a"), SiteKey("b")} {
				if _, err := store.Put(ctx, key, []byte(key)); err != nil {
					t.Fatalf("Put %s: %v", key, err)
				}
			}
			for _, key := range []string{PreviewModeKey, ProjectStateKey, SiteKey("a"), SiteKey("b")} {
				got, err := store.Get(ctx, key)
				if err != nil {
					t.Fatalf("Get %s: %v", key, err)
				}
				if string(got.Value) != key {
					t.Fatalf("key %s holds %s", key, got.Value)
				}
			}
		})
	}
}

func TestStateStoreRejectsEmptyKey(t *testing.T) {
	for name, store := range stateStores(t) {
		if _, err := store.Put(context.Background(), "  ", []byte("x")); err == nil {
			t.Fatalf("%s: expected error for empty key", name)
		}
	}
}

func TestMemoryStateStoreCopiesValues(t *testing.T) {
	store := NewMemoryStateStore()
	value := []byte("abc")
	if _, err := store.Put(context.Background(), "k", value); err != nil {
		t.Fatalf("Put: %v", err)
	}
	value[0] = 'z'
	got, err := store.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got.Value) != "abc" {
		t.Fatalf("stored value aliased caller slice: %s", got.Value)
	}
}

func TestDocumentIDEscapesSlashes(t *testing.T) {
	if got := DocumentID(SiteKey("prj_1")); got != "website-builder-storage%2Fprj_1" {
		t.Fatalf("unexpected document id %s", got)
	}
	if got := DocumentID(PreviewModeKey); got != "preview-mode" {
		t.Fatalf("unexpected document id %s", got)
	}
}
