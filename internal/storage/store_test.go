package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hammamikhairi/rosario/internal/domain"
	"github.com/hammamikhairi/rosario/internal/logger"
)

func stores(t *testing.T) map[string]domain.KVStore {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)

	mem, err := OpenSQLite(context.Background(), ":memory:", log)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	file, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", DefaultDBName), log)
	if err != nil {
		t.Fatalf("open sqlite file: %v", err)
	}
	t.Cleanup(func() {
		mem.Close()
		file.Close()
	})

	return map[string]domain.KVStore{
		"memory":        NewMemoryStore(log),
		"sqlite-memory": mem,
		"sqlite-file":   file,
	}
}

func TestStoreCRUD(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// Put.
			if err := store.Put(ctx, "rosary_progress_joyful", []byte(`{"currentStepIndex":3}`)); err != nil {
				t.Fatalf("put: %v", err)
			}

			// Get.
			got, err := store.Get(ctx, "rosary_progress_joyful")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if string(got) != `{"currentStepIndex":3}` {
				t.Fatalf("unexpected value %s", got)
			}

			// Overwrite.
			if err := store.Put(ctx, "rosary_progress_joyful", []byte(`{"currentStepIndex":4}`)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, _ = store.Get(ctx, "rosary_progress_joyful")
			if string(got) != `{"currentStepIndex":4}` {
				t.Fatalf("overwrite not visible: %s", got)
			}

			// Delete.
			if err := store.Delete(ctx, "rosary_progress_joyful"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := store.Get(ctx, "rosary_progress_joyful"); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if err := store.Delete(ctx, "rosary_progress_joyful"); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
			}
		})
	}
}

func TestStoreKeys(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, k := range []string{"rosary_progress_sorrowful", "pref_fruit_announcement", "rosary_progress_joyful", "sacred_progress"} {
				if err := store.Put(ctx, k, []byte("1")); err != nil {
					t.Fatalf("put %s: %v", k, err)
				}
			}

			keys, err := store.Keys(ctx, "rosary_progress_")
			if err != nil {
				t.Fatalf("keys: %v", err)
			}
			want := []string{"rosary_progress_joyful", "rosary_progress_sorrowful"}
			if len(keys) != len(want) {
				t.Fatalf("expected %v, got %v", want, keys)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Fatalf("expected %v, got %v", want, keys)
				}
			}

			all, _ := store.Keys(ctx, "")
			if len(all) != 4 {
				t.Fatalf("expected 4 keys, got %v", all)
			}
		})
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore(logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	v := []byte("abc")
	store.Put(ctx, "k", v)
	v[0] = 'x'

	got, _ := store.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("store aliased caller slice: %s", got)
	}
}
