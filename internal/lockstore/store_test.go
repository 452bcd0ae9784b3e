package lockstore_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"appctl/internal/config"
	"appctl/internal/lockstore"
)

type backend struct {
	name string
	open func(t *testing.T) lockstore.Store
}

func backends() []backend {
	return []backend{
		{name: "file", open: func(t *testing.T) lockstore.Store {
			return lockstore.NewFileStore(filepath.Join(t.TempDir(), "locks"))
		}},
		{name: "sqlite", open: func(t *testing.T) lockstore.Store {
			store, err := lockstore.OpenSQLite(filepath.Join(t.TempDir(), "markers.db"))
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })
			return store
		}},
	}
}

func TestStoreAbsentPresentOverwrite(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t)

			if _, ok, err := store.Get(lockstore.MarkerService); err != nil || ok {
				t.Fatalf("expected absent marker, got ok=%v err=%v", ok, err)
			}
			if exists, err := store.Exists(lockstore.MarkerService); err != nil || exists {
				t.Fatalf("Exists = %v, %v", exists, err)
			}
			if err := store.Delete(lockstore.MarkerService); err != nil {
				t.Fatalf("deleting absent marker: %v", err)
			}

			if err := store.Set(lockstore.MarkerService, "app"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := store.Set(lockstore.MarkerService, "app.service"); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			value, ok, err := store.Get(lockstore.MarkerService)
			if err != nil || !ok || value != "app.service" {
				t.Fatalf("Get = %q, %v, %v", value, ok, err)
			}

			if err := store.Set(lockstore.MarkerScreenMode, "1"); err != nil {
				t.Fatalf("Set screen-mode: %v", err)
			}
			entries, err := store.List()
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != 2 || entries[0].Name != lockstore.MarkerScreenMode || entries[1].Name != lockstore.MarkerService {
				t.Fatalf("unexpected entries %+v", entries)
			}
			if entries[1].UpdatedAt.IsZero() {
				t.Fatal("expected update timestamp")
			}

			if err := store.Delete(lockstore.MarkerService); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if exists, _ := store.Exists(lockstore.MarkerService); exists {
				t.Fatal("marker should be gone after Delete")
			}
		})
	}
}

func TestStoreRejectsInvalidNames(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t)
			for _, name := range []string{"", ".hidden", "../escape", "a/b", "with space"} {
				if err := store.Set(name, "x"); !errors.Is(err, lockstore.ErrInvalidName) {
					t.Fatalf("Set(%q) err = %v, want ErrInvalidName", name, err)
				}
				if _, _, err := store.Get(name); !errors.Is(err, lockstore.ErrInvalidName) {
					t.Fatalf("Get(%q) err = %v, want ErrInvalidName", name, err)
				}
			}
		})
	}
}

func TestFileStoreTrimsTrailingWhitespace(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "service"), []byte("app.service\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := lockstore.NewFileStore(dir)
	value, ok, err := store.Get(lockstore.MarkerService)
	if err != nil || !ok || value != "app.service" {
		t.Fatalf("Get = %q, %v, %v", value, ok, err)
	}
}

func TestFileStoreCreatesDirectoryOnDemand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "locks")
	store := lockstore.NewFileStore(dir)
	entries, err := store.List()
	if err != nil || len(entries) != 0 {
		t.Fatalf("List on missing dir = %v, %v", entries, err)
	}
	if err := store.Set(lockstore.MarkerScreenMode, "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, lockstore.MarkerScreenMode))
	if err != nil {
		t.Fatalf("read marker file: %v", err)
	}
	if string(data) != "1" {
		t.Fatalf("marker file should carry no terminator, got %q", data)
	}
}

func TestFileStoreConcurrentWritersLeaveOneValue(t *testing.T) {
	store := lockstore.NewFileStore(t.TempDir())
	values := []string{"1700000000", "1700000001", "1700000002", "1700000003"}
	var wg sync.WaitGroup
	for _, v := range values {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			if err := store.Set(lockstore.MarkerStartSkip, v); err != nil {
				t.Errorf("Set: %v", err)
			}
		}(v)
	}
	wg.Wait()

	got, ok, err := store.Get(lockstore.MarkerStartSkip)
	if err != nil || !ok {
		t.Fatalf("Get: %v ok=%v", err, ok)
	}
	found := false
	for _, v := range values {
		if got == v {
			found = true
		}
	}
	if !found {
		t.Fatalf("marker holds torn value %q", got)
	}
}

func TestConsumeStartSkip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	window := 10 * time.Minute

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t)

			if ok, err := lockstore.ConsumeStartSkip(store, now, window); err != nil || ok {
				t.Fatalf("absent marker consumed: ok=%v err=%v", ok, err)
			}

			if err := lockstore.RecordStartSkip(store, now.Add(-time.Hour)); err != nil {
				t.Fatalf("RecordStartSkip: %v", err)
			}
			if ok, err := lockstore.ConsumeStartSkip(store, now, window); err != nil || ok {
				t.Fatalf("stale marker consumed: ok=%v err=%v", ok, err)
			}
			if exists, _ := store.Exists(lockstore.MarkerStartSkip); !exists {
				t.Fatal("stale marker should be left in place")
			}

			if err := lockstore.RecordStartSkip(store, now.Add(-time.Minute)); err != nil {
				t.Fatalf("RecordStartSkip: %v", err)
			}
			ok, err := lockstore.ConsumeStartSkip(store, now, window)
			if err != nil || !ok {
				t.Fatalf("fresh marker not honoured: ok=%v err=%v", ok, err)
			}
			if exists, _ := store.Exists(lockstore.MarkerStartSkip); exists {
				t.Fatal("honoured marker should be consumed")
			}
			if ok, _ := lockstore.ConsumeStartSkip(store, now, window); ok {
				t.Fatal("marker honoured twice")
			}
		})
	}
}

func TestConsumeStartSkipIgnoresGarbage(t *testing.T) {
	store := lockstore.NewFileStore(t.TempDir())
	if err := store.Set(lockstore.MarkerStartSkip, "yesterday"); err != nil {
		t.Fatal(err)
	}
	ok, err := lockstore.ConsumeStartSkip(store, time.Now(), time.Hour)
	if err != nil || ok {
		t.Fatalf("garbage marker: ok=%v err=%v", ok, err)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LockDir = filepath.Join(t.TempDir(), "locks")
	cfg.LockStore.SQLitePath = filepath.Join(t.TempDir(), "markers.db")

	store, err := lockstore.Open(&cfg)
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	if _, ok := store.(*lockstore.FileStore); !ok {
		t.Fatalf("expected FileStore, got %T", store)
	}

	cfg.LockStore.Backend = config.LockStoreSQLite
	store, err = lockstore.Open(&cfg)
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	defer lockstore.Close(store)
	if _, ok := store.(*lockstore.SQLiteStore); !ok {
		t.Fatalf("expected SQLiteStore, got %T", store)
	}
}
