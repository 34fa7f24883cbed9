package kv

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	file, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}

	sqlite, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "state", "kv.sqlite"))
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rs, err := NewRedisStore(ctx, mr.Addr(), 0, "")
	if err != nil {
		t.Fatalf("redis store: %v", err)
	}

	stores := map[string]Store{"file": file, "sqlite": sqlite, "redis": rs}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(ctx, "cardOrder_octo_widgets"); !stderrors.Is(err, ErrNotFound) {
				t.Fatalf("Get on empty store = %v, want ErrNotFound", err)
			}

			doc := `{"backlog":["456","123"]}`
			if err := s.Set(ctx, "cardOrder_octo_widgets", doc); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := s.Get(ctx, "cardOrder_octo_widgets")
			if err != nil || got != doc {
				t.Fatalf("Get = (%q, %v), want %q", got, err, doc)
			}

			if err := s.Set(ctx, "cardOrder_octo_widgets", `{}`); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			if got, _ := s.Get(ctx, "cardOrder_octo_widgets"); got != `{}` {
				t.Errorf("overwrite not visible, got %q", got)
			}

			if err := s.Delete(ctx, "cardOrder_octo_widgets"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, "cardOrder_octo_widgets"); !stderrors.Is(err, ErrNotFound) {
				t.Errorf("Get after delete = %v, want ErrNotFound", err)
			}
			if err := s.Delete(ctx, "never-set"); err != nil {
				t.Errorf("Delete of a missing key = %v, want nil", err)
			}
		})
	}
}

func TestFileStoreEscapesKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.Set(ctx, "../escape/attempt", "x"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected one file in store dir, got %d", len(entries))
	}
	if got, _ := s.Get(ctx, "../escape/attempt"); got != "x" {
		t.Errorf("Get = %q", got)
	}
}

func TestRedisStorePrefix(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, "team:")
	defer s.Close()

	if err := s.Set(context.Background(), "localTasks_o_r", "[]"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, err := mr.Get("team:localTasks_o_r"); err != nil || got != "[]" {
		t.Errorf("raw key = (%q, %v)", got, err)
	}
	if mr.TTL("team:localTasks_o_r") != 0 {
		t.Error("keys should not expire")
	}
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisStore(context.Background(), addr, 0, ""); err == nil {
		t.Error("expected ping failure for a closed server")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("Open default: %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("default backend = %T, want *FileStore", s)
	}
	s.Close()

	dir := t.TempDir()
	s, err = Open(ctx, Options{Backend: "SQLite", Path: dir})
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	s.Close()
	if _, err := os.Stat(filepath.Join(dir, "ghboard.sqlite")); err != nil {
		t.Errorf("sqlite file not created in directory: %v", err)
	}

	if _, err := Open(ctx, Options{Backend: "etcd"}); err == nil {
		t.Error("unknown backend should fail")
	}
}
