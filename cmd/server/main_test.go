package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/maxischmaxi/code-preview-server/internal/config"
	"github.com/maxischmaxi/code-preview-server/internal/repositories/rediscache"
	"github.com/maxischmaxi/code-preview-server/internal/repositories/sqlstore"
)

func setMemoryEnv(t *testing.T, port string) {
	t.Helper()
	t.Setenv("PORT", port)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("RESET_SCHEDULE", "")
	t.Setenv("TEMPLATES_SEED_FILE", "")
	t.Setenv("CONFIG_FILE", "")
}

func stubListen(t *testing.T, fn func(*http.Server) error) {
	t.Helper()
	orig := listenAndServe
	t.Cleanup(func() { listenAndServe = orig })
	listenAndServe = fn
}

func TestRunReturnsListenError(t *testing.T) {
	setMemoryEnv(t, "9090")
	stubListen(t, func(srv *http.Server) error {
		if srv.Handler == nil {
			t.Fatalf("expected handler")
		}
		if srv.Addr != ":9090" {
			t.Fatalf("expected addr :9090, got %s", srv.Addr)
		}
		return errors.New("boom")
	})

	if err := run(context.TODO()); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom error, got %v", err)
	}
}

func TestMainCompletes(t *testing.T) {
	setMemoryEnv(t, "9091")
	stubListen(t, func(*http.Server) error { return nil })
	origExit := exitFunc
	t.Cleanup(func() { exitFunc = origExit })
	exitFunc = func(error) { t.Fatal("exitFunc should not be called") }

	main()
}

func TestMainHandlesError(t *testing.T) {
	setMemoryEnv(t, "9092")
	stubListen(t, func(*http.Server) error { return errors.New("main boom") })
	origExit := exitFunc
	t.Cleanup(func() { exitFunc = origExit })
	var got error
	exitFunc = func(err error) { got = err }

	main()

	if got == nil || got.Error() != "main boom" {
		t.Fatalf("expected exitFunc to capture error, got %v", got)
	}
}

func TestRunWithRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	setMemoryEnv(t, "")
	t.Setenv("PORT", "8080")
	t.Setenv("REDIS_ADDR", mr.Addr())
	stubListen(t, func(srv *http.Server) error {
		if srv.Addr != ":8080" {
			t.Fatalf("expected default port, got %s", srv.Addr)
		}
		return nil
	})

	if err := run(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	setMemoryEnv(t, "0")
	t.Setenv("RESET_SCHEDULE", "@every 1h")
	started := make(chan struct{})
	stubListen(t, func(srv *http.Server) error {
		close(started)
		return srv.ListenAndServe()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not start")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}

func TestRunRejectsInvalidSetup(t *testing.T) {
	stubListen(t, func(*http.Server) error {
		t.Fatalf("server should not start")
		return nil
	})

	t.Run("unknown store driver", func(t *testing.T) {
		setMemoryEnv(t, "9093")
		t.Setenv("STORE_DRIVER", "cassandra")
		if err := run(context.Background()); err == nil {
			t.Fatalf("expected config error")
		}
	})
	t.Run("missing seed file", func(t *testing.T) {
		setMemoryEnv(t, "9094")
		t.Setenv("TEMPLATES_SEED_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
		if err := run(context.Background()); err == nil {
			t.Fatalf("expected seed error")
		}
	})
	t.Run("invalid reset schedule", func(t *testing.T) {
		setMemoryEnv(t, "9095")
		t.Setenv("RESET_SCHEDULE", "whenever")
		if err := run(context.Background()); err == nil {
			t.Fatalf("expected schedule error")
		}
	})
}

func TestRunSeedsTemplatesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte("templates:\n  - title: Hello\n    language: go\n"), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	setMemoryEnv(t, "9096")
	t.Setenv("TEMPLATES_SEED_FILE", path)
	stubListen(t, func(*http.Server) error { return nil })

	if err := run(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestOpenStoreSQLiteWithCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cfg := &config.Config{
		Store: config.StoreConfig{Driver: config.DriverSQLite, DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())},
		Redis: config.RedisConfig{Addr: mr.Addr(), TTL: time.Minute},
	}
	store, err := openStore(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, ok := store.Sessions.(*rediscache.SessionRepo); !ok {
		t.Fatalf("expected cached session repo, got %T", store.Sessions)
	}
	if err := store.Close(context.Background()); err != nil {
		t.Fatalf("close store: %v", err)
	}
}

func TestOpenStoreSkipsUnreachableRedis(t *testing.T) {
	cfg := &config.Config{
		Store: config.StoreConfig{Driver: config.DriverSQLite, DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())},
		Redis: config.RedisConfig{Addr: "127.0.0.1:1", TTL: time.Minute},
	}
	store, err := openStore(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close(context.Background())
	if _, ok := store.Sessions.(*sqlstore.SessionRepo); !ok {
		t.Fatalf("expected plain sql repo, got %T", store.Sessions)
	}
}

func TestDefaultExit(t *testing.T) {
	origExit := exit
	core, logs := observer.New(zap.ErrorLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(func() {
		exit = origExit
		restore()
	})

	var gotCode int
	exit = func(code int) { gotCode = code }

	defaultExit(errors.New("boom"))
	if gotCode != 1 {
		t.Fatalf("expected exit code 1, got %d", gotCode)
	}
	entries := logs.All()
	if len(entries) != 1 || entries[0].ContextMap()["error"] != "boom" {
		t.Fatalf("expected logged boom error, got %#v", entries)
	}
}
