package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/page-engine/pkg/session"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	rs := NewRedisStorage("redis://"+mr.Addr(), t.TempDir(), ttl, logger)
	t.Cleanup(func() {
		_ = rs.Close()
		mr.Close()
	})
	return rs, mr
}

func TestRedisStorage_SaveAndLoadSession(t *testing.T) {
	rs, mr := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := session.Session{
		ID:           "abc",
		Location:     "forest",
		Flags:        map[string]bool{"has_key": true},
		History:      []string{"start", "forest"},
		CreatedAt:    created,
		LastActivity: created.Add(time.Minute),
	}
	if err := rs.SaveSession(ctx, s); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	if !mr.Exists("session:abc") {
		t.Fatal("expected session:abc key in redis")
	}
	if ttl := mr.TTL("session:abc"); ttl != time.Hour {
		t.Errorf("expected TTL 1h, got %s", ttl)
	}

	loaded, err := rs.LoadSession(ctx, "abc")
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected non-nil session")
	}
	if loaded.Location != "forest" || !loaded.Flag("has_key") || len(loaded.History) != 2 {
		t.Errorf("unexpected session %+v", loaded)
	}
	if !loaded.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %s", loaded.CreatedAt)
	}
}

func TestRedisStorage_LoadMissingSession(t *testing.T) {
	rs, _ := setupTestRedis(t, 0)
	loaded, err := rs.LoadSession(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Expected no error for missing session, got: %v", err)
	}
	if loaded != nil {
		t.Error("Expected nil for missing session")
	}
}

func TestRedisStorage_CorruptSnapshot(t *testing.T) {
	rs, mr := setupTestRedis(t, 0)
	if err := mr.Set("session:bad", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := rs.LoadSession(context.Background(), "bad"); err == nil {
		t.Error("expected unmarshal error")
	}
}

func TestRedisStorage_DeleteSession(t *testing.T) {
	rs, mr := setupTestRedis(t, 0)
	ctx := context.Background()

	if err := rs.SaveSession(ctx, session.Session{ID: "abc", Location: "start"}); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}
	if ttl := mr.TTL("session:abc"); ttl != 0 {
		t.Errorf("expected no TTL, got %s", ttl)
	}
	if err := rs.DeleteSession(ctx, "abc"); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}
	loaded, err := rs.LoadSession(ctx, "abc")
	if err != nil || loaded != nil {
		t.Errorf("expected deleted session, got %v, %v", loaded, err)
	}
}

func TestRedisStorage_SaveEmptyID(t *testing.T) {
	rs, _ := setupTestRedis(t, 0)
	if err := rs.SaveSession(context.Background(), session.Session{}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestRedisStorage_PingAndWait(t *testing.T) {
	rs, mr := setupTestRedis(t, 0)
	ctx := context.Background()

	if err := rs.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if err := rs.WaitForConnection(ctx, 3, time.Millisecond); err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}

	mr.Close()
	if err := rs.Ping(ctx); err == nil {
		t.Error("expected ping error after redis stopped")
	}
	if err := rs.WaitForConnection(ctx, 2, time.Millisecond); err == nil {
		t.Error("expected WaitForConnection to give up")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := rs.WaitForConnection(cancelled, 5, time.Second); err == nil {
		t.Error("expected cancellation error")
	}
}

func TestRedisStorage_SaveKeepsNewestVersion(t *testing.T) {
	rs, _ := setupTestRedis(t, time.Hour)
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	newer := session.Session{ID: "abc", Location: "cave", CreatedAt: created, Version: 3}
	older := session.Session{ID: "abc", Location: "forest", CreatedAt: created, Version: 2}
	if err := rs.SaveSession(ctx, newer); err != nil {
		t.Fatalf("save newer: %v", err)
	}
	if err := rs.SaveSession(ctx, older); err != nil {
		t.Fatalf("a stale save should be skipped, not fail: %v", err)
	}

	loaded, err := rs.LoadSession(ctx, "abc")
	if err != nil || loaded == nil {
		t.Fatalf("load: %v, %v", loaded, err)
	}
	if loaded.Location != "cave" || loaded.Version != 3 {
		t.Errorf("expected version 3 at cave, got %+v", loaded)
	}
}

func TestRedisStorage_SaveAfterDeleteIsDropped(t *testing.T) {
	rs, _ := setupTestRedis(t, 0)
	ctx := context.Background()
	deletedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rs.now = func() time.Time { return deletedAt }

	orphan := session.Session{ID: "abc", Location: "cave", CreatedAt: deletedAt.Add(-time.Hour), Version: 9}
	if err := rs.SaveSession(ctx, orphan); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := rs.DeleteSession(ctx, "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// A commit that raced the delete lands afterwards.
	orphan.Version++
	if err := rs.SaveSession(ctx, orphan); err != nil {
		t.Fatalf("late save: %v", err)
	}
	if loaded, err := rs.LoadSession(ctx, "abc"); err != nil || loaded != nil {
		t.Fatalf("forgotten session came back: %+v, %v", loaded, err)
	}

	// A session started after the delete is saved normally.
	fresh := session.Session{ID: "abc", Location: "start", CreatedAt: deletedAt.Add(time.Second), Version: 1}
	if err := rs.SaveSession(ctx, fresh); err != nil {
		t.Fatalf("save fresh: %v", err)
	}
	loaded, err := rs.LoadSession(ctx, "abc")
	if err != nil || loaded == nil || loaded.Location != "start" {
		t.Errorf("expected the new session, got %+v, %v", loaded, err)
	}
}
