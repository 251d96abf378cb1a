package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestSaveAndLookupSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	err := store.SaveSession(ctx, "sess-123", time.Hour)
	if err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	alive, err := store.LookupSession(ctx, "sess-123")
	if err != nil {
		t.Fatalf("LookupSession failed: %v", err)
	}
	if !alive {
		t.Error("expected session to be alive")
	}
}

func TestLookupExpiredSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	err := store.SaveSession(ctx, "sess-expired", time.Millisecond)
	if err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	// Fast-forward time in miniredis
	s.FastForward(2 * time.Millisecond)

	alive, err := store.LookupSession(ctx, "sess-expired")
	if err != nil {
		t.Fatalf("LookupSession failed: %v", err)
	}
	if alive {
		t.Error("expected expired session to be dead")
	}
}

func TestTouchSlidesExpiry(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	err := store.SaveSession(ctx, "sess-slide", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	// A touch just before expiry keeps the session alive past the
	// original deadline.
	s.FastForward(8 * time.Millisecond)
	alive, err := store.TouchSession(ctx, "sess-slide", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("TouchSession failed: %v", err)
	}
	if !alive {
		t.Fatal("expected touch to find live session")
	}

	s.FastForward(8 * time.Millisecond)
	alive, err = store.LookupSession(ctx, "sess-slide")
	if err != nil {
		t.Fatalf("LookupSession failed: %v", err)
	}
	if !alive {
		t.Error("expected touched session to still be alive")
	}
}

func TestTouchExpiredSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	err := store.SaveSession(ctx, "sess-gone", time.Millisecond)
	if err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	s.FastForward(2 * time.Millisecond)

	alive, err := store.TouchSession(ctx, "sess-gone", time.Hour)
	if err != nil {
		t.Fatalf("TouchSession failed: %v", err)
	}
	if alive {
		t.Error("expected touch on expired session to report dead")
	}
}

func TestRevokeSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	err := store.SaveSession(ctx, "sess-revoke", time.Hour)
	if err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	err = store.RevokeSession(ctx, "sess-revoke")
	if err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}

	alive, err := store.LookupSession(ctx, "sess-revoke")
	if err != nil {
		t.Fatalf("LookupSession failed: %v", err)
	}
	if alive {
		t.Error("expected revoked session to be dead")
	}
}

func TestRevokeNonExistentSession(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	// Revoking an unknown session should not error
	err := store.RevokeSession(ctx, "non-existent")
	if err != nil {
		t.Errorf("RevokeSession for non-existent session failed: %v", err)
	}
}

func TestSessionIsolation(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	if err := store.SaveSession(ctx, "sess-1", time.Hour); err != nil {
		t.Fatalf("SaveSession 1 failed: %v", err)
	}
	if err := store.SaveSession(ctx, "sess-2", time.Hour); err != nil {
		t.Fatalf("SaveSession 2 failed: %v", err)
	}

	if err := store.RevokeSession(ctx, "sess-1"); err != nil {
		t.Fatalf("Revoke sess-1 failed: %v", err)
	}

	alive, err := store.LookupSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Lookup sess-1 failed: %v", err)
	}
	if alive {
		t.Error("expected sess-1 to be dead after revoke")
	}

	alive, err = store.LookupSession(ctx, "sess-2")
	if err != nil {
		t.Fatalf("Lookup sess-2 failed: %v", err)
	}
	if !alive {
		t.Error("expected sess-2 to survive sess-1 revocation")
	}
}
