package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/julienreichel/on-track-career-os-sub005/internal/store"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	sessions, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = sessions.Close() })
	return sessions, s
}

func testUser(id string) store.User {
	return store.User{ID: id, DisplayName: "Ada " + id, Email: id + "@example.com"}
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)

	sessions, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer sessions.Close()

	if err := sessions.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("not-a-url://"); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	sessions, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := sessions.SaveRefreshSession(ctx, "test-token-hash", testUser("user-123"), time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	user, err := sessions.LookupRefreshSession(ctx, "test-token-hash")
	if err != nil {
		t.Fatalf("LookupRefreshSession failed: %v", err)
	}
	if user.ID != "user-123" || user.Email != "user-123@example.com" || user.DisplayName != "Ada user-123" {
		t.Errorf("unexpected user %+v", user)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	sessions, s := setupTestRedis(t)
	ctx := context.Background()

	if err := sessions.SaveRefreshSession(ctx, "expired-token", testUser("user-456"), time.Now().Add(time.Second)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}

	s.FastForward(2 * time.Second)

	_, err := sessions.LookupRefreshSession(ctx, "expired-token")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for expired token, got %v", err)
	}
}

func TestPastExpiryFallsBackToDefaultTTL(t *testing.T) {
	sessions, s := setupTestRedis(t)
	ctx := context.Background()

	if err := sessions.SaveRefreshSession(ctx, "past", testUser("user-1"), time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	if ttl := s.TTL(refreshPrefix + "past"); ttl != defaultRefreshTTL {
		t.Errorf("expected default ttl, got %v", ttl)
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	sessions, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := sessions.SaveRefreshSession(ctx, "token-to-revoke", testUser("user-789"), time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	if err := sessions.RevokeRefreshSession(ctx, "token-to-revoke"); err != nil {
		t.Fatalf("RevokeRefreshSession failed: %v", err)
	}
	if _, err := sessions.LookupRefreshSession(ctx, "token-to-revoke"); err == nil {
		t.Error("expected error for revoked token, got nil")
	}

	if err := sessions.RevokeRefreshSession(ctx, "non-existent-token"); err != nil {
		t.Errorf("RevokeRefreshSession for non-existent token failed: %v", err)
	}
}

func TestSessionIsolation(t *testing.T) {
	sessions, _ := setupTestRedis(t)
	ctx := context.Background()
	expiresAt := time.Now().Add(24 * time.Hour)

	for _, id := range []string{"user-1", "user-2"} {
		if err := sessions.SaveRefreshSession(ctx, "token-"+id, testUser(id), expiresAt); err != nil {
			t.Fatalf("SaveRefreshSession %s failed: %v", id, err)
		}
	}
	if err := sessions.RevokeRefreshSession(ctx, "token-user-1"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	if _, err := sessions.LookupRefreshSession(ctx, "token-user-1"); err == nil {
		t.Error("expected error for revoked token-user-1, got nil")
	}
	user2, err := sessions.LookupRefreshSession(ctx, "token-user-2")
	if err != nil {
		t.Fatalf("Lookup token-user-2 after revoke failed: %v", err)
	}
	if user2.ID != "user-2" {
		t.Errorf("expected user-2 after revoke, got %s", user2.ID)
	}
}

func TestOnboardingStep(t *testing.T) {
	sessions, s := setupTestRedis(t)
	ctx := context.Background()

	if _, ok, err := sessions.LoadOnboardingStep(ctx, "user-1"); err != nil || ok {
		t.Fatalf("expected no saved step, got ok=%v err=%v", ok, err)
	}

	if err := sessions.SaveOnboardingStep(ctx, "user-1", "experience-review"); err != nil {
		t.Fatalf("SaveOnboardingStep failed: %v", err)
	}
	step, ok, err := sessions.LoadOnboardingStep(ctx, "user-1")
	if err != nil || !ok || step != "experience-review" {
		t.Fatalf("unexpected step %q ok=%v err=%v", step, ok, err)
	}

	s.FastForward(onboardingTTL + time.Second)
	if _, ok, _ := sessions.LoadOnboardingStep(ctx, "user-1"); ok {
		t.Fatal("expected step to expire")
	}
}
