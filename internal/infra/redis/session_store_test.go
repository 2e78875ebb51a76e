package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"chapter-quiz-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	ctx := context.Background()
	alice := domain.Identity{UserID: "alice", DisplayName: "Alice"}

	token, err := store.Create(ctx, alice)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !mr.Exists("session:" + token) {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("session:" + token); ttl != time.Minute {
		t.Fatalf("expected ttl of a minute, got %v", ttl)
	}

	got, err := store.Get(ctx, token)
	if err != nil || got != alice {
		t.Fatalf("expected alice, got %+v %v", got, err)
	}

	if err := store.Delete(ctx, token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("session:" + token) {
		t.Fatalf("expected redis key to be removed")
	}
	if _, err := store.Get(ctx, token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSessionStoreExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	token, err := store.Create(context.Background(), domain.Identity{UserID: "alice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(context.Background(), token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected expired session, got %v", err)
	}
}
