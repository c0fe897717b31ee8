package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"dumptrack-api/internal/gateway"
	"dumptrack-api/internal/gateway/gatewaytest"
)

type fixture struct {
	repo    *gatewaytest.FailingRepository
	backend *gateway.Backend
	client  *gateway.Client
}

// newFixture returns a signed-in client over a fresh SQLite database.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := gatewaytest.NewFailingRepository(gatewaytest.NewRepository(t))
	backend := gatewaytest.NewBackend(t, repo)
	return &fixture{
		repo:    repo,
		backend: backend,
		client:  gatewaytest.SignedInClient(t, backend, "clerk@example.com"),
	}
}

// tickingClock returns a clock that advances one second per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

// failingSignOut is a gateway whose SignOut always fails.
type failingSignOut struct {
	gateway.Gateway
	err error
}

func (g failingSignOut) SignOut(ctx context.Context) error { return g.err }

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	at, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return at
}
