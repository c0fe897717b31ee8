// Package workspace keeps one set of stores per browser or API session.
package workspace

import (
	"context"
	"sync"
	"time"

	"dumptrack-api/internal/gateway"
	"dumptrack-api/internal/store"
)

// Workspace is the gateway client and stores owned by one session.
type Workspace struct {
	ID        string
	Client    *gateway.Client
	Session   *store.SessionStore
	Inventory *store.InventoryDumpStore
	Tracking  *store.TrackingDumpStore
	Reports   *store.ReportStore

	mu          sync.Mutex
	lastSeen    time.Time
	trackingSet bool
}

func (ws *Workspace) touch(now time.Time) {
	ws.mu.Lock()
	ws.lastSeen = now
	ws.mu.Unlock()
}

// LastSeen returns when the workspace was last used.
func (ws *Workspace) LastSeen() time.Time {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.lastSeen
}

// InitTracking runs the tracking store's Initialize until it succeeds
// once. Later calls do nothing.
func (ws *Workspace) InitTracking(ctx context.Context) error {
	ws.mu.Lock()
	done := ws.trackingSet
	ws.mu.Unlock()
	if done {
		return nil
	}

	if err := ws.Tracking.Initialize(ctx); err != nil {
		return err
	}

	ws.mu.Lock()
	ws.trackingSet = true
	ws.mu.Unlock()
	return nil
}

type contextKey struct{}

// WithWorkspace returns a copy of ctx carrying ws.
func WithWorkspace(ctx context.Context, ws *Workspace) context.Context {
	return context.WithValue(ctx, contextKey{}, ws)
}

// FromContext returns the workspace stored in ctx, or nil.
func FromContext(ctx context.Context) *Workspace {
	ws, _ := ctx.Value(contextKey{}).(*Workspace)
	return ws
}
