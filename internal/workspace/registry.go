package workspace

import (
	"context"
	"crypto/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"dumptrack-api/internal/cache"
	"dumptrack-api/internal/gateway"
	"dumptrack-api/internal/guard"
	"dumptrack-api/internal/store"
	"dumptrack-api/pkg/metrics"
	"dumptrack-api/pkg/uid"
)

// HeaderSession carries the workspace id for API clients that do not keep
// cookies. It is echoed on every response.
const HeaderSession = "X-Session"

const sessionIDKey = "workspace_id"

// Config holds registry settings.
type Config struct {
	CookieName   string
	CookieSecret string
	CookieSecure bool
	// CookieMaxAge is the cookie lifetime in seconds. Zero keeps the
	// gorilla default of 30 days.
	CookieMaxAge int

	AdminTrigger      string
	SideCacheTTL      time.Duration
	CompensateBatches bool
}

// Registry maps session ids to workspaces.
type Registry struct {
	backend   *gateway.Backend
	sideCache cache.Cache
	cookies   *sessions.CookieStore
	cfg       Config
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time

	mu         sync.RWMutex
	workspaces map[string]*Workspace
}

// NewRegistry creates a registry. sideCache holds the tracking dump
// mirrors and may be nil.
func NewRegistry(backend *gateway.Backend, sideCache cache.Cache, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "dumptrack_session"
	}
	if cfg.AdminTrigger == "" {
		cfg.AdminTrigger = store.DefaultAdminTrigger
	}

	secret := []byte(cfg.CookieSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic("workspace: cannot generate cookie secret: " + err.Error())
		}
		logger.Warn("no cookie secret configured; sessions will not survive a restart")
	}
	cookies := sessions.NewCookieStore(secret)
	cookies.Options.Path = "/"
	cookies.Options.HttpOnly = true
	cookies.Options.Secure = cfg.CookieSecure
	cookies.Options.SameSite = http.SameSiteLaxMode
	if cfg.CookieMaxAge > 0 {
		cookies.MaxAge(cfg.CookieMaxAge)
	}

	return &Registry{
		backend:    backend,
		sideCache:  sideCache,
		cookies:    cookies,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
		workspaces: make(map[string]*Workspace),
	}
}

// Open returns the workspace with id, creating it if needed. A workspace
// recreated under a known id picks up its mirrored tracking dumps.
func (r *Registry) Open(id string) *Workspace {
	r.mu.Lock()
	ws, ok := r.workspaces[id]
	if !ok {
		ws = r.build(id)
		r.workspaces[id] = ws
	}
	n := len(r.workspaces)
	r.mu.Unlock()

	ws.touch(r.now())
	if !ok {
		r.metrics.SetWorkspaces(n)
		r.logger.Debug("workspace opened", zap.String("workspace", id))
	}
	return ws
}

func (r *Registry) build(id string) *Workspace {
	client := r.backend.NewClient()
	logger := r.logger.With(zap.String("workspace", id))
	common := []store.Option{
		store.WithLogger(logger),
		store.WithMetrics(r.metrics),
		store.WithAdminTrigger(r.cfg.AdminTrigger),
	}

	tracking := append([]store.Option{}, common...)
	if r.sideCache != nil {
		tracking = append(tracking, store.WithSideCache(r.sideCache, id+":trackingDumps", r.cfg.SideCacheTTL))
	}
	if r.cfg.CompensateBatches {
		tracking = append(tracking, store.WithBatchCompensation())
	}

	return &Workspace{
		ID:        id,
		Client:    client,
		Session:   store.NewSessionStore(client, common...),
		Inventory: store.NewInventoryDumpStore(client, common...),
		Tracking:  store.NewTrackingDumpStore(client, tracking...),
		Reports:   store.NewReportStore(client, common...),
	}
}

// Lookup returns the workspace with id without creating it.
func (r *Registry) Lookup(id string) (*Workspace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.workspaces[id]
	return ws, ok
}

// Len returns the number of open workspaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workspaces)
}

// Resolve finds the workspace of req from the X-Session header or the
// session cookie. Requests without a valid id get a new workspace and,
// when they came without the header, a cookie naming it.
func (r *Registry) Resolve(w http.ResponseWriter, req *http.Request) *Workspace {
	if id := req.Header.Get(HeaderSession); uid.IsValid(id) {
		return r.Open(id)
	}

	// A cookie that fails to decode yields a fresh session.
	sess, err := r.cookies.Get(req, r.cfg.CookieName)
	if err != nil {
		r.logger.Debug("discarding unreadable session cookie", zap.Error(err))
	}
	id, _ := sess.Values[sessionIDKey].(string)
	if uid.IsValid(id) {
		return r.Open(id)
	}

	id = uid.New()
	sess.Values[sessionIDKey] = id
	if err := sess.Save(req, w); err != nil {
		r.logger.Warn("failed to save session cookie", zap.Error(err))
	}
	return r.Open(id)
}

// Middleware resolves the workspace of every request into its context.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ws := r.Resolve(w, req)
		w.Header().Set(HeaderSession, ws.ID)
		next.ServeHTTP(w, req.WithContext(WithWorkspace(req.Context(), ws)))
	})
}

// GuardSession returns the session store of the request's workspace for
// the route guard.
func GuardSession(req *http.Request) guard.Session {
	ws := FromContext(req.Context())
	if ws == nil {
		return nil
	}
	return ws.Session
}

// Remove signs out and drops the workspace with id.
func (r *Registry) Remove(ctx context.Context, id string) bool {
	r.mu.Lock()
	ws, ok := r.workspaces[id]
	delete(r.workspaces, id)
	n := len(r.workspaces)
	r.mu.Unlock()

	if !ok {
		return false
	}
	if err := ws.Client.SignOut(ctx); err != nil {
		r.logger.Warn("sign-out of removed workspace failed", zap.String("workspace", id), zap.Error(err))
	}
	r.metrics.SetWorkspaces(n)
	return true
}

// Sweep removes workspaces idle for longer than threshold and signs out
// their sessions. Mirrored tracking dumps are kept.
func (r *Registry) Sweep(ctx context.Context, threshold time.Duration) (int, error) {
	cutoff := r.now().Add(-threshold)

	r.mu.Lock()
	var idle []*Workspace
	for id, ws := range r.workspaces {
		if ws.LastSeen().Before(cutoff) {
			idle = append(idle, ws)
			delete(r.workspaces, id)
		}
	}
	n := len(r.workspaces)
	r.mu.Unlock()

	for _, ws := range idle {
		if err := ws.Client.SignOut(ctx); err != nil {
			r.logger.Warn("sign-out of idle workspace failed", zap.String("workspace", ws.ID), zap.Error(err))
		}
	}
	r.metrics.SetWorkspaces(n)
	if len(idle) > 0 {
		r.logger.Info("idle workspaces swept", zap.Int("count", len(idle)), zap.Int("remaining", n))
	}
	return len(idle), nil
}
