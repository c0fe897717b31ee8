package workspace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dumptrack-api/internal/cache"
	"dumptrack-api/internal/gateway/gatewaytest"
	"dumptrack-api/internal/model"
	"dumptrack-api/pkg/uid"
)

func newRegistry(t *testing.T) (*Registry, cache.Cache) {
	t.Helper()
	mirror := cache.NewMemoryCache()
	t.Cleanup(func() { mirror.Close() })
	b := gatewaytest.NewBackend(t, nil)
	return NewRegistry(b, mirror, Config{CookieSecret: "test-secret-test-secret-test-sec"}, nil, nil), mirror
}

func captureWorkspace(reg *Registry) (http.Handler, *[]*Workspace) {
	var seen []*Workspace
	h := reg.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, FromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, &seen
}

func TestRegistry_CookieSession(t *testing.T) {
	reg, _ := newRegistry(t)
	h, seen := captureWorkspace(reg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "dumptrack_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	first := (*seen)[0]
	require.NotNil(t, first)
	assert.True(t, uid.IsValid(first.ID))
	assert.Equal(t, first.ID, rec.Header().Get(HeaderSession))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Same(t, first, (*seen)[1])
	assert.Empty(t, rec.Result().Cookies(), "known session is not re-issued")
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_HeaderSession(t *testing.T) {
	reg, _ := newRegistry(t)
	h, seen := captureWorkspace(reg)

	id := uid.New()
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set(HeaderSession, id)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Result().Cookies())
		assert.Equal(t, id, rec.Header().Get(HeaderSession))
	}
	require.Len(t, *seen, 2)
	assert.Same(t, (*seen)[0], (*seen)[1])
	assert.Equal(t, id, (*seen)[0].ID)
}

func TestRegistry_InvalidIDGetsNewWorkspace(t *testing.T) {
	reg, _ := newRegistry(t)
	h, seen := captureWorkspace(reg)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderSession, "../../etc/passwd")
	req.AddCookie(&http.Cookie{Name: "dumptrack_session", Value: "garbage"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	ws := (*seen)[0]
	assert.True(t, uid.IsValid(ws.ID))
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestRegistry_WorkspacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)

	a := reg.Open(uid.New())
	b := reg.Open(uid.New())
	_, err := a.Session.SignUp(ctx, "alice@example.com", "secret123", model.ProfileFields{})
	require.NoError(t, err)

	assert.True(t, a.Session.IsAuthenticated())
	assert.False(t, b.Session.IsAuthenticated())
	assert.NotSame(t, a.Client, b.Client)
}

func TestRegistry_Sweep(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	now := start
	reg.now = func() time.Time { return now }

	idle := reg.Open(uid.New())
	_, err := idle.Session.SignUp(ctx, "idle@example.com", "secret123", model.ProfileFields{})
	require.NoError(t, err)

	now = start.Add(50 * time.Minute)
	active := reg.Open(uid.New())

	now = start.Add(70 * time.Minute)
	n, err := reg.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok := reg.Lookup(idle.ID)
	assert.False(t, ok)
	_, ok = reg.Lookup(active.ID)
	assert.True(t, ok)

	cur, err := idle.Client.GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur, "swept sessions are signed out")
}

func TestRegistry_MirrorOutlivesWorkspace(t *testing.T) {
	ctx := context.Background()
	reg, mirror := newRegistry(t)
	id := uid.New()

	ws := reg.Open(id)
	_, err := ws.Session.SignUp(ctx, "yard@example.com", "secret123", model.ProfileFields{})
	require.NoError(t, err)
	require.NoError(t, ws.InitTracking(ctx))
	_, _, err = ws.Tracking.AddDump(ctx, model.NewDumpInput{Name: "Harbour Yard", ContainersDelivered: 2})
	require.NoError(t, err)

	exists, err := mirror.Exists(ctx, id+":trackingDumps")
	require.NoError(t, err)
	assert.True(t, exists)

	require.True(t, reg.Remove(ctx, id))
	assert.False(t, reg.Remove(ctx, id))

	again := reg.Open(id)
	assert.NotSame(t, ws, again)
	_, err = again.Session.Login(ctx, "yard@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, again.InitTracking(ctx))
	_, ok := again.Tracking.DumpByName("Harbour Yard")
	assert.True(t, ok)
}

func TestWorkspace_InitTrackingRetriesUntilSuccess(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)
	ws := reg.Open(uid.New())

	require.Error(t, ws.InitTracking(ctx), "no session yet")

	_, err := ws.Session.SignUp(ctx, "init@example.com", "secret123", model.ProfileFields{})
	require.NoError(t, err)
	require.NoError(t, ws.InitTracking(ctx))

	require.NoError(t, ws.Client.SignOut(ctx))
	assert.NoError(t, ws.InitTracking(ctx), "already initialised")
}

func TestGuardSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, GuardSession(req))

	reg, _ := newRegistry(t)
	ws := reg.Open(uid.New())
	req = req.WithContext(WithWorkspace(req.Context(), ws))
	assert.Same(t, ws.Session, GuardSession(req))
}
