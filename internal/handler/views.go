package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"dumptrack-api/internal/guard"
	"dumptrack-api/pkg/response"
)

// Page describes a navigation page once the guard has let it through.
type Page struct {
	Route   guard.Route       `json:"route"`
	Params  map[string]string `json:"params,omitempty"`
	Session SessionResponse   `json:"session"`
}

// ViewHandler answers navigation routes with a page descriptor.
type ViewHandler struct{}

// NewViewHandler creates a view handler.
func NewViewHandler() *ViewHandler {
	return &ViewHandler{}
}

// Page returns the handler for route.
func (h *ViewHandler) Page(route guard.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := current(w, r)
		if !ok {
			return
		}
		page := Page{Route: route, Session: sessionResponse(ws)}
		if id := chi.URLParam(r, "id"); id != "" {
			page.Params = map[string]string{"id": id}
		}
		response.OK(w, page)
	}
}

// Routes handles GET /api/v1/routes: the navigation table with the
// decision for the caller's session.
func (h *ViewHandler) Routes(g *guard.Guard) http.HandlerFunc {
	type entry struct {
		guard.Route
		Decision guard.Decision `json:"decision"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		decide := g.Evaluate(r)
		routes := guard.Routes()
		out := make([]entry, len(routes))
		for i, route := range routes {
			out[i] = entry{Route: route, Decision: decide(route)}
		}
		response.OK(w, out)
	}
}
