package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"dumptrack-api/internal/model"
	"dumptrack-api/pkg/response"
)

// UserHandler serves profile administration. Routes are admin-only.
type UserHandler struct{}

// NewUserHandler creates a user handler.
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	profiles, err := ws.Session.ListProfiles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if profiles == nil {
		profiles = []model.Profile{}
	}
	response.OK(w, profiles)
}

// Delete handles DELETE /api/v1/users/{id}. Only the profile row is
// removed; the identity can still sign in.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	if err := ws.Session.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	response.NoContent(w)
}
