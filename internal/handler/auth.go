package handler

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"dumptrack-api/internal/model"
	"dumptrack-api/internal/workspace"
	"dumptrack-api/pkg/apierror"
	"dumptrack-api/pkg/response"
)

// AuthHandler serves sign-up, login and logout for the request's workspace.
type AuthHandler struct {
	logger *zap.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{logger: logger}
}

// SignUpRequest is the body of POST /auth/signup.
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	model.ProfileFields
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the signed-in user of a workspace.
type SessionResponse struct {
	Authenticated   bool            `json:"authenticated"`
	Identity        *model.Identity `json:"identity,omitempty"`
	Profile         *model.Profile  `json:"profile,omitempty"`
	IsAdministrator bool            `json:"isAdministrator"`
	Error           string          `json:"error,omitempty"`
}

func sessionResponse(ws *workspace.Workspace) SessionResponse {
	return SessionResponse{
		Authenticated:   ws.Session.IsAuthenticated(),
		Identity:        ws.Session.Identity(),
		Profile:         ws.Session.Profile(),
		IsAdministrator: ws.Session.IsAdministrator(),
		Error:           ws.Session.Err(),
	}
}

func validateCredentials(email, password string) error {
	var details []apierror.FieldError
	if strings.TrimSpace(email) == "" {
		details = append(details, apierror.FieldError{Field: "email", Message: "email is required"})
	}
	if password == "" {
		details = append(details, apierror.FieldError{Field: "password", Message: "password is required"})
	}
	if len(details) > 0 {
		return apierror.ValidationError("invalid credentials", details...)
	}
	return nil
}

// SignUp handles POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	var req SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validateCredentials(req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}

	if _, err := ws.Session.SignUp(r.Context(), req.Email, req.Password, req.ProfileFields); err != nil {
		h.logger.Info("sign-up failed", zap.String("workspace", ws.ID), zap.Error(err))
		writeError(w, err)
		return
	}
	response.Created(w, sessionResponse(ws))
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := validateCredentials(req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}

	if _, err := ws.Session.Login(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, sessionResponse(ws))
}

// Logout handles POST /api/v1/auth/logout. The workspace is signed out
// locally even when the gateway call fails.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	if err := ws.Session.Logout(r.Context()); err != nil {
		h.logger.Warn("gateway sign-out failed", zap.String("workspace", ws.ID), zap.Error(err))
		writeError(w, err)
		return
	}
	response.OK(w, sessionResponse(ws))
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ws, ok := current(w, r)
	if !ok {
		return
	}
	if err := ws.Session.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, sessionResponse(ws))
}
