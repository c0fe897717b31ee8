package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dumptrack-api/internal/gateway"
	"dumptrack-api/internal/repository"
	"dumptrack-api/internal/store"
	"dumptrack-api/internal/workspace"
	"dumptrack-api/pkg/apierror"
	"dumptrack-api/pkg/response"
)

// toAPIError maps store and gateway failures onto HTTP errors. Messages
// are passed through unchanged so clients can show them as-is.
func toAPIError(err error) *apierror.Error {
	if apiErr, ok := apierror.As(err); ok {
		return apiErr
	}

	var authErr *gateway.AuthError
	switch {
	case errors.As(err, &authErr):
		switch authErr.Message {
		case gateway.MsgAlreadyRegistered:
			return apierror.Conflict(authErr.Message)
		case gateway.MsgWeakPassword, gateway.MsgInvalidEmail:
			return apierror.BadRequest(authErr.Message)
		default:
			return apierror.Unauthorized(authErr.Message)
		}
	case errors.Is(err, gateway.ErrNotAuthenticated):
		return apierror.Unauthorized("")
	case errors.Is(err, store.ErrInvalidDate):
		return apierror.ValidationError("invalid delivery", apierror.FieldError{Field: "date", Message: err.Error()})
	case errors.Is(err, repository.ErrUnknownTable),
		errors.Is(err, repository.ErrUnknownColumn),
		errors.Is(err, repository.ErrMissingFilter),
		errors.Is(err, repository.ErrEmptyPatch):
		return apierror.BadRequest(err.Error())
	case errors.Is(err, store.ErrNotFound):
		return apierror.NotFound("")
	case errors.Is(err, context.DeadlineExceeded):
		return apierror.ServiceUnavailable("")
	case gateway.IsRemoteError(err):
		return apierror.BadGateway(err.Error())
	default:
		return apierror.InternalError("")
	}
}

func writeError(w http.ResponseWriter, err error) {
	response.Error(w, toAPIError(err))
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierror.BadRequest("invalid request body")
	}
	return nil
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest("id must be a positive integer")
	}
	return id, nil
}

// current returns the request's workspace. Routes are mounted behind the
// registry middleware, so a missing workspace is a wiring bug.
func current(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws := workspace.FromContext(r.Context())
	if ws == nil {
		response.Error(w, apierror.InternalError("no workspace for request"))
		return nil, false
	}
	return ws, true
}
