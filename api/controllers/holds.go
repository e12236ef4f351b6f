package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storemate/terminal-backend/api/responses"
	"github.com/storemate/terminal-backend/api/validators"
	"github.com/storemate/terminal-backend/internal/holds"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/logger"
)

type holdPayload struct {
	Label string `json:"label" validate:"required,min=1,max=80"`
}

type resumePayload struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
}

func holdIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "holdId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "hold id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid hold id")
	}
	return id, nil
}

// HoldCreate parks the current transaction under a label.
func HoldCreate(svc holds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hold service unavailable"))
			return
		}
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload holdPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view, err := svc.Hold(ctx, sessionID, payload.Label)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// HoldList returns every parked transaction for the store.
func HoldList(svc holds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hold service unavailable"))
			return
		}
		out, err := svc.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"holds": out})
	}
}

// HoldResume restores a parked transaction into the given session.
func HoldResume(svc holds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hold service unavailable"))
			return
		}
		holdID, err := holdIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload resumePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		sessionID, err := uuid.Parse(payload.SessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid session id"))
			return
		}
		view, err := svc.Resume(ctx, holdID, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionBody(view))
	}
}

// HoldDelete discards a parked transaction without resuming it.
func HoldDelete(svc holds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hold service unavailable"))
			return
		}
		holdID, err := holdIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Delete(ctx, holdID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
