package controllers

import (
	"net/http"

	"github.com/storemate/terminal-backend/api/responses"
	"github.com/storemate/terminal-backend/internal/offline"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/logger"
)

// OfflineQueueList shows the sales waiting for the upstream to come back.
func OfflineQueueList(svc offline.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offline service unavailable"))
			return
		}
		out, err := svc.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"queue": out,
			"depth": len(out),
		})
	}
}

// OfflineReplay drains the queue against the upstream right now.
func OfflineReplay(svc offline.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offline service unavailable"))
			return
		}
		result, err := svc.Replay(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// OfflineQueuePurge discards every queued sale. Requires an audit reason.
func OfflineQueuePurge(svc offline.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offline service unavailable"))
			return
		}
		dropped, err := svc.Purge(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"dropped": dropped})
	}
}
