package controllers

import (
	"net/http"

	"github.com/storemate/terminal-backend/api/responses"
	"github.com/storemate/terminal-backend/internal/checkout"
	"github.com/storemate/terminal-backend/internal/pricing"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/logger"
)

// Checkout finalizes the session. An unreachable upstream queues the sale
// instead of failing, so the handler reports both outcomes as success.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.Execute(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status := http.StatusOK
		if result.Outcome == checkout.OutcomeQueuedOffline {
			status = http.StatusAccepted
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// Quote re-prices the cart against the upstream catalog.
func Quote(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}
		sessionID, err := sessionIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.Quote(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
