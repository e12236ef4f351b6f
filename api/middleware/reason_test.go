package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/storemate/terminal-backend/pkg/logger"
	"github.com/storemate/terminal-backend/pkg/types"
	"github.com/storemate/terminal-backend/pkg/upstream"
)

func newReasonRouter(t *testing.T) (*chi.Mux, *string) {
	t.Helper()
	var captured string
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Reason(5, logger.New(logger.Options{ServiceName: "test"})))
		r.Delete("/offline/queue", func(w http.ResponseWriter, req *http.Request) {
			captured = upstream.ReasonFromContext(req.Context())
			w.WriteHeader(http.StatusOK)
		})
		r.Get("/offline/queue", func(w http.ResponseWriter, req *http.Request) {
			captured = upstream.ReasonFromContext(req.Context())
			w.WriteHeader(http.StatusOK)
		})
		r.Post("/sessions/{sessionId}/checkout", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.Delete("/sessions/{sessionId}/lines/{lineId}", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return r, &captured
}

func TestReasonRequiredOnSupervisorRoute(t *testing.T) {
	router, _ := newReasonRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/offline/queue", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "REASON_REQUIRED", envelope.Error.Code)
}

func TestReasonTooShortRejected(t *testing.T) {
	router, _ := newReasonRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/offline/queue", nil)
	req.Header.Set("X-Reason", "bad")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReasonAcceptedAndPropagated(t *testing.T) {
	router, captured := newReasonRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/offline/queue", nil)
	req.Header.Set("X-Reason", "supervisor cleared stale queue")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "supervisor cleared stale queue", *captured)
}

func TestReasonRequiredOnEveryMutatingRoute(t *testing.T) {
	router, _ := newReasonRouter(t)
	sessionID := "1f9f3a62-8a54-4b7d-9a51-0f1f9f3a628a"

	// checkout without a reason never reaches the handler
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/checkout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "REASON_REQUIRED", envelope.Error.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+sessionID+"/lines/abc", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+sessionID+"/lines/abc", nil)
	req.Header.Set("X-Reason", "item scanned twice")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReasonOptionalOnReadRoute(t *testing.T) {
	router, captured := newReasonRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/offline/queue", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// reads still pick the header up when it is present
	req = httptest.NewRequest(http.MethodGet, "/api/v1/offline/queue", nil)
	req.Header.Set("X-Reason", "audit walkthrough")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "audit walkthrough", *captured)
}
