package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/storemate/terminal-backend/pkg/logger"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}}
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key], nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "sm:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func newIdempotencyRouter(store *fakeStore, hits *int) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(store, time.Hour, logger.New(logger.Options{ServiceName: "test"})))
		r.Post("/sessions/{sessionId}/checkout", func(w http.ResponseWriter, req *http.Request) {
			*hits++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, `{"data":{"hit":%d}}`, *hits)
		})
		r.Post("/sessions/{sessionId}/lines", func(w http.ResponseWriter, req *http.Request) {
			*hits++
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	hits := 0
	router := newIdempotencyRouter(newFakeStore(), &hits)

	body := `{"amount":"10"}`
	first := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/abc/checkout", strings.NewReader(body))
	first.Header.Set("Idempotency-Key", "k1")
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, first)
	require.Equal(t, http.StatusOK, rec1.Code)
	require.Equal(t, 1, hits)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/abc/checkout", strings.NewReader(body))
	second.Header.Set("Idempotency-Key", "k1")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, second)
	require.Equal(t, http.StatusOK, rec2.Code)
	require.Equal(t, 1, hits, "replay must not reach the handler")
	require.Equal(t, rec1.Body.String(), rec2.Body.String())
}

func TestIdempotencyKeyReuseWithDifferentBodyRejected(t *testing.T) {
	hits := 0
	router := newIdempotencyRouter(newFakeStore(), &hits)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/abc/checkout", strings.NewReader(`{"amount":"10"}`))
	first.Header.Set("Idempotency-Key", "k1")
	router.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/abc/checkout", strings.NewReader(`{"amount":"999"}`))
	second.Header.Set("Idempotency-Key", "k1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, second)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, 1, hits)
}

func TestIdempotencyRequiresKeyOnGuardedRoute(t *testing.T) {
	hits := 0
	router := newIdempotencyRouter(newFakeStore(), &hits)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/abc/checkout", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, hits)
}

func TestIdempotencySkipsUnguardedRoute(t *testing.T) {
	hits := 0
	router := newIdempotencyRouter(newFakeStore(), &hits)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/abc/lines", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, hits)
}
