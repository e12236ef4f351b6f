package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/storemate/terminal-backend/pkg/config"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.UpstreamConfig{
		BaseURL:  server.URL,
		APIToken: "test-token",
	})
	require.NoError(t, err)
	return client
}

func TestCreateSaleDecoratesRequest(t *testing.T) {
	saleID := uuid.New()
	var got *http.Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(types.Receipt{SaleID: saleID, DocNumber: "R-100"})
	})

	ctx := WithReason(context.Background(), "manager approved discount")
	receipt, err := client.CreateSale(ctx, types.CheckoutRequest{
		IdempotencyKey: "key-123",
		StoreID:        "store-1",
	})
	require.NoError(t, err)
	require.Equal(t, saleID, receipt.SaleID)
	require.Equal(t, "R-100", receipt.DocNumber)

	require.Equal(t, http.MethodPost, got.Method)
	require.Equal(t, "/sales", got.URL.Path)
	require.Equal(t, "Bearer test-token", got.Header.Get("Authorization"))
	require.Equal(t, "manager approved discount", got.Header.Get(HeaderReason))
	require.Equal(t, "key-123", got.Header.Get(HeaderIdempotencyKey))
	require.Equal(t, "application/json", got.Header.Get("Content-Type"))
}

func TestQuoteSaleOmitsIdempotencyKey(t *testing.T) {
	var gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(HeaderIdempotencyKey)
		require.Equal(t, "/sales/quote", r.URL.Path)
		json.NewEncoder(w).Encode(types.Totals{})
	})

	_, err := client.QuoteSale(context.Background(), types.CheckoutRequest{IdempotencyKey: "key-456"})
	require.NoError(t, err)
	require.Empty(t, gotKey, "quotes are read-only and carry no idempotency key")
}

func TestErrorMappingByStatus(t *testing.T) {
	cases := []struct {
		name   string
		status int
		code   pkgerrors.Code
	}{
		{name: "bad request", status: http.StatusBadRequest, code: pkgerrors.CodeValidation},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, code: pkgerrors.CodeValidation},
		{name: "conflict", status: http.StatusConflict, code: pkgerrors.CodeConflict},
		{name: "not found", status: http.StatusNotFound, code: pkgerrors.CodeNotFound},
		{name: "server error", status: http.StatusInternalServerError, code: pkgerrors.CodeUpstream},
		{name: "bad gateway", status: http.StatusBadGateway, code: pkgerrors.CodeUpstream},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				json.NewEncoder(w).Encode(types.ErrorEnvelope{
					Error: types.APIError{Code: "X", Message: "upstream said no"},
				})
			})

			_, err := client.CreateSale(context.Background(), types.CheckoutRequest{})
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			require.Equal(t, tc.code, typed.Code())
			require.Equal(t, "upstream said no", typed.Message())
		})
	}
}

func TestTransportErrorIsUpstreamCode(t *testing.T) {
	client, err := NewClient(config.UpstreamConfig{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = client.CreateSale(context.Background(), types.CheckoutRequest{})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUpstream, typed.Code())
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(config.UpstreamConfig{})
	require.Error(t, err)
}
