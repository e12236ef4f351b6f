package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
)

type samplePayload struct {
	Label     string `json:"label" validate:"required,min=1,max=10"`
	SessionID string `json:"session_id" validate:"required,uuid"`
}

func TestDecodeJSONBodyValid(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"label":"park","session_id":"5f8b1a84-91fd-4be0-9c1c-0537c3b9f0b1"}`))

	var payload samplePayload
	require.NoError(t, DecodeJSONBody(req, &payload))
	require.Equal(t, "park", payload.Label)
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"label":"park","session_id":"5f8b1a84-91fd-4be0-9c1c-0537c3b9f0b1","extra":true}`))

	var payload samplePayload
	err := DecodeJSONBody(req, &payload)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDecodeJSONBodyReportsFieldMessages(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"label":"","session_id":"not-a-uuid"}`))

	var payload samplePayload
	err := DecodeJSONBody(req, &payload)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)

	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	require.Contains(t, details, "label")
	require.Contains(t, details, "session_id")
	require.Equal(t, "is required", details["label"])
	require.Equal(t, "must be a valid uuid", details["session_id"])
}
