package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "claimsreg/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", dErrors.New(dErrors.CodeNotFound, "issuer not trusted"), http.StatusNotFound, "not_found"},
		{"conflict", dErrors.New(dErrors.CodeConflict, "claim already granted"), http.StatusConflict, "conflict"},
		{"forbidden", dErrors.New(dErrors.CodeForbidden, "no"), http.StatusForbidden, "forbidden"},
		{"malformed signature", dErrors.New(dErrors.CodeMalformedSignature, "bad v"), http.StatusUnprocessableEntity, "malformed_signature"},
		{"invalid input", dErrors.New(dErrors.CodeInvalidInput, "bad"), http.StatusBadRequest, "bad_request"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["error"])
		})
	}
}

func TestPathAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/issuers/0x00000000000000000000000000000000000000aa", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("issuer", "0x00000000000000000000000000000000000000aa")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	addr, err := PathAddress(req, "issuer")
	require.NoError(t, err)
	assert.Equal(t, byte(0xaa), addr[19])

	_, err = PathAddress(req, "missing")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestQueryAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/events?subject=0xnope", nil)
	_, err := QueryAddress(req, "subject")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}
