package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "claimsreg/pkg/domain-errors"
)

type grantBody struct {
	Claim string `json:"claim"`
}

func (b *grantBody) Normalize() {
	b.Claim = strings.ToUpper(strings.TrimSpace(b.Claim))
}

func (b *grantBody) Validate() error {
	if b.Claim == "" {
		return errors.New("claim is required")
	}
	return nil
}

type subjectBody struct {
	Subject string `json:"subject"`
}

func (b *subjectBody) Validate() error {
	if b.Subject == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "subject is required")
	}
	return nil
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestDecodeJSON(t *testing.T) {
	t.Run("successful decode", func(t *testing.T) {
		w := httptest.NewRecorder()
		got, ok := DecodeJSON[grantBody](w, post(`{"claim":"AGE_OVER_18"}`), discard)
		require.True(t, ok)
		assert.Equal(t, "AGE_OVER_18", got.Claim)
	})

	t.Run("invalid JSON returns bad_request", func(t *testing.T) {
		w := httptest.NewRecorder()
		got, ok := DecodeJSON[grantBody](w, post(`{nope}`), discard)
		assert.False(t, ok)
		assert.Nil(t, got)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", errorCode(t, w)["error"])
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := DecodeJSON[grantBody](w, post(`{"claim":"x","extra":1}`), discard)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty body rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := DecodeJSON[grantBody](w, post(""), discard)
		assert.False(t, ok)
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("normalizes before validating", func(t *testing.T) {
		w := httptest.NewRecorder()
		got, ok := DecodeAndPrepare[grantBody](w, post(`{"claim":" age_over_18 "}`), discard)
		require.True(t, ok)
		assert.Equal(t, "AGE_OVER_18", got.Claim)
	})

	t.Run("plain validation error becomes validation_error", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[grantBody](w, post(`{"claim":"  "}`), discard)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := errorCode(t, w)
		assert.Equal(t, "validation_error", body["error"])
		assert.Contains(t, body["error_description"], "claim is required")
	})

	t.Run("domain validation error keeps its code", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[subjectBody](w, post(`{"subject":""}`), discard)
		assert.False(t, ok)
		assert.Equal(t, "bad_request", errorCode(t, w)["error"])
	})
}
