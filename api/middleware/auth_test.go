package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/cartrescue/cartrescue-backend/pkg/auth"
	"github.com/cartrescue/cartrescue-backend/pkg/config"
)

func authTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "https://store.example.com",
		ExpirationMinutes: 15,
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, issuedAt time.Time) string {
	t.Helper()
	token, err := pkgAuth.MintReportToken(cfg, issuedAt, pkgAuth.ReportTokenPayload{UserID: 7, Username: "reporter"})
	require.NoError(t, err)
	return token
}

func runAuth(t *testing.T, cfg config.JWTConfig, mutate func(*http.Request)) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	var captured *http.Request
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/abandoned-checkouts", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, captured
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestAuthAllowsValidToken(t *testing.T) {
	cfg := authTestConfig()
	token := mintTestToken(t, cfg, time.Now())

	rec, captured := runAuth(t, cfg, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, int64(7), UserIDFromContext(captured.Context()))
	assert.Equal(t, "reporter", UsernameFromContext(captured.Context()))
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	rec, _ := runAuth(t, authTestConfig(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AUTH_NO_HEADER", errorCode(t, rec))
}

func TestAuthRejectsMalformedHeader(t *testing.T) {
	for _, header := range []string{"Token abc", "Bearer", "Bearer a b"} {
		rec, _ := runAuth(t, authTestConfig(), func(r *http.Request) {
			r.Header.Set("Authorization", header)
		})
		assert.Equal(t, http.StatusForbidden, rec.Code, header)
		assert.Equal(t, "AUTH_MALFORMED_HEADER", errorCode(t, rec), header)
	}
}

func TestAuthRejectsMissingSecret(t *testing.T) {
	cfg := authTestConfig()
	token := mintTestToken(t, cfg, time.Now())
	cfg.Secret = ""

	rec, _ := runAuth(t, cfg, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AUTH_CONFIG_ERROR", errorCode(t, rec))
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	cfg := authTestConfig()
	token := mintTestToken(t, cfg, time.Now().Add(-time.Hour))

	rec, _ := runAuth(t, cfg, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AUTH_EXPIRED_TOKEN", errorCode(t, rec))
}

func TestAuthRejectsWrongSignature(t *testing.T) {
	otherCfg := authTestConfig()
	otherCfg.Secret = "different-secret"
	token := mintTestToken(t, otherCfg, time.Now())

	rec, _ := runAuth(t, authTestConfig(), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AUTH_INVALID_KEY", errorCode(t, rec))
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	rec, _ := runAuth(t, authTestConfig(), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-jwt")
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AUTH_INVALID_TOKEN", errorCode(t, rec))
}
