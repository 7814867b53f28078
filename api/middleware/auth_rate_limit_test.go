package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeLimiterStore struct {
	counts map[string]int64
	err    error
}

func (f *fakeLimiterStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], nil
}

func tokenRequest(username string) *http.Request {
	body := `{"username":"` + username + `","password":"pw"}`
	req := httptest.NewRequest("POST", "/api/v1/get-token", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:1234"
	return req
}

func TestAuthRateLimitBlocksUsernameAfterLimit(t *testing.T) {
	store := &fakeLimiterStore{}
	policy := NewAuthRateLimitPolicy("token", time.Minute, 0, 2)
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, tokenRequest("admin"))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, tokenRequest("admin"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// a different username is tracked separately
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, tokenRequest("other"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimitBlocksIPAfterLimit(t *testing.T) {
	store := &fakeLimiterStore{}
	policy := NewAuthRateLimitPolicy("token", time.Minute, 1, 0)
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, tokenRequest("admin"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, tokenRequest("admin"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	policy := NewAuthRateLimitPolicy("token", 0, 0, 0)
	handler := AuthRateLimit(policy, &fakeLimiterStore{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, tokenRequest("admin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
