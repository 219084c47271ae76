package middlewarectx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/resume-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/resume-billing/internal/ratelimit"
)

func TestRateLimitMiddleware(t *testing.T) {
	gate := ratelimit.NewSlidingWindow(2, time.Minute)
	logger := newNoopLogger()

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	middleware := middlewarectx.RateLimitMiddleware(gate, logger)(nextHandler)

	doRequest := func(remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", nil)
		req.RemoteAddr = remoteAddr
		if forwardedFor != "" {
			req.Header.Set("X-Forwarded-For", forwardedFor)
		}
		rec := httptest.NewRecorder()
		middleware.ServeHTTP(rec, req)
		return rec
	}

	t.Run("admits up to the limit then rejects", func(t *testing.T) {
		gate.Reset()

		assert.Equal(t, http.StatusOK, doRequest("10.0.0.1:1111", "").Code)
		assert.Equal(t, http.StatusOK, doRequest("10.0.0.1:1111", "").Code)

		rec := doRequest("10.0.0.1:1111", "")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	})

	t.Run("clients are limited independently", func(t *testing.T) {
		gate.Reset()

		assert.Equal(t, http.StatusOK, doRequest("10.0.0.1:1111", "").Code)
		assert.Equal(t, http.StatusOK, doRequest("10.0.0.1:1111", "").Code)
		assert.Equal(t, http.StatusTooManyRequests, doRequest("10.0.0.1:1111", "").Code)

		assert.Equal(t, http.StatusOK, doRequest("10.0.0.2:2222", "").Code)
	})

	t.Run("webhook alerts and limiter share the client key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", nil)
		req.RemoteAddr = "10.0.0.1:1111"
		assert.Equal(t, "10.0.0.1", middlewarectx.ClientID(req))

		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		assert.Equal(t, "203.0.113.7", middlewarectx.ClientID(req))
	})

	t.Run("prefers first X-Forwarded-For address", func(t *testing.T) {
		gate.Reset()

		assert.Equal(t, http.StatusOK, doRequest("10.0.0.1:1111", "203.0.113.7, 10.0.0.1").Code)
		assert.Equal(t, http.StatusOK, doRequest("10.0.0.2:2222", "203.0.113.7").Code)
		assert.Equal(t, http.StatusTooManyRequests, doRequest("10.0.0.3:3333", "203.0.113.7").Code)
	})
}
