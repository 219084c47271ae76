package webhook_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/resume-billing/internal/http/handlers/billing/webhook"
	"github.com/magabrotheeeer/resume-billing/internal/lib/workerpool"
	"github.com/magabrotheeeer/resume-billing/internal/paymentprovider"
)

const testSecret = "whsec_test"

type ReconcilerMock struct {
	mock.Mock
}

func (m *ReconcilerMock) ProcessEvent(ctx context.Context, event paymentprovider.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// syncPool исполняет принятые задачи синхронно.
type syncPool struct {
	full      bool
	submitted int
}

func (p *syncPool) Submit(task workerpool.Task) bool {
	if p.full {
		return false
	}
	p.submitted++
	task()
	return true
}

type AlertSinkMock struct {
	mock.Mock
}

func (m *AlertSinkMock) SecurityAlert(ctx context.Context, clientID string, details map[string]string) {
	m.Called(ctx, clientID, details)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func signPayload(t *testing.T, secret string, body []byte, ts time.Time) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), body)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func newRequest(body []byte, sigHeader string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", bytes.NewReader(body))
	req.RemoteAddr = "203.0.113.7:54321"
	if sigHeader != "" {
		req.Header.Set(paymentprovider.SignatureHeader, sigHeader)
	}
	return req
}

func TestWebhookAcceptsSignedEvent(t *testing.T) {
	reconciler := new(ReconcilerMock)
	pool := &syncPool{}
	alerts := new(AlertSinkMock)
	handler := webhook.New(newNoopLogger(), reconciler, pool, alerts, testSecret, 5*time.Minute)

	body := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	reconciler.On("ProcessEvent", mock.Anything, mock.MatchedBy(func(e paymentprovider.Event) bool {
		return e.ID == "evt_1" && e.Type == "checkout.session.completed"
	})).Return(nil).Once()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest(body, signPayload(t, testSecret, body, time.Now())))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Equal(t, 1, pool.submitted)
	reconciler.AssertExpectations(t)
	alerts.AssertNotCalled(t, "SecurityAlert", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	reconciler := new(ReconcilerMock)
	pool := &syncPool{}
	alerts := new(AlertSinkMock)
	handler := webhook.New(newNoopLogger(), reconciler, pool, alerts, testSecret, 5*time.Minute)

	body := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	alerts.On("SecurityAlert", mock.Anything, "203.0.113.7", mock.Anything).Once()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest(body, signPayload(t, "whsec_wrong", body, time.Now())))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, pool.submitted)
	alerts.AssertExpectations(t)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	reconciler := new(ReconcilerMock)
	pool := &syncPool{}
	alerts := new(AlertSinkMock)
	handler := webhook.New(newNoopLogger(), reconciler, pool, alerts, testSecret, 5*time.Minute)

	alerts.On("SecurityAlert", mock.Anything, "203.0.113.7", mock.Anything).Once()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest([]byte(`{"id":"evt_1","type":"x"}`), ""))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	alerts.AssertExpectations(t)
}

func TestWebhookRejectsStaleTimestamp(t *testing.T) {
	reconciler := new(ReconcilerMock)
	pool := &syncPool{}
	alerts := new(AlertSinkMock)
	handler := webhook.New(newNoopLogger(), reconciler, pool, alerts, testSecret, 5*time.Minute)

	body := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	alerts.On("SecurityAlert", mock.Anything, "203.0.113.7", mock.Anything).Once()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest(body, signPayload(t, testSecret, body, time.Now().Add(-10*time.Minute))))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, pool.submitted)
	alerts.AssertExpectations(t)
}

func TestWebhookRejectsMalformedEnvelope(t *testing.T) {
	reconciler := new(ReconcilerMock)
	pool := &syncPool{}
	alerts := new(AlertSinkMock)
	handler := webhook.New(newNoopLogger(), reconciler, pool, alerts, testSecret, 5*time.Minute)

	// Подпись корректна, но в конверте нет id и type.
	body := []byte(`{"object":"event"}`)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest(body, signPayload(t, testSecret, body, time.Now())))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, pool.submitted)
	alerts.AssertNotCalled(t, "SecurityAlert", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookReturns503WhenPoolFull(t *testing.T) {
	reconciler := new(ReconcilerMock)
	pool := &syncPool{full: true}
	alerts := new(AlertSinkMock)
	handler := webhook.New(newNoopLogger(), reconciler, pool, alerts, testSecret, 5*time.Minute)

	body := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest(body, signPayload(t, testSecret, body, time.Now())))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	reconciler.AssertNotCalled(t, "ProcessEvent", mock.Anything, mock.Anything)
}

func TestWebhookPreflight(t *testing.T) {
	handler := webhook.New(newNoopLogger(), new(ReconcilerMock), &syncPool{}, new(AlertSinkMock), testSecret, 5*time.Minute)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/billing/webhook", nil)
	rec := httptest.NewRecorder()
	handler.Preflight(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Allow"), "POST")
}
