package receipts_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/resume-billing/internal/http/handlers/billing/receipts"
	"github.com/magabrotheeeer/resume-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/resume-billing/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) ListReceipts(ctx context.Context, userUID string, limit, offset int) ([]*models.PaymentReceipt, error) {
	args := m.Called(ctx, userUID, limit, offset)
	res, _ := args.Get(0).([]*models.PaymentReceipt)
	return res, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newRequest(userUID, query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/receipts"+query, nil)
	if userUID != "" {
		ctx := context.WithValue(req.Context(), middlewarectx.User, userUID)
		req = req.WithContext(ctx)
	}
	return req
}

func TestReceiptsHandler(t *testing.T) {
	sample := []*models.PaymentReceipt{
		{ID: 2, UserID: "user-1", Amount: 990, Currency: "usd", Status: "paid"},
		{ID: 1, UserID: "user-1", Amount: 490, Currency: "usd", Status: "paid"},
	}

	tests := []struct {
		name           string
		userUID        string
		query          string
		wantLimit      int
		wantOffset     int
		mockReceipts   []*models.PaymentReceipt
		mockErr        error
		wantStatusCode int
		skipServiceSet bool
	}{
		{
			name:           "default pagination",
			userUID:        "user-1",
			query:          "",
			wantLimit:      20,
			wantOffset:     0,
			mockReceipts:   sample,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "explicit limit and offset",
			userUID:        "user-1",
			query:          "?limit=5&offset=10",
			wantLimit:      5,
			wantOffset:     10,
			mockReceipts:   nil,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "limit above maximum is clamped",
			userUID:        "user-1",
			query:          "?limit=500",
			wantLimit:      100,
			wantOffset:     0,
			mockReceipts:   sample,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "invalid limit",
			userUID:        "user-1",
			query:          "?limit=abc",
			wantStatusCode: http.StatusBadRequest,
			skipServiceSet: true,
		},
		{
			name:           "negative offset",
			userUID:        "user-1",
			query:          "?offset=-1",
			wantStatusCode: http.StatusBadRequest,
			skipServiceSet: true,
		},
		{
			name:           "missing user in context",
			userUID:        "",
			wantStatusCode: http.StatusUnauthorized,
			skipServiceSet: true,
		},
		{
			name:           "service error",
			userUID:        "user-1",
			wantLimit:      20,
			wantOffset:     0,
			mockErr:        errors.New("db down"),
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(ServiceMock)
			if !tt.skipServiceSet {
				service.On("ListReceipts", mock.Anything, tt.userUID, tt.wantLimit, tt.wantOffset).
					Return(tt.mockReceipts, tt.mockErr).Once()
			}
			handler := receipts.New(newNoopLogger(), service)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, newRequest(tt.userUID, tt.query))

			require.Equal(t, tt.wantStatusCode, rec.Code)
			if tt.wantStatusCode == http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"receipts"`)
			}
			service.AssertExpectations(t)
		})
	}
}
