package alert_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/resume-billing/internal/models"
	"github.com/magabrotheeeer/resume-billing/internal/services/alert"
)

type RepositoryMock struct {
	mock.Mock
}

func (m *RepositoryMock) SaveSecurityEvent(ctx context.Context, event models.SecurityAlert) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(routingKey string, message any) error {
	args := m.Called(routingKey, message)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestSecurityAlert(t *testing.T) {
	repo := new(RepositoryMock)
	publisher := new(PublisherMock)
	service := alert.New(repo, publisher, newNoopLogger())

	repo.On("SaveSecurityEvent", mock.Anything, mock.MatchedBy(func(e models.SecurityAlert) bool {
		return e.Severity == models.SeverityWarning &&
			e.EventType == models.AlertSignatureFailure &&
			e.ClientID == "203.0.113.7" &&
			e.Details["reason"] == "signature mismatch"
	})).Return(nil).Once()
	publisher.On("Publish", "security", mock.Anything).Return(nil).Once()

	service.SecurityAlert(context.Background(), "203.0.113.7", map[string]string{
		"reason": "signature mismatch",
	})

	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestException(t *testing.T) {
	repo := new(RepositoryMock)
	publisher := new(PublisherMock)
	service := alert.New(repo, publisher, newNoopLogger())

	repo.On("SaveSecurityEvent", mock.Anything, mock.MatchedBy(func(e models.SecurityAlert) bool {
		return e.Severity == models.SeverityCritical &&
			e.EventType == models.AlertException &&
			e.Details["stage"] == "entitlement" &&
			e.Details["error"] == "connection refused"
	})).Return(nil).Once()
	publisher.On("Publish", "exception", mock.Anything).Return(nil).Once()

	service.Exception(context.Background(), "entitlement", errors.New("connection refused"))

	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRecordErrorsAreSwallowed(t *testing.T) {
	repo := new(RepositoryMock)
	publisher := new(PublisherMock)
	service := alert.New(repo, publisher, newNoopLogger())

	repo.On("SaveSecurityEvent", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	publisher.On("Publish", "security", mock.Anything).Return(errors.New("broker down")).Once()

	assert.NotPanics(t, func() {
		service.SecurityAlert(context.Background(), "203.0.113.7", nil)
	})

	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestNilPublisher(t *testing.T) {
	repo := new(RepositoryMock)
	service := alert.New(repo, nil, newNoopLogger())

	repo.On("SaveSecurityEvent", mock.Anything, mock.Anything).Return(nil).Once()

	assert.NotPanics(t, func() {
		service.SecurityAlert(context.Background(), "203.0.113.7", nil)
	})
	repo.AssertExpectations(t)
}
