package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/resume-billing/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateEntitlement создает запись прав пользователя
func (f *TestDataFactory) CreateEntitlement(t *testing.T, userUID string, unlocked bool, customerID string) {
	_, err := f.storage.DB.Exec(`INSERT INTO user_entitlements
		(user_id, export_unlocked, export_unlocked_at, stripe_customer_id, updated_at)
		VALUES ($1, $2, CASE WHEN $2 THEN NOW() ELSE NULL END, $3, NOW())`,
		userUID, unlocked, customerID)
	require.NoError(t, err)
}

// CreateLedgerEntry создает запись журнала событий напрямую
func (f *TestDataFactory) CreateLedgerEntry(t *testing.T, providerEventID, eventType string) {
	_, err := f.storage.DB.Exec(`INSERT INTO webhook_events
		(provider_event_id, event_type, metadata, processed_at)
		VALUES ($1, $2, '{}', NOW())`,
		providerEventID, eventType)
	require.NoError(t, err)
}

// CreateReceipt создает тестовый чек
func (f *TestDataFactory) CreateReceipt(t *testing.T, receipt models.PaymentReceipt) int64 {
	id, err := f.storage.SaveReceipt(context.Background(), receipt)
	require.NoError(t, err)
	return id
}

const testSchema = `
		CREATE TABLE IF NOT EXISTS webhook_events (
			provider_event_id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			customer_id TEXT,
			metadata JSONB NOT NULL DEFAULT '{}',
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS user_entitlements (
			user_id TEXT PRIMARY KEY,
			export_unlocked BOOLEAN NOT NULL DEFAULT FALSE,
			export_unlocked_at TIMESTAMPTZ,
			stripe_customer_id TEXT,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS subscription_mirrors (
			customer_id TEXT PRIMARY KEY,
			subscription_id TEXT,
			price_id TEXT,
			current_period_start TIMESTAMPTZ,
			current_period_end TIMESTAMPTZ,
			cancel_at_period_end BOOLEAN NOT NULL DEFAULT FALSE,
			status TEXT NOT NULL,
			payment_method_brand TEXT,
			payment_method_last4 TEXT
		);

		CREATE TABLE IF NOT EXISTS payment_receipts (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			payment_intent_id TEXT NOT NULL,
			checkout_session_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS security_events (
			id BIGSERIAL PRIMARY KEY,
			severity TEXT NOT NULL,
			event_type TEXT NOT NULL,
			client_id TEXT,
			details JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(3*time.Minute)),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			if err = storage.DB.Ping(); err == nil {
				break
			}
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	_, err = storage.DB.Exec(testSchema)
	require.NoError(t, err, "failed to create schema")

	cleanup := func() {
		_ = storage.DB.Close()
		_ = container.Terminate(ctx)
	}
	return storage, cleanup
}
