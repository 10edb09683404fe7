package withdrawals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
)

func setupWithdrawalsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS withdrawal_requests (
  id TEXT PRIMARY KEY,
  affiliate_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  pix_key TEXT NOT NULL,
  notes TEXT,
  admin_notes TEXT,
  resolved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func createWithdrawal(t *testing.T, db *gorm.DB, affiliateID, storeID uuid.UUID, status enums.WithdrawalStatus, createdAt time.Time) *models.WithdrawalRequest {
	t.Helper()

	request := &models.WithdrawalRequest{
		ID:          uuid.New(),
		AffiliateID: affiliateID,
		StoreID:     storeID,
		Amount:      decimal.RequireFromString("150.00"),
		Status:      status,
		PixKey:      "carla@exemplo.com.br",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, db.Create(request).Error)
	return request
}

func TestRepositoryListByAffiliateFiltersStatus(t *testing.T) {
	db := setupWithdrawalsTestDB(t)
	repo := NewRepository(db)

	affiliateID := uuid.New()
	storeID := uuid.New()
	now := time.Now().UTC()

	pending := createWithdrawal(t, db, affiliateID, storeID, enums.WithdrawalStatusPending, now)
	createWithdrawal(t, db, affiliateID, storeID, enums.WithdrawalStatusPaid, now.Add(-time.Hour))
	createWithdrawal(t, db, uuid.New(), storeID, enums.WithdrawalStatusPending, now)

	requests, cursor, err := repo.ListByAffiliate(context.Background(), ListWithdrawalsParams{
		AffiliateID: affiliateID,
		Status:      enums.WithdrawalStatusPending,
		Limit:       10,
	})
	require.NoError(t, err)
	assert.Nil(t, cursor)
	require.Len(t, requests, 1)
	assert.Equal(t, pending.ID, requests[0].ID)
}

func TestRepositoryListByAffiliateScopesStore(t *testing.T) {
	db := setupWithdrawalsTestDB(t)
	repo := NewRepository(db)

	affiliateID := uuid.New()
	storeID := uuid.New()
	now := time.Now().UTC()

	mine := createWithdrawal(t, db, affiliateID, storeID, enums.WithdrawalStatusPending, now)
	createWithdrawal(t, db, affiliateID, uuid.New(), enums.WithdrawalStatusPending, now)

	requests, _, err := repo.ListByAffiliate(context.Background(), ListWithdrawalsParams{
		AffiliateID: affiliateID,
		StoreID:     storeID,
		Limit:       10,
	})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, mine.ID, requests[0].ID)
}

func TestRepositoryListByStorePagination(t *testing.T) {
	db := setupWithdrawalsTestDB(t)
	repo := NewRepository(db)

	storeID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		createWithdrawal(t, db, uuid.New(), storeID, enums.WithdrawalStatusPending, base.Add(time.Duration(i)*time.Minute))
	}

	first, next, err := repo.ListByStore(context.Background(), ListWithdrawalsParams{StoreID: storeID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, next)
	assert.True(t, first[0].CreatedAt.After(first[1].CreatedAt))

	rest, last, err := repo.ListByStore(context.Background(), ListWithdrawalsParams{StoreID: storeID, Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Nil(t, last)
	assert.True(t, rest[0].CreatedAt.Before(first[1].CreatedAt))
}

func TestRepositoryUpdatePersistsResolution(t *testing.T) {
	db := setupWithdrawalsTestDB(t)
	repo := NewRepository(db)

	request := createWithdrawal(t, db, uuid.New(), uuid.New(), enums.WithdrawalStatusPending, time.Now().UTC())

	resolvedAt := time.Now().UTC()
	adminNotes := "Comprovante PIX conferido"
	request.Status = enums.WithdrawalStatusApproved
	request.AdminNotes = &adminNotes
	request.ResolvedAt = &resolvedAt
	require.NoError(t, repo.Update(context.Background(), request))

	reloaded, err := repo.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusApproved, reloaded.Status)
	require.NotNil(t, reloaded.AdminNotes)
	assert.Equal(t, adminNotes, *reloaded.AdminNotes)
	require.NotNil(t, reloaded.ResolvedAt)
}
