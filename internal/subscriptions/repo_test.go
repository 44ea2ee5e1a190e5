package subscriptions

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

	"github.com/virtucloud/virtucloud-backend/pkg/db/models"
	"github.com/virtucloud/virtucloud-backend/pkg/enums"
)

func setupSubscriptionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS subscriptions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  plan_name TEXT NOT NULL,
  price TEXT NOT NULL,
  cpu_cores INTEGER NOT NULL,
  max_vms INTEGER NOT NULL,
  max_backups INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  active BOOLEAN NOT NULL DEFAULT true,
  start_date DATETIME NOT NULL,
  next_billing_date DATETIME NOT NULL,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(ddl).Error)
	require.NoError(t, conn.Exec("DELETE FROM subscriptions").Error)
	return conn
}

func testSubscription(userID uuid.UUID, plan enums.PlanName, start, next time.Time) *models.Subscription {
	return &models.Subscription{
		ID:              uuid.New(),
		UserID:          userID,
		PlanName:        plan,
		Price:           decimal.RequireFromString("19.99"),
		CPUCores:        3,
		MaxVMs:          5,
		MaxBackups:      3,
		Status:          enums.SubscriptionStatusActive,
		Active:          true,
		StartDate:       start,
		NextBillingDate: next,
	}
}

func TestUpsertKeepsSingleRowPerUser(t *testing.T) {
	conn := setupSubscriptionsTestDB(t)
	repo, err := NewRepository(conn)
	require.NoError(t, err)

	userID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	first := testSubscription(userID, enums.PlanNameSilver, now, now.AddDate(0, 1, 0))
	require.NoError(t, repo.Upsert(context.Background(), first))

	second := testSubscription(userID, enums.PlanNameGold, now, now.AddDate(0, 1, 0))
	second.Price = decimal.RequireFromString("49.99")
	second.MaxVMs = 10
	require.NoError(t, repo.Upsert(context.Background(), second))

	var count int64
	require.NoError(t, conn.Table("subscriptions").Where("user_id = ?", userID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err := repo.FindByUserID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, enums.PlanNameGold, stored.PlanName)
	assert.Equal(t, 10, stored.MaxVMs)
	assert.True(t, stored.Price.Equal(decimal.RequireFromString("49.99")))
}

func TestFindByUserIDMissingReturnsNil(t *testing.T) {
	conn := setupSubscriptionsTestDB(t)
	repo, err := NewRepository(conn)
	require.NoError(t, err)

	stored, err := repo.FindByUserID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestCancelOnlyTouchesActiveRows(t *testing.T) {
	conn := setupSubscriptionsTestDB(t)
	repo, err := NewRepository(conn)
	require.NoError(t, err)

	userID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Upsert(context.Background(), testSubscription(userID, enums.PlanNameSilver, now, now.AddDate(0, 1, 0))))

	affected, err := repo.Cancel(context.Background(), userID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.Cancel(context.Background(), userID, now)
	require.NoError(t, err)
	assert.Zero(t, affected)

	stored, err := repo.FindByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusCancelled, stored.Status)
	assert.False(t, stored.Active)
	assert.NotNil(t, stored.CancelledAt)
}

func TestExpireDueIsIdempotentAndBatched(t *testing.T) {
	conn := setupSubscriptionsTestDB(t)
	repo, err := NewRepository(conn)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 3; i++ {
		due := testSubscription(uuid.New(), enums.PlanNameSilver, now.AddDate(0, -2, 0), now.AddDate(0, -1, 0))
		require.NoError(t, repo.Upsert(context.Background(), due))
	}
	live := testSubscription(uuid.New(), enums.PlanNameSilver, now, now.AddDate(0, 1, 0))
	require.NoError(t, repo.Upsert(context.Background(), live))

	affected, err := repo.ExpireDue(context.Background(), now, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	affected, err = repo.ExpireDue(context.Background(), now, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.ExpireDue(context.Background(), now, 2)
	require.NoError(t, err)
	assert.Zero(t, affected)

	stored, err := repo.FindByUserID(context.Background(), live.UserID)
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusActive, stored.Status)
	assert.True(t, stored.Active)

	var expired int64
	require.NoError(t, conn.Table("subscriptions").Where("status = ? AND active = ?", enums.SubscriptionStatusExpired, false).Count(&expired).Error)
	assert.Equal(t, int64(3), expired)
}
