package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberleaf/backoffice/internal/models"
	"github.com/emberleaf/backoffice/pkg/db"
)

// setupTestDB opens an in-memory SQLite database with the real schema.
// MaxOpenConns(1) because each new connection to :memory: would otherwise
// see its own empty database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)

	require.NoError(t, db.InitSchema(context.Background(), conn))

	t.Cleanup(func() { conn.Close() })
	return conn
}

func testCoupon(code string) *models.Coupon {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Coupon{
		ID:           "coupon-" + code,
		Code:         code,
		Description:  "test coupon",
		DiscountType: models.DiscountPercentage,
		Value:        25,
		IsActive:     true,
		StartsAt:     now.Add(-time.Hour),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCouponRepo_CreateAndGet(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewCouponRepo(conn)
	ctx := context.Background()

	c := testCoupon("SUMMER25")
	minPurchase := 50.0
	maxUses := int64(100)
	c.MinPurchase = &minPurchase
	c.MaxUses = &maxUses

	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetByCode(ctx, "SUMMER25")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, models.DiscountPercentage, got.DiscountType)
	assert.Equal(t, 25.0, got.Value)
	require.NotNil(t, got.MinPurchase)
	assert.Equal(t, 50.0, *got.MinPurchase)
	require.NotNil(t, got.MaxUses)
	assert.Equal(t, int64(100), *got.MaxUses)
	assert.Nil(t, got.MaxUsesPerCustomer)
	assert.Nil(t, got.ExpiresAt)
	assert.False(t, got.SquareSynced)

	byID, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "SUMMER25", byID.Code)
}

func TestCouponRepo_GetByCode_Missing(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewCouponRepo(conn)

	got, err := repo.GetByCode(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCouponRepo_IncrementUsage_GuardedByMaxUses(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewCouponRepo(conn)
	ctx := context.Background()

	c := testCoupon("ONCE")
	maxUses := int64(1)
	c.MaxUses = &maxUses
	require.NoError(t, repo.Create(ctx, c))

	now := time.Now().UTC()

	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	ok, err := repo.IncrementUsage(ctx, tx, c.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, tx.Commit())

	// cap reached, second increment must refuse
	tx, err = conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	ok, err = repo.IncrementUsage(ctx, tx, c.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, tx.Rollback())

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UsesCount)
}

func TestCouponRepo_IncrementUsage_UncappedCoupon(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewCouponRepo(conn)
	ctx := context.Background()

	c := testCoupon("NOLIMIT")
	require.NoError(t, repo.Create(ctx, c))

	for i := 0; i < 3; i++ {
		tx, err := conn.BeginTx(ctx, nil)
		require.NoError(t, err)
		ok, err := repo.IncrementUsage(ctx, tx, c.ID, time.Now().UTC())
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, tx.Commit())
	}

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.UsesCount)
}

func TestCouponRepo_OverwriteUsageCount(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewCouponRepo(conn)
	ctx := context.Background()

	c := testCoupon("POS10")
	c.UsesCount = 7
	require.NoError(t, repo.Create(ctx, c))

	syncedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.OverwriteUsageCount(ctx, c.ID, 3, syncedAt))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	// sync may move the counter backwards; remote is ground truth here
	assert.Equal(t, int64(3), got.UsesCount)
	assert.True(t, got.SquareSynced)
	require.NotNil(t, got.SquareSyncedAt)
	assert.WithinDuration(t, syncedAt, *got.SquareSyncedAt, time.Second)
}

func TestCouponRepo_ListSquareLinked(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewCouponRepo(conn)
	ctx := context.Background()

	linked := testCoupon("LINKED")
	discountID := "sq-discount-1"
	version := int64(2)
	linked.SquareDiscountID = &discountID
	linked.SquareDiscountVersion = &version
	linked.SquareSynced = true
	require.NoError(t, repo.Create(ctx, linked))

	require.NoError(t, repo.Create(ctx, testCoupon("LOCAL")))

	got, err := repo.ListSquareLinked(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "LINKED", got[0].Code)
	require.NotNil(t, got[0].SquareDiscountID)
	assert.Equal(t, discountID, *got[0].SquareDiscountID)
}

func TestRedemptionRepo_InsertAndCount(t *testing.T) {
	conn := setupTestDB(t)
	coupons := NewCouponRepo(conn)
	redemptions := NewRedemptionRepo(conn)
	ctx := context.Background()

	c := testCoupon("LOYAL")
	require.NoError(t, coupons.Create(ctx, c))

	email := "a@x.com"
	insert := func(id string, email *string) {
		tx, err := conn.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, redemptions.Insert(ctx, tx, &models.Redemption{
			ID:             id,
			CouponID:       c.ID,
			CustomerEmail:  email,
			DiscountAmount: 5,
			OrderTotal:     20,
			RedeemedAt:     time.Now().UTC(),
		}))
		require.NoError(t, tx.Commit())
	}

	insert("r1", &email)
	insert("r2", &email)
	insert("r3", nil)

	n, err := redemptions.CountByCouponAndEmail(ctx, c.ID, email)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = redemptions.CountByCouponAndEmail(ctx, c.ID, "other@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	all, err := redemptions.ListByCoupon(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestVerificationRepo_InsertAndList(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewVerificationRepo(conn)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	v := &models.AgeVerification{
		ID:         "v1",
		SessionID:  "session-1",
		IPHash:     "abc123",
		UserAgent:  "Mozilla/5.0",
		VerifiedAt: now,
		ExpiresAt:  now.Add(24 * time.Hour),
		CreatedAt:  now,
	}
	require.NoError(t, repo.Insert(ctx, v))

	rows, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "session-1", rows[0].SessionID)
	assert.Equal(t, "abc123", rows[0].IPHash)
	assert.WithinDuration(t, now.Add(24*time.Hour), rows[0].ExpiresAt, time.Second)
}

func TestVerificationRepo_EachStreamsInOrder(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewVerificationRepo(conn)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"v1", "v2", "v3"} {
		require.NoError(t, repo.Insert(ctx, &models.AgeVerification{
			ID:         id,
			SessionID:  "s-" + id,
			IPHash:     "hash",
			UserAgent:  "Mozilla/5.0",
			VerifiedAt: base.Add(time.Duration(i) * time.Minute),
			ExpiresAt:  base.Add(24 * time.Hour),
			CreatedAt:  base,
		}))
	}

	var seen []string
	require.NoError(t, repo.Each(ctx, func(v *models.AgeVerification) error {
		seen = append(seen, v.SessionID)
		return nil
	}))
	assert.Equal(t, []string{"s-v1", "s-v2", "s-v3"}, seen)

	// a callback error stops the scan
	stop := errors.New("stop")
	count := 0
	err := repo.Each(ctx, func(*models.AgeVerification) error {
		count++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, count)
}

func TestContactRepo_Insert(t *testing.T) {
	conn := setupTestDB(t)
	repo := NewContactRepo(conn)
	ctx := context.Background()

	phone := "555-0100"
	require.NoError(t, repo.Insert(ctx, &models.ContactSubmission{
		ID:        "c1",
		Name:      "Sam",
		Email:     "sam@example.com",
		Phone:     &phone,
		Subject:   "Hours",
		Message:   "Are you open Sundays?",
		CreatedAt: time.Now().UTC(),
	}))

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM contact_submissions`).Scan(&n))
	assert.Equal(t, 1, n)
}
