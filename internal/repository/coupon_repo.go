package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/emberleaf/backoffice/internal/models"
)

const couponColumns = `id, code, description, discount_type, value, min_purchase,
	       max_uses, max_uses_per_customer, is_active, starts_at, expires_at,
	       uses_count, square_discount_id, square_discount_version,
	       square_synced, square_synced_at, created_at, updated_at`

type CouponRepo struct {
	db *sql.DB
}

func NewCouponRepo(db *sql.DB) *CouponRepo {
	return &CouponRepo{db: db}
}

func scanCoupon(row interface{ Scan(...any) error }) (*models.Coupon, error) {
	var c models.Coupon
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Description,
		&c.DiscountType,
		&c.Value,
		&c.MinPurchase,
		&c.MaxUses,
		&c.MaxUsesPerCustomer,
		&c.IsActive,
		&c.StartsAt,
		&c.ExpiresAt,
		&c.UsesCount,
		&c.SquareDiscountID,
		&c.SquareDiscountVersion,
		&c.SquareSynced,
		&c.SquareSyncedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByCode looks a coupon up by its stored (uppercase) code.
// Returns (nil, nil) when no coupon exists.
func (r *CouponRepo) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	c, err := scanCoupon(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// GetByID returns (nil, nil) when no coupon exists.
func (r *CouponRepo) GetByID(ctx context.Context, id string) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	c, err := scanCoupon(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *CouponRepo) Create(ctx context.Context, c *models.Coupon) error {
	query := `
		INSERT INTO coupons
		(id, code, description, discount_type, value, min_purchase, max_uses,
		 max_uses_per_customer, is_active, starts_at, expires_at, uses_count,
		 square_discount_id, square_discount_version, square_synced,
		 square_synced_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.Code,
		c.Description,
		c.DiscountType,
		c.Value,
		c.MinPurchase,
		c.MaxUses,
		c.MaxUsesPerCustomer,
		c.IsActive,
		c.StartsAt,
		c.ExpiresAt,
		c.UsesCount,
		c.SquareDiscountID,
		c.SquareDiscountVersion,
		c.SquareSynced,
		c.SquareSyncedAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

func (r *CouponRepo) ListAll(ctx context.Context) ([]models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

// ListSquareLinked returns coupons that carry an external discount reference.
func (r *CouponRepo) ListSquareLinked(ctx context.Context) ([]models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons
		WHERE square_discount_id IS NOT NULL ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

// IncrementUsage bumps uses_count by one inside tx, guarded by the max_uses
// cap. Returns false when the cap is already reached; the guard makes two
// concurrent redemptions of a nearly-exhausted coupon impossible to both
// commit.
func (r *CouponRepo) IncrementUsage(ctx context.Context, tx *sql.Tx, couponID string, now time.Time) (bool, error) {
	query := `
		UPDATE coupons
		SET uses_count = uses_count + 1,
		    updated_at = $1
		WHERE id = $2
		  AND (max_uses IS NULL OR uses_count < max_uses)
	`
	res, err := tx.ExecContext(ctx, query, now, couponID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// OverwriteUsageCount replaces the local counter with the external
// provider's count and stamps the sync time. Sync is the one place the
// counter may move backwards.
func (r *CouponRepo) OverwriteUsageCount(ctx context.Context, couponID string, count int64, syncedAt time.Time) error {
	query := `
		UPDATE coupons
		SET uses_count = $1,
		    square_synced = TRUE,
		    square_synced_at = $2,
		    updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, count, syncedAt, syncedAt, couponID)
	return err
}
