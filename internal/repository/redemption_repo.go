package repository

import (
	"context"
	"database/sql"

	"github.com/emberleaf/backoffice/internal/models"
)

type RedemptionRepo struct {
	db *sql.DB
}

func NewRedemptionRepo(db *sql.DB) *RedemptionRepo {
	return &RedemptionRepo{db: db}
}

// Insert writes the redemption row inside tx so it commits atomically with
// the coupon's usage increment.
func (r *RedemptionRepo) Insert(ctx context.Context, tx *sql.Tx, red *models.Redemption) error {
	query := `
		INSERT INTO coupon_redemptions
		(id, coupon_id, customer_email, customer_phone, discount_amount, order_total, redeemed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	_, err := tx.ExecContext(ctx, query,
		red.ID,
		red.CouponID,
		red.CustomerEmail,
		red.CustomerPhone,
		red.DiscountAmount,
		red.OrderTotal,
		red.RedeemedAt,
	)
	return err
}

// CountByCouponAndEmail counts prior redemptions of a coupon by one
// customer, for the per-customer usage cap.
func (r *RedemptionRepo) CountByCouponAndEmail(ctx context.Context, couponID, email string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM coupon_redemptions
		WHERE coupon_id = $1 AND customer_email = $2
	`
	var n int64
	if err := r.db.QueryRowContext(ctx, query, couponID, email).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *RedemptionRepo) ListByCoupon(ctx context.Context, couponID string) ([]models.Redemption, error) {
	query := `
		SELECT id, coupon_id, customer_email, customer_phone, discount_amount, order_total, redeemed_at
		FROM coupon_redemptions
		WHERE coupon_id = $1
		ORDER BY redeemed_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, couponID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var redemptions []models.Redemption
	for rows.Next() {
		var red models.Redemption
		if err := rows.Scan(
			&red.ID,
			&red.CouponID,
			&red.CustomerEmail,
			&red.CustomerPhone,
			&red.DiscountAmount,
			&red.OrderTotal,
			&red.RedeemedAt,
		); err != nil {
			return nil, err
		}
		redemptions = append(redemptions, red)
	}
	return redemptions, rows.Err()
}
