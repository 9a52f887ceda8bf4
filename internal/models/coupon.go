package models

import "time"

// DiscountType is the kind of discount a coupon applies. Keep the switch in
// the coupon service exhaustive when adding new kinds.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	switch t {
	case DiscountPercentage, DiscountFixed:
		return true
	}
	return false
}

type Coupon struct {
	ID                    string
	Code                  string
	Description           string
	DiscountType          DiscountType
	Value                 float64
	MinPurchase           *float64
	MaxUses               *int64
	MaxUsesPerCustomer    *int64
	IsActive              bool
	StartsAt              time.Time
	ExpiresAt             *time.Time
	UsesCount             int64
	SquareDiscountID      *string
	SquareDiscountVersion *int64
	SquareSynced          bool
	SquareSyncedAt        *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Redemption is one successful application of a coupon to an order.
// Rows are append-only.
type Redemption struct {
	ID             string
	CouponID       string
	CustomerEmail  *string
	CustomerPhone  *string
	DiscountAmount float64
	OrderTotal     float64
	RedeemedAt     time.Time
}
