package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emberleaf/backoffice/internal/models"
	"github.com/emberleaf/backoffice/internal/square"
)

// User-facing validation messages. These are business outcomes, safe to
// display verbatim.
const (
	MsgInvalidCode      = "Invalid coupon code"
	MsgInactive         = "This coupon is no longer active"
	MsgExpired          = "This coupon has expired"
	MsgNotYetValid      = "This coupon is not yet valid"
	MsgMaxUsesReached   = "This coupon has reached its maximum usage limit"
	MsgPerCustomerLimit = "You have already used this coupon the maximum number of times"
)

var (
	ErrCodeExists     = errors.New("coupon code already exists")
	ErrInvalidInput   = errors.New("invalid coupon input")
	ErrCouponNotFound = errors.New("coupon not found")
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// Repos required by the service (interfaces to allow mocking).
type CouponStore interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	GetByID(ctx context.Context, id string) (*models.Coupon, error)
	Create(ctx context.Context, c *models.Coupon) error
	ListSquareLinked(ctx context.Context) ([]models.Coupon, error)
	IncrementUsage(ctx context.Context, tx *sql.Tx, couponID string, now time.Time) (bool, error)
	OverwriteUsageCount(ctx context.Context, couponID string, count int64, syncedAt time.Time) error
}

type RedemptionStore interface {
	Insert(ctx context.Context, tx *sql.Tx, red *models.Redemption) error
	CountByCouponAndEmail(ctx context.Context, couponID, email string) (int64, error)
}

type CouponService struct {
	db          *sql.DB // transactions
	coupons     CouponStore
	redemptions RedemptionStore
	square      square.Client // nil when sync is not configured
	nowFunc     func() time.Time
}

func NewCouponService(db *sql.DB, coupons CouponStore, redemptions RedemptionStore, sq square.Client) *CouponService {
	return &CouponService{
		db:          db,
		coupons:     coupons,
		redemptions: redemptions,
		square:      sq,
		nowFunc:     time.Now,
	}
}

func invalid(msg string, orderTotal float64) models.ValidationResponse {
	return models.ValidationResponse{
		IsValid:    false,
		Message:    msg,
		FinalTotal: orderTotal,
	}
}

// ValidateCoupon runs the full validation pipeline. Checks run in priority
// order (existence, lifecycle, capacity, eligibility) and short-circuit on
// the first failure. A rejected coupon is a business outcome, not an error;
// the error return is reserved for infrastructure failures.
func (s *CouponService) ValidateCoupon(ctx context.Context, req models.ValidationRequest) (models.ValidationResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return invalid(MsgInvalidCode, req.OrderTotal), nil
	}

	coupon, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return models.ValidationResponse{}, fmt.Errorf("lookup coupon: %w", err)
	}
	if coupon == nil {
		return invalid(MsgInvalidCode, req.OrderTotal), nil
	}

	now := s.nowFunc()
	if !coupon.IsActive {
		return invalid(MsgInactive, req.OrderTotal), nil
	}
	if coupon.ExpiresAt != nil && coupon.ExpiresAt.Before(now) {
		return invalid(MsgExpired, req.OrderTotal), nil
	}
	if coupon.StartsAt.After(now) {
		return invalid(MsgNotYetValid, req.OrderTotal), nil
	}
	if coupon.MaxUses != nil && coupon.UsesCount >= *coupon.MaxUses {
		return invalid(MsgMaxUsesReached, req.OrderTotal), nil
	}
	if coupon.MinPurchase != nil && req.OrderTotal < *coupon.MinPurchase {
		return invalid(fmt.Sprintf("Minimum purchase of $%.2f required", *coupon.MinPurchase), req.OrderTotal), nil
	}
	// Per-customer cap is only enforceable when the caller identifies the
	// customer; with no email the check is skipped entirely.
	if coupon.MaxUsesPerCustomer != nil && req.CustomerEmail != "" {
		used, err := s.redemptions.CountByCouponAndEmail(ctx, coupon.ID, req.CustomerEmail)
		if err != nil {
			return models.ValidationResponse{}, fmt.Errorf("count customer redemptions: %w", err)
		}
		if used >= *coupon.MaxUsesPerCustomer {
			return invalid(MsgPerCustomerLimit, req.OrderTotal), nil
		}
	}

	discount, err := computeDiscount(coupon, req.OrderTotal)
	if err != nil {
		return models.ValidationResponse{}, err
	}

	return models.ValidationResponse{
		IsValid:        true,
		DiscountAmount: discount,
		FinalTotal:     req.OrderTotal - discount,
		Message:        fmt.Sprintf("Coupon applied! You save $%.2f", discount),
		Coupon:         coupon,
	}, nil
}

// computeDiscount is the single computation site for discount kinds. The
// switch is exhaustive; an unknown type stored in the database is a
// programming error, not a business outcome.
func computeDiscount(coupon *models.Coupon, orderTotal float64) (float64, error) {
	var discount float64
	switch coupon.DiscountType {
	case models.DiscountPercentage:
		discount = orderTotal * coupon.Value / 100
	case models.DiscountFixed:
		discount = coupon.Value
	default:
		return 0, fmt.Errorf("unknown discount type %q on coupon %s", coupon.DiscountType, coupon.Code)
	}
	// Never drive the total negative.
	if discount > orderTotal {
		discount = orderTotal
	}
	return discount, nil
}

// RedeemCoupon re-runs the full validation (a prior ValidateCoupon call is
// not trusted) and then, in one transaction, inserts the redemption row and
// increments the coupon's usage counter. The increment is guarded by the
// max_uses cap so concurrent redemptions cannot overshoot it.
func (s *CouponService) RedeemCoupon(ctx context.Context, req models.ValidationRequest) (models.RedemptionResponse, error) {
	v, err := s.ValidateCoupon(ctx, req)
	if err != nil {
		return models.RedemptionResponse{}, err
	}
	if !v.IsValid {
		return models.RedemptionResponse{Success: false, Message: v.Message}, nil
	}

	now := s.nowFunc()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.RedemptionResponse{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ok, err := s.coupons.IncrementUsage(ctx, tx, v.Coupon.ID, now)
	if err != nil {
		return models.RedemptionResponse{}, fmt.Errorf("increment usage: %w", err)
	}
	if !ok {
		// Lost the race to the last remaining use.
		return models.RedemptionResponse{Success: false, Message: MsgMaxUsesReached}, nil
	}

	red := &models.Redemption{
		ID:             uuid.NewString(),
		CouponID:       v.Coupon.ID,
		DiscountAmount: v.DiscountAmount,
		OrderTotal:     req.OrderTotal,
		RedeemedAt:     now,
	}
	if req.CustomerEmail != "" {
		red.CustomerEmail = &req.CustomerEmail
	}
	if req.CustomerPhone != "" {
		red.CustomerPhone = &req.CustomerPhone
	}
	if err := s.redemptions.Insert(ctx, tx, red); err != nil {
		return models.RedemptionResponse{}, fmt.Errorf("insert redemption: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.RedemptionResponse{}, fmt.Errorf("commit redemption: %w", err)
	}
	committed = true

	return models.RedemptionResponse{
		Success: true,
		Message: fmt.Sprintf("Coupon redeemed! You saved $%.2f", v.DiscountAmount),
	}, nil
}

type CreateCouponInput struct {
	Code               string
	Description        string
	DiscountType       models.DiscountType
	Value              float64
	MinPurchase        *float64
	MaxUses            *int64
	MaxUsesPerCustomer *int64
	StartsAt           time.Time
	ExpiresAt          *time.Time
}

// CreateCoupon persists a new coupon and, when the discount provider is
// configured, mirrors it into the remote catalog first. The remote call is
// best-effort: a failure is logged and the coupon is created local-only.
func (s *CouponService) CreateCoupon(ctx context.Context, in CreateCouponInput) (*models.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if !codePattern.MatchString(code) {
		return nil, fmt.Errorf("%w: code must be alphanumeric", ErrInvalidInput)
	}
	if in.Value <= 0 {
		return nil, fmt.Errorf("%w: value must be positive", ErrInvalidInput)
	}
	if !in.DiscountType.Valid() {
		return nil, fmt.Errorf("%w: unknown discount type %q", ErrInvalidInput, in.DiscountType)
	}

	existing, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("check existing coupon: %w", err)
	}
	if existing != nil {
		return nil, ErrCodeExists
	}

	now := s.nowFunc()
	coupon := &models.Coupon{
		ID:                 uuid.NewString(),
		Code:               code,
		Description:        in.Description,
		DiscountType:       in.DiscountType,
		Value:              in.Value,
		MinPurchase:        in.MinPurchase,
		MaxUses:            in.MaxUses,
		MaxUsesPerCustomer: in.MaxUsesPerCustomer,
		IsActive:           true,
		StartsAt:           in.StartsAt,
		ExpiresAt:          in.ExpiresAt,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if s.square != nil {
		def := square.DiscountDefinition{
			Name:  code,
			Fixed: in.DiscountType == models.DiscountFixed,
		}
		if def.Fixed {
			def.AmountCents = square.Cents(in.Value)
		} else {
			def.Percentage = in.Value
		}
		if in.MinPurchase != nil {
			def.MinPurchaseCents = square.Cents(*in.MinPurchase)
		}

		created, err := s.square.CreateDiscount(ctx, def)
		if err != nil {
			zap.L().Warn("square discount creation failed, creating coupon local-only",
				zap.String("code", code),
				zap.Error(err))
		} else {
			coupon.SquareDiscountID = &created.ID
			coupon.SquareDiscountVersion = &created.Version
			coupon.SquareSynced = true
			coupon.SquareSyncedAt = &now
		}
	}

	if err := s.coupons.Create(ctx, coupon); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	return coupon, nil
}

type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusSkipped SyncStatus = "skipped"
)

// SyncOutcome says what happened to one coupon during sync. A skip carries
// its reason so degraded behavior stays diagnosable.
type SyncOutcome struct {
	Status     SyncStatus
	Reason     string
	UsageCount int64
}

// syncWindow bounds the remote order search.
const syncWindowDays = 365

// SyncCouponUsage pulls the authoritative usage count for one coupon from
// the provider's order history and overwrites the local counter. Remote is
// ground truth only here, never during real-time validation.
func (s *CouponService) SyncCouponUsage(ctx context.Context, couponID string) (SyncOutcome, error) {
	if s.square == nil {
		return SyncOutcome{Status: SyncStatusSkipped, Reason: "square not configured"}, nil
	}

	coupon, err := s.coupons.GetByID(ctx, couponID)
	if err != nil {
		return SyncOutcome{}, fmt.Errorf("load coupon: %w", err)
	}
	if coupon == nil {
		return SyncOutcome{}, ErrCouponNotFound
	}
	if coupon.SquareDiscountID == nil {
		return SyncOutcome{Status: SyncStatusSkipped, Reason: "coupon has no square discount link"}, nil
	}

	until := s.nowFunc()
	since := until.AddDate(0, 0, -syncWindowDays)
	count, err := s.square.CountDiscountUsage(ctx, *coupon.SquareDiscountID, since, until)
	if err != nil {
		return SyncOutcome{}, fmt.Errorf("count discount usage: %w", err)
	}

	if err := s.coupons.OverwriteUsageCount(ctx, couponID, count, until); err != nil {
		return SyncOutcome{}, fmt.Errorf("overwrite usage count: %w", err)
	}

	return SyncOutcome{Status: SyncStatusSynced, UsageCount: count}, nil
}

// SyncAllCoupons reconciles every externally-linked coupon, sequentially so
// per-coupon failures stay isolated. It returns how many coupons synced;
// one bad coupon never blocks the rest.
func (s *CouponService) SyncAllCoupons(ctx context.Context) (int, error) {
	if s.square == nil {
		zap.L().Info("square not configured, skipping bulk sync")
		return 0, nil
	}

	coupons, err := s.coupons.ListSquareLinked(ctx)
	if err != nil {
		return 0, fmt.Errorf("list linked coupons: %w", err)
	}

	synced := 0
	for _, c := range coupons {
		outcome, err := s.SyncCouponUsage(ctx, c.ID)
		if err != nil {
			zap.L().Error("coupon sync failed, continuing",
				zap.String("code", c.Code),
				zap.Error(err))
			continue
		}
		if outcome.Status == SyncStatusSynced {
			synced++
		} else {
			zap.L().Info("coupon sync skipped",
				zap.String("code", c.Code),
				zap.String("reason", outcome.Reason))
		}
	}
	return synced, nil
}
