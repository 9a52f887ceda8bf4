package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/emberleaf/backoffice/internal/models"
	"github.com/emberleaf/backoffice/internal/repository"
	"github.com/emberleaf/backoffice/internal/service"
)

// --- Request / Response DTOs ---

type ValidateCouponRequest struct {
	Code          string  `json:"code" validate:"required"`
	OrderTotal    float64 `json:"orderTotal" validate:"gte=0"`
	CustomerEmail string  `json:"customerEmail,omitempty" validate:"omitempty,email"`
	CustomerPhone string  `json:"customerPhone,omitempty"`
}

type CreateCouponRequest struct {
	Code               string   `json:"code" validate:"required"`
	Description        string   `json:"description"`
	Type               string   `json:"type" validate:"required,oneof=percentage fixed"`
	Value              float64  `json:"value" validate:"required,gt=0"`
	MinPurchase        *float64 `json:"minPurchase,omitempty" validate:"omitempty,gte=0"`
	MaxUses            *int64   `json:"maxUses,omitempty" validate:"omitempty,gt=0"`
	MaxUsesPerCustomer *int64   `json:"maxUsesPerCustomer,omitempty" validate:"omitempty,gt=0"`
	StartsAt           string   `json:"startsAt" validate:"required"` // RFC3339
	ExpiresAt          string   `json:"expiresAt,omitempty"`         // RFC3339
}

type CouponView struct {
	ID                 string     `json:"id"`
	Code               string     `json:"code"`
	Description        string     `json:"description"`
	Type               string     `json:"type"`
	Value              float64    `json:"value"`
	MinPurchase        *float64   `json:"minPurchase,omitempty"`
	MaxUses            *int64     `json:"maxUses,omitempty"`
	MaxUsesPerCustomer *int64     `json:"maxUsesPerCustomer,omitempty"`
	IsActive           bool       `json:"isActive"`
	StartsAt           time.Time  `json:"startsAt"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
	UsesCount          int64      `json:"usesCount"`
	SquareSynced       bool       `json:"squareSynced"`
	SquareSyncedAt     *time.Time `json:"squareSyncedAt,omitempty"`
}

func newCouponView(c *models.Coupon) CouponView {
	return CouponView{
		ID:                 c.ID,
		Code:               c.Code,
		Description:        c.Description,
		Type:               string(c.DiscountType),
		Value:              c.Value,
		MinPurchase:        c.MinPurchase,
		MaxUses:            c.MaxUses,
		MaxUsesPerCustomer: c.MaxUsesPerCustomer,
		IsActive:           c.IsActive,
		StartsAt:           c.StartsAt,
		ExpiresAt:          c.ExpiresAt,
		UsesCount:          c.UsesCount,
		SquareSynced:       c.SquareSynced,
		SquareSyncedAt:     c.SquareSyncedAt,
	}
}

type RedemptionView struct {
	ID             string    `json:"id"`
	CustomerEmail  *string   `json:"customerEmail,omitempty"`
	CustomerPhone  *string   `json:"customerPhone,omitempty"`
	DiscountAmount float64   `json:"discountAmount"`
	OrderTotal     float64   `json:"orderTotal"`
	RedeemedAt     time.Time `json:"redeemedAt"`
}

// --- Handler ---

type CouponHandler struct {
	service     *service.CouponService
	coupons     *repository.CouponRepo
	redemptions *repository.RedemptionRepo
}

func NewCouponHandler(svc *service.CouponService, coupons *repository.CouponRepo, redemptions *repository.RedemptionRepo) *CouponHandler {
	return &CouponHandler{
		service:     svc,
		coupons:     coupons,
		redemptions: redemptions,
	}
}

func (h *CouponHandler) decodeValidateRequest(w http.ResponseWriter, r *http.Request) (*models.ValidationRequest, bool) {
	var req ValidateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Please provide a coupon code and a valid order total")
		return nil, false
	}
	return &models.ValidationRequest{
		Code:          req.Code,
		OrderTotal:    req.OrderTotal,
		CustomerEmail: strings.TrimSpace(strings.ToLower(req.CustomerEmail)),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
	}, true
}

// Validate handles POST /api/coupons/validate. A rejected coupon is still a
// 200: validation failures are business outcomes, not transport errors.
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeValidateRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.service.ValidateCoupon(r.Context(), *req)
	if err != nil {
		zap.L().Error("coupon validation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}

	data := map[string]interface{}{
		"isValid":        resp.IsValid,
		"discountAmount": resp.DiscountAmount,
		"finalTotal":     resp.FinalTotal,
		"message":        resp.Message,
	}
	if resp.Coupon != nil {
		view := newCouponView(resp.Coupon)
		data["coupon"] = view
	}
	writeData(w, http.StatusOK, data)
}

// Redeem handles POST /api/coupons/redeem.
func (h *CouponHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeValidateRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.service.RedeemCoupon(r.Context(), *req)
	if err != nil {
		zap.L().Error("coupon redemption failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /api/admin/coupons.
func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid coupon: check code, type and value")
		return
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "startsAt must be an RFC3339 timestamp")
		return
	}
	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expiresAt must be an RFC3339 timestamp")
			return
		}
		expiresAt = &t
	}

	coupon, err := h.service.CreateCoupon(r.Context(), service.CreateCouponInput{
		Code:               req.Code,
		Description:        req.Description,
		DiscountType:       models.DiscountType(req.Type),
		Value:              req.Value,
		MinPurchase:        req.MinPurchase,
		MaxUses:            req.MaxUses,
		MaxUsesPerCustomer: req.MaxUsesPerCustomer,
		StartsAt:           startsAt,
		ExpiresAt:          expiresAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeExists):
			writeError(w, http.StatusConflict, "A coupon with this code already exists")
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Invalid coupon: check code, type and value")
		default:
			zap.L().Error("coupon creation failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}
		return
	}
	writeData(w, http.StatusCreated, newCouponView(coupon))
}

// List handles GET /api/admin/coupons.
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.ListAll(r.Context())
	if err != nil {
		zap.L().Error("coupon list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	views := make([]CouponView, 0, len(coupons))
	for i := range coupons {
		views = append(views, newCouponView(&coupons[i]))
	}
	writeData(w, http.StatusOK, views)
}

// ListRedemptions handles GET /api/admin/coupons/{id}/redemptions.
func (h *CouponHandler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	couponID := chi.URLParam(r, "id")

	redemptions, err := h.redemptions.ListByCoupon(r.Context(), couponID)
	if err != nil {
		zap.L().Error("redemption list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	views := make([]RedemptionView, 0, len(redemptions))
	for _, red := range redemptions {
		views = append(views, RedemptionView{
			ID:             red.ID,
			CustomerEmail:  red.CustomerEmail,
			CustomerPhone:  red.CustomerPhone,
			DiscountAmount: red.DiscountAmount,
			OrderTotal:     red.OrderTotal,
			RedeemedAt:     red.RedeemedAt,
		})
	}
	writeData(w, http.StatusOK, views)
}

// SyncOne handles POST /api/admin/coupons/{id}/sync.
func (h *CouponHandler) SyncOne(w http.ResponseWriter, r *http.Request) {
	couponID := chi.URLParam(r, "id")

	outcome, err := h.service.SyncCouponUsage(r.Context(), couponID)
	if err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			writeError(w, http.StatusNotFound, "Coupon not found")
			return
		}
		zap.L().Error("coupon sync failed", zap.String("coupon_id", couponID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Sync failed. Please try again.")
		return
	}

	data := map[string]interface{}{"status": outcome.Status}
	if outcome.Status == service.SyncStatusSkipped {
		data["reason"] = outcome.Reason
	} else {
		data["usageCount"] = outcome.UsageCount
	}
	writeData(w, http.StatusOK, data)
}

// SyncAll handles POST /api/admin/coupons/sync.
func (h *CouponHandler) SyncAll(w http.ResponseWriter, r *http.Request) {
	synced, err := h.service.SyncAllCoupons(r.Context())
	if err != nil {
		zap.L().Error("bulk coupon sync failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Sync failed. Please try again.")
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"syncedCount": synced})
}
