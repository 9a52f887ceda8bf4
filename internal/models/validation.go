package models

// ValidationRequest carries the inputs for coupon validation and redemption.
// CustomerEmail/CustomerPhone are optional; the per-customer usage cap is
// only enforceable when an email is present.
type ValidationRequest struct {
	Code          string
	OrderTotal    float64
	CustomerEmail string
	CustomerPhone string
}

// ValidationResponse is a business outcome, not a transport error: an
// invalid coupon still returns IsValid=false with a user-facing message.
type ValidationResponse struct {
	IsValid        bool    `json:"isValid"`
	DiscountAmount float64 `json:"discountAmount"`
	FinalTotal     float64 `json:"finalTotal"`
	Message        string  `json:"message"`
	Coupon         *Coupon `json:"-"`
}

type RedemptionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
