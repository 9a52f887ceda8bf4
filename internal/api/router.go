package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emberleaf/backoffice/internal/api/handlers"
	"github.com/emberleaf/backoffice/internal/api/middleware"
	"github.com/emberleaf/backoffice/internal/config"
	"github.com/emberleaf/backoffice/internal/mail"
	"github.com/emberleaf/backoffice/internal/ratelimit"
	"github.com/emberleaf/backoffice/internal/repository"
	"github.com/emberleaf/backoffice/internal/service"
	"github.com/emberleaf/backoffice/internal/square"
)

// NewRouter builds the HTTP router with repositories and services wired to
// the shared connection. squareClient and sender may be nil (feature off);
// the limiter is owned by the caller, which also runs its pruning.
func NewRouter(db *sql.DB, cfg config.Config, limiter *ratelimit.Limiter, squareClient square.Client, sender mail.Sender) http.Handler {
	coupons := repository.NewCouponRepo(db)
	redemptions := repository.NewRedemptionRepo(db)
	verifications := repository.NewVerificationRepo(db)
	contacts := repository.NewContactRepo(db)

	couponSvc := service.NewCouponService(db, coupons, redemptions, squareClient)
	ageGateSvc := service.NewAgeGateService(verifications, limiter, cfg.IsProduction())
	contactSvc := service.NewContactService(contacts, limiter, sender)

	couponHandler := handlers.NewCouponHandler(couponSvc, coupons, redemptions)
	ageGateHandler := handlers.NewAgeGateHandler(ageGateSvc, cfg.AgeGateExitURL, cfg.IsProduction())
	complianceHandler := handlers.NewComplianceHandler(verifications)
	contactHandler := handlers.NewContactHandler(contactSvc)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.AgeGate)

	clientKey := func(req *http.Request) string {
		return handlers.HashIP(handlers.ResolveClientIP(req))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter, ratelimit.GeneralAPI, clientKey))
		r.Post("/verify-age", ageGateHandler.Verify)
		r.Post("/contact", contactHandler.Submit)

		r.Route("/coupons", func(r chi.Router) {
			r.Post("/validate", couponHandler.Validate)
			r.Post("/redeem", couponHandler.Redeem)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(cfg.AdminToken))
			r.Post("/coupons", couponHandler.Create)
			r.Get("/coupons", couponHandler.List)
			r.Post("/coupons/sync", couponHandler.SyncAll)
			r.Post("/coupons/{id}/sync", couponHandler.SyncOne)
			r.Get("/coupons/{id}/redemptions", couponHandler.ListRedemptions)
			r.Get("/compliance/export", complianceHandler.Export)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
