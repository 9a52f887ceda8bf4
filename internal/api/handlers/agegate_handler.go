package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/emberleaf/backoffice/internal/api/middleware"
	"github.com/emberleaf/backoffice/internal/service"
)

type AgeGateHandler struct {
	service    *service.AgeGateService
	exitURL    string
	production bool
}

func NewAgeGateHandler(svc *service.AgeGateService, exitURL string, production bool) *AgeGateHandler {
	return &AgeGateHandler{
		service:    svc,
		exitURL:    exitURL,
		production: production,
	}
}

type VerifyAgeRequest struct {
	Accepted bool `json:"accepted"`
}

// Verify handles POST /api/verify-age. A denial redirects straight off the
// site with no session and no rate-limit consumption. An acceptance mints
// a 24h session cookie and appends the compliance audit row.
func (h *AgeGateHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyAgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !req.Accepted {
		http.Redirect(w, r, h.exitURL, http.StatusSeeOther)
		return
	}

	ipHash := HashIP(ResolveClientIP(r))
	userAgent := r.UserAgent()
	if userAgent == "" {
		userAgent = "unknown"
	}

	result, err := h.service.Verify(r.Context(), ipHash, userAgent)
	if err != nil {
		zap.L().Error("age verification failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Verification failed. Please try again.")
		return
	}
	if !result.Allowed {
		writeError(w, http.StatusTooManyRequests, result.Message)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AgeSessionCookie,
		Value:    result.SessionID,
		Path:     "/",
		MaxAge:   int(service.AgeSessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.production,
		SameSite: http.SameSiteStrictMode,
	})

	writeData(w, http.StatusOK, map[string]interface{}{
		"verified":  true,
		"expiresAt": result.ExpiresAt,
	})
}
