package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/emberleaf/backoffice/internal/service"
)

type ContactHandler struct {
	service *service.ContactService
}

func NewContactHandler(svc *service.ContactService) *ContactHandler {
	return &ContactHandler{service: svc}
}

type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Submit handles POST /api/contact.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Please fill in your name, a valid email, a subject and a message")
		return
	}

	ipHash := HashIP(ResolveClientIP(r))

	result, err := h.service.Submit(r.Context(), ipHash, service.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		// Deliberately no request fields here; submissions may contain
		// personal data.
		zap.L().Error("contact submission failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	if !result.Accepted {
		writeError(w, http.StatusTooManyRequests, result.Message)
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"message": result.Message})
}
