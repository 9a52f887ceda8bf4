package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emberleaf/backoffice/internal/mail"
	"github.com/emberleaf/backoffice/internal/models"
	"github.com/emberleaf/backoffice/internal/ratelimit"
)

type ContactStore interface {
	Insert(ctx context.Context, s *models.ContactSubmission) error
}

type ContactService struct {
	contacts ContactStore
	limiter  RateLimiter
	sender   mail.Sender // nil when mail is not configured
	nowFunc  func() time.Time
}

func NewContactService(contacts ContactStore, limiter RateLimiter, sender mail.Sender) *ContactService {
	return &ContactService{
		contacts: contacts,
		limiter:  limiter,
		sender:   sender,
		nowFunc:  time.Now,
	}
}

type ContactInput struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

type ContactResult struct {
	Accepted bool
	Message  string
}

// Submit stores a contact-form submission and dispatches notification and
// confirmation mail in the background. Mail is fire-and-forget: failures
// are logged, never shown to the visitor. Message bodies are kept out of
// the logs.
func (s *ContactService) Submit(ctx context.Context, ipHash string, in ContactInput) (ContactResult, error) {
	now := s.nowFunc()

	rl := s.limiter.Check(ipHash, ratelimit.ContactForm)
	if !rl.Success {
		wait := ratelimit.RetryAfterMessage(rl.Reset.Sub(now))
		return ContactResult{
			Accepted: false,
			Message:  fmt.Sprintf("Too many messages. Please try again in %s.", wait),
		}, nil
	}

	sub := &models.ContactSubmission{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		Subject:   in.Subject,
		Message:   in.Message,
		CreatedAt: now,
	}
	if in.Phone != "" {
		sub.Phone = &in.Phone
	}

	if err := s.contacts.Insert(ctx, sub); err != nil {
		return ContactResult{}, fmt.Errorf("store contact submission: %w", err)
	}

	if s.sender != nil {
		go func(sub models.ContactSubmission) {
			if err := s.sender.SendContactNotification(&sub); err != nil {
				zap.L().Warn("contact notification mail failed", zap.Error(err))
			}
			if err := s.sender.SendContactConfirmation(&sub); err != nil {
				zap.L().Warn("contact confirmation mail failed", zap.Error(err))
			}
		}(*sub)
	}

	return ContactResult{Accepted: true, Message: "Thanks! We'll be in touch soon."}, nil
}
