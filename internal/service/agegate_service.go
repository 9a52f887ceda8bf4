package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emberleaf/backoffice/internal/models"
	"github.com/emberleaf/backoffice/internal/ratelimit"
)

// AgeSessionTTL is the fixed validity window of an age-verification
// session. Compliance requires re-attestation after it elapses.
const AgeSessionTTL = 24 * time.Hour

type VerificationStore interface {
	Insert(ctx context.Context, v *models.AgeVerification) error
}

type RateLimiter interface {
	Check(identifier string, cfg ratelimit.Config) ratelimit.Result
}

type AgeGateService struct {
	verifications VerificationStore
	limiter       RateLimiter
	production    bool
	nowFunc       func() time.Time
}

func NewAgeGateService(verifications VerificationStore, limiter RateLimiter, production bool) *AgeGateService {
	return &AgeGateService{
		verifications: verifications,
		limiter:       limiter,
		production:    production,
		nowFunc:       time.Now,
	}
}

type AgeVerifyResult struct {
	Allowed   bool
	Message   string
	SessionID string
	ExpiresAt time.Time
}

// Verify handles an accepted age attestation: rate-limits by hashed client
// IP, mints a session id, and appends the audit row. The audit write is the
// legal justification for skipping the gate, so in production its failure
// aborts the whole operation; elsewhere it degrades to a warning.
//
// Denied attestations never reach this method (the handler redirects
// without consuming rate-limit budget; see DESIGN.md for the open
// question around that).
func (s *AgeGateService) Verify(ctx context.Context, ipHash, userAgent string) (AgeVerifyResult, error) {
	now := s.nowFunc()

	rl := s.limiter.Check(ipHash, ratelimit.AgeVerification)
	if !rl.Success {
		wait := ratelimit.RetryAfterMessage(rl.Reset.Sub(now))
		return AgeVerifyResult{
			Allowed: false,
			Message: fmt.Sprintf("Too many verification attempts. Please try again in %s.", wait),
		}, nil
	}

	sessionID := uuid.NewString()
	expiresAt := now.Add(AgeSessionTTL)

	record := &models.AgeVerification{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		IPHash:     ipHash,
		UserAgent:  userAgent,
		VerifiedAt: now,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
	}
	if err := s.verifications.Insert(ctx, record); err != nil {
		if s.production {
			return AgeVerifyResult{}, fmt.Errorf("persist age verification: %w", err)
		}
		zap.L().Warn("age verification audit write failed, continuing outside production",
			zap.Error(err))
	}

	return AgeVerifyResult{
		Allowed:   true,
		Message:   "Age verified",
		SessionID: sessionID,
		ExpiresAt: expiresAt,
	}, nil
}
