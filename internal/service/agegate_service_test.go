package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberleaf/backoffice/internal/models"
	"github.com/emberleaf/backoffice/internal/ratelimit"
	"github.com/emberleaf/backoffice/internal/repository"
)

type failingVerificationStore struct{}

func (failingVerificationStore) Insert(ctx context.Context, v *models.AgeVerification) error {
	return errors.New("database unreachable")
}

func TestAgeGate_VerifyCreatesSessionAndAuditRow(t *testing.T) {
	conn := setupTestDB(t)
	repo := repository.NewVerificationRepo(conn)
	limiter := ratelimit.New(ratelimit.NewMemoryStore())
	svc := NewAgeGateService(repo, limiter, false)

	before := time.Now().UTC()
	result, err := svc.Verify(context.Background(), "hashed-ip", "Mozilla/5.0")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.NotEmpty(t, result.SessionID)
	assert.WithinDuration(t, before.Add(AgeSessionTTL), result.ExpiresAt, 5*time.Second)

	rows, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, result.SessionID, rows[0].SessionID)
	assert.Equal(t, "hashed-ip", rows[0].IPHash)
	assert.Equal(t, "Mozilla/5.0", rows[0].UserAgent)
	assert.WithinDuration(t, rows[0].VerifiedAt.Add(AgeSessionTTL), rows[0].ExpiresAt, time.Second)
}

func TestAgeGate_RepeatVisitsAppendRows(t *testing.T) {
	conn := setupTestDB(t)
	repo := repository.NewVerificationRepo(conn)
	svc := NewAgeGateService(repo, ratelimit.New(ratelimit.NewMemoryStore()), false)

	ctx := context.Background()
	first, err := svc.Verify(ctx, "hashed-ip", "ua")
	require.NoError(t, err)
	second, err := svc.Verify(ctx, "hashed-ip", "ua")
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	rows, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "the audit trail is append-only, one row per acceptance")
}

func TestAgeGate_EleventhAttemptWithinHourIsLimited(t *testing.T) {
	conn := setupTestDB(t)
	repo := repository.NewVerificationRepo(conn)
	svc := NewAgeGateService(repo, ratelimit.New(ratelimit.NewMemoryStore()), false)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		result, err := svc.Verify(ctx, "same-ip", "ua")
		require.NoError(t, err)
		require.True(t, result.Allowed, "attempt %d should pass", i+1)
	}

	result, err := svc.Verify(ctx, "same-ip", "ua")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Message, "Too many verification attempts")
	assert.Contains(t, result.Message, "Please try again in")
	assert.Empty(t, result.SessionID, "a limited attempt consumes no session")

	// a different client is unaffected
	other, err := svc.Verify(ctx, "other-ip", "ua")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestAgeGate_AuditWriteFailure(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore())

	t.Run("warns and continues outside production", func(t *testing.T) {
		svc := NewAgeGateService(failingVerificationStore{}, limiter, false)
		result, err := svc.Verify(context.Background(), "ip", "ua")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.NotEmpty(t, result.SessionID)
	})

	t.Run("aborts in production", func(t *testing.T) {
		svc := NewAgeGateService(failingVerificationStore{}, limiter, true)
		_, err := svc.Verify(context.Background(), "ip-prod", "ua")
		require.Error(t, err, "the audit row is the compliance justification for the gate")
	})
}
