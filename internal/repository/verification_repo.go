package repository

import (
	"context"
	"database/sql"

	"github.com/emberleaf/backoffice/internal/models"
)

// VerificationRepo persists the append-only age-verification audit trail.
type VerificationRepo struct {
	db *sql.DB
}

func NewVerificationRepo(db *sql.DB) *VerificationRepo {
	return &VerificationRepo{db: db}
}

func (r *VerificationRepo) Insert(ctx context.Context, v *models.AgeVerification) error {
	query := `
		INSERT INTO age_verifications
		(id, session_id, ip_hash, user_agent, verified_at, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	_, err := r.db.ExecContext(ctx, query,
		v.ID,
		v.SessionID,
		v.IPHash,
		v.UserAgent,
		v.VerifiedAt,
		v.ExpiresAt,
		v.CreatedAt,
	)
	return err
}

// Each streams every audit row, oldest first, to fn one at a time. The
// trail is append-only and unbounded, so the export path never loads it
// whole. fn returning an error stops the scan.
func (r *VerificationRepo) Each(ctx context.Context, fn func(*models.AgeVerification) error) error {
	query := `
		SELECT id, session_id, ip_hash, user_agent, verified_at, expires_at, created_at
		FROM age_verifications
		ORDER BY verified_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var v models.AgeVerification
		if err := rows.Scan(
			&v.ID,
			&v.SessionID,
			&v.IPHash,
			&v.UserAgent,
			&v.VerifiedAt,
			&v.ExpiresAt,
			&v.CreatedAt,
		); err != nil {
			return err
		}
		if err := fn(&v); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListAll returns every audit row, oldest first.
func (r *VerificationRepo) ListAll(ctx context.Context) ([]models.AgeVerification, error) {
	var verifications []models.AgeVerification
	err := r.Each(ctx, func(v *models.AgeVerification) error {
		verifications = append(verifications, *v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verifications, nil
}
