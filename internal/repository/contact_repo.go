package repository

import (
	"context"
	"database/sql"

	"github.com/emberleaf/backoffice/internal/models"
)

type ContactRepo struct {
	db *sql.DB
}

func NewContactRepo(db *sql.DB) *ContactRepo {
	return &ContactRepo{db: db}
}

func (r *ContactRepo) Insert(ctx context.Context, s *models.ContactSubmission) error {
	query := `
		INSERT INTO contact_submissions
		(id, name, email, phone, subject, message, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.Name,
		s.Email,
		s.Phone,
		s.Subject,
		s.Message,
		s.CreatedAt,
	)
	return err
}
