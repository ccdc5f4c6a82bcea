// Package repository persists OutboundWebhook rows, following the
// teacher's per-aggregate raw-update repository style (see
// internal/usage/repository/repository_impl.go).
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	webhookdomain "github.com/geraldco/bnpl-decision-gateway/internal/webhook/domain"
)

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a pending OutboundWebhook row before the first dispatch
// attempt, per spec.md §4.8 step 1.
func (r *Repository) Create(ctx context.Context, w *webhookdomain.OutboundWebhook) error {
	return r.db.WithContext(ctx).Create(w).Error
}

// GetByID re-reads the persisted row so the dispatcher can pick up an
// operator-redirected target_url before each attempt (spec.md §4.8).
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*webhookdomain.OutboundWebhook, error) {
	var w webhookdomain.OutboundWebhook
	if err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

// RecordAttempt commits the outcome of a single delivery attempt, so
// intermediate state is visible to observers during retries (spec.md §4.8
// step 3).
func (r *Repository) RecordAttempt(ctx context.Context, id uuid.UUID, attempts int, status webhookdomain.Status, attemptedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&webhookdomain.OutboundWebhook{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":        attempts,
			"status":          status,
			"last_attempt_at": attemptedAt,
		}).Error
}
