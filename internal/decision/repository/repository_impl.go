// Package repository persists the Decision/Plan/Installment aggregates,
// following the teacher's concrete per-aggregate repository pattern (see
// internal/usage/repository/repository_impl.go) rather than the generic
// store[T] helper, since idempotency requires hand-written unique-violation
// handling.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bnpldb "github.com/geraldco/bnpl-decision-gateway/internal/db"
	decisiondomain "github.com/geraldco/bnpl-decision-gateway/internal/decision/domain"
)

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByRequestID looks up an existing Decision by (user_id, request_id),
// the idempotency key per spec.md §3. Returns (nil, nil) when absent.
func (r *Repository) FindByRequestID(ctx context.Context, userID, requestID string) (*decisiondomain.Decision, error) {
	if requestID == "" {
		return nil, nil
	}
	var d decisiondomain.Decision
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND request_id = ?", userID, requestID).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// CreateDecision inserts d. On a unique-violation on request_id (another
// concurrent worker won the race), it re-reads and returns the winning row
// per spec.md §5 option (b) — the fallback to the DB unique index (option a).
func (r *Repository) CreateDecision(ctx context.Context, d *decisiondomain.Decision) (won bool, err error) {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		if bnpldb.IsDuplicateKeyErr(err) {
			existing, lookupErr := r.FindByRequestID(ctx, d.UserID, d.RequestID)
			if lookupErr != nil {
				return false, lookupErr
			}
			if existing != nil {
				*d = *existing
				return false, nil
			}
		}
		return false, err
	}
	return true, nil
}

// CreatePlanWithInstallments persists a Plan and its Installments in a
// single transaction, per spec.md §4.7 step 6.
func (r *Repository) CreatePlanWithInstallments(ctx context.Context, plan *decisiondomain.Plan, installments []decisiondomain.Installment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(plan).Error; err != nil {
			return err
		}
		if len(installments) == 0 {
			return nil
		}
		return tx.Create(&installments).Error
	})
}

// History returns the most-recent limit decisions for userID, newest first.
func (r *Repository) History(ctx context.Context, userID string, limit int) ([]decisiondomain.Decision, error) {
	if limit <= 0 {
		limit = 10
	}
	var decisions []decisiondomain.Decision
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&decisions).Error
	return decisions, err
}

// PlanByID returns a Plan and its Installments, or nil if not found.
func (r *Repository) PlanByID(ctx context.Context, planID uuid.UUID) (*decisiondomain.PlanWithInstallments, error) {
	var plan decisiondomain.Plan
	err := r.db.WithContext(ctx).First(&plan, "id = ?", planID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var installments []decisiondomain.Installment
	if err := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("due_date ASC").
		Find(&installments).Error; err != nil {
		return nil, err
	}

	return &decisiondomain.PlanWithInstallments{Plan: plan, Installments: installments}, nil
}

// PlanByDecisionID returns the Plan (with installments) owned by decisionID,
// or nil if the decision was not approved / has no plan.
func (r *Repository) PlanByDecisionID(ctx context.Context, decisionID uuid.UUID) (*decisiondomain.PlanWithInstallments, error) {
	var plan decisiondomain.Plan
	err := r.db.WithContext(ctx).First(&plan, "decision_id = ?", decisionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.PlanByID(ctx, plan.ID)
}
