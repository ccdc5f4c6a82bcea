// Package domain defines the persisted decision/plan/installment aggregates
// (spec.md §3), following the teacher's per-aggregate domain package layout
// (see internal/usage/domain/models.go) but keyed by UUID rather than
// snowflake.ID, per spec.md's explicit entity typing.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// InstallmentStatus is the lifecycle state of a single installment. Per
// spec.md's Non-goals, no repayment state machine beyond the initial
// "pending" status is modeled.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

// ScoreBand is the credit_limit_bucket label persisted alongside the
// numeric score for dashboarding (spec.md §6.5, §9 Open Questions).
type ScoreBand string

// Decision is an immutable record of one accepted decision request.
type Decision struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID               string    `gorm:"type:text;not null;index:idx_decision_user"`
	RequestID            string    `gorm:"type:text;uniqueIndex:idx_decision_request_id"`
	AmountRequestedCents int64     `gorm:"not null"`
	Approved             bool      `gorm:"not null"`
	CreditLimitCents     int64     `gorm:"not null"`
	AmountGrantedCents   int64     `gorm:"not null"`
	ScoreNumeric         float64   `gorm:"not null"`
	ScoreBand            ScoreBand `gorm:"type:text;not null"`
	RiskFactors          datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Decision) TableName() string { return "bnpl_decision" }

// Plan is the four-installment repayment schedule for an approved Decision.
type Plan struct {
	ID                      uuid.UUID `gorm:"type:uuid;primaryKey"`
	DecisionID              uuid.UUID `gorm:"type:uuid;not null;index:idx_plan_decision"`
	UserID                  string    `gorm:"type:text;not null"`
	TotalCents              int64     `gorm:"not null"`
	InstallmentsCount       int       `gorm:"not null;default:4"`
	DaysBetweenInstallments int       `gorm:"not null;default:14"`
	CreatedAt               time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Plan) TableName() string { return "bnpl_plan" }

// Installment is one scheduled repayment within a Plan.
type Installment struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	PlanID      uuid.UUID         `gorm:"type:uuid;not null;index:idx_installment_plan"`
	DueDate     time.Time         `gorm:"not null"`
	AmountCents int64             `gorm:"not null"`
	Status      InstallmentStatus `gorm:"type:text;not null;default:pending"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Installment) TableName() string { return "bnpl_installment" }

// PlanWithInstallments bundles a Plan with its Installments for API
// responses and orchestrator return values.
type PlanWithInstallments struct {
	Plan         Plan
	Installments []Installment
}

// DecideRequest is the orchestrator's public input (spec.md §4.7).
type DecideRequest struct {
	UserID               string
	AmountRequestedCents int64
	RequestID            string
}

// Sentinel errors surfaced by the orchestrator, matching the error kinds
// enumerated in spec.md §7.
var (
	ErrBankUnavailable  = errors.New("bank_unavailable")
	ErrPersistenceError = errors.New("persistence_error")
	ErrPlanNotFound     = errors.New("plan_not_found")
)

// Service is the Decision Orchestrator's public capability (spec.md §4.7).
type Service interface {
	Decide(ctx context.Context, req DecideRequest) (Decision, *PlanWithInstallments, error)
	History(ctx context.Context, userID string, limit int) ([]Decision, error)
	GetPlan(ctx context.Context, planID uuid.UUID) (*PlanWithInstallments, error)
}
