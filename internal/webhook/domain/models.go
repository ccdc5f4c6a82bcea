// Package domain defines the outbound webhook audit trail (spec.md §3, §4.8).
package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Status is the delivery lifecycle of an OutboundWebhook.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// OutboundWebhook audits a single at-least-once delivery attempt sequence
// to the ledger service.
type OutboundWebhook struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	EventType     string         `gorm:"type:text;not null"`
	Payload       datatypes.JSON `gorm:"type:jsonb;not null"`
	TargetURL     string         `gorm:"type:text;not null"`
	Status        Status         `gorm:"type:text;not null;default:pending"`
	Attempts      int            `gorm:"not null;default:0"`
	LastAttemptAt *time.Time
	CreatedAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	PlanID        *uuid.UUID `gorm:"type:uuid;index:idx_webhook_plan"`
}

func (OutboundWebhook) TableName() string { return "outbound_webhook" }

// Payload is the JSON body posted to the ledger service (spec.md §4.8).
type Payload struct {
	Event              string    `json:"event"`
	PlanID             uuid.UUID `json:"plan_id"`
	DecisionID         uuid.UUID `json:"decision_id"`
	UserID             string    `json:"user_id"`
	AmountGrantedCents int64     `json:"amount_granted_cents"`
	RequestID          string    `json:"request_id"`
}

const EventBNPLApproved = "BNPL_APPROVED"
