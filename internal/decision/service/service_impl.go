// Package service implements the Decision Orchestrator (spec.md §4.7): the
// single operation that fetches transactions, runs the scoring pipeline, and
// persists + notifies on the outcome.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/geraldco/bnpl-decision-gateway/internal/clock"
	appconfig "github.com/geraldco/bnpl-decision-gateway/internal/config"
	"github.com/geraldco/bnpl-decision-gateway/internal/cooldown"
	decisiondomain "github.com/geraldco/bnpl-decision-gateway/internal/decision/domain"
	"github.com/geraldco/bnpl-decision-gateway/internal/feature"
	"github.com/geraldco/bnpl-decision-gateway/internal/idempotency"
	"github.com/geraldco/bnpl-decision-gateway/internal/observability/metrics"
	"github.com/geraldco/bnpl-decision-gateway/internal/payback"
	"github.com/geraldco/bnpl-decision-gateway/internal/plan"
	"github.com/geraldco/bnpl-decision-gateway/internal/risk"
	txdomain "github.com/geraldco/bnpl-decision-gateway/internal/transaction/domain"
	txsource "github.com/geraldco/bnpl-decision-gateway/internal/transaction/source"
	"github.com/geraldco/bnpl-decision-gateway/internal/utilization"
	"github.com/geraldco/bnpl-decision-gateway/internal/webhook/dispatcher"
	webhookdomain "github.com/geraldco/bnpl-decision-gateway/internal/webhook/domain"
)

// lockTTL bounds how long the idempotency lock is held while a request is
// in flight; comfortably longer than the bank fetch + DB round-trip budget.
const lockTTL = 10 * time.Second

// Repository is the persistence capability the orchestrator depends on.
type Repository interface {
	FindByRequestID(ctx context.Context, userID, requestID string) (*decisiondomain.Decision, error)
	CreateDecision(ctx context.Context, d *decisiondomain.Decision) (won bool, err error)
	CreatePlanWithInstallments(ctx context.Context, plan *decisiondomain.Plan, installments []decisiondomain.Installment) error
	History(ctx context.Context, userID string, limit int) ([]decisiondomain.Decision, error)
	PlanByID(ctx context.Context, planID uuid.UUID) (*decisiondomain.PlanWithInstallments, error)
	PlanByDecisionID(ctx context.Context, decisionID uuid.UUID) (*decisiondomain.PlanWithInstallments, error)
}

// Service implements decisiondomain.Service.
type Service struct {
	source        txsource.Source
	riskCfg       risk.Config
	utilCfg       utilization.Config
	cooldownHours int
	repo          Repository
	locker        *idempotency.Locker
	dispatcher    *dispatcher.Dispatcher
	webhookURL    string
	metrics       *metrics.Metrics
	clock         clock.Clock
	log           *zap.Logger
}

// New builds a decision Service.
func New(
	source txsource.Source,
	riskCfg risk.Config,
	utilCfg utilization.Config,
	cfg appconfig.Config,
	repo Repository,
	locker *idempotency.Locker,
	disp *dispatcher.Dispatcher,
	m *metrics.Metrics,
	clk clock.Clock,
	log *zap.Logger,
) *Service {
	return &Service{
		source:        source,
		riskCfg:       riskCfg,
		utilCfg:       utilCfg,
		cooldownHours: cfg.Cooldown.Hours,
		repo:          repo,
		locker:        locker,
		dispatcher:    disp,
		webhookURL:    cfg.LedgerWebhookURL,
		metrics:       m,
		clock:         clk,
		log:           log.Named("decision.service"),
	}
}

// Decide implements the 8-step protocol of spec.md §4.7.
func (s *Service) Decide(ctx context.Context, req decisiondomain.DecideRequest) (decisiondomain.Decision, *decisiondomain.PlanWithInstallments, error) {
	// Step 1: idempotency lookup, no side effects or metrics on replay.
	if existing, err := s.repo.FindByRequestID(ctx, req.UserID, req.RequestID); err != nil {
		return decisiondomain.Decision{}, nil, fmt.Errorf("%w: %v", decisiondomain.ErrPersistenceError, err)
	} else if existing != nil {
		existingPlan, err := s.planForDecision(ctx, *existing)
		if err != nil {
			return decisiondomain.Decision{}, nil, err
		}
		return *existing, existingPlan, nil
	}

	token, acquired, lockErr := s.locker.TryLock(ctx, req.UserID, req.RequestID, lockTTL)
	if lockErr != nil {
		s.log.Warn("idempotency lock error, proceeding on DB unique index alone", zap.Error(lockErr))
	}
	if acquired {
		defer func() {
			if relErr := s.locker.Release(context.WithoutCancel(ctx), req.UserID, req.RequestID, token); relErr != nil {
				s.log.Warn("idempotency lock release failed", zap.Error(relErr))
			}
		}()
	} else {
		// Another worker already owns this request_id; its insert should
		// land shortly, so re-check the DB rather than racing it.
		if existing, err := s.repo.FindByRequestID(ctx, req.UserID, req.RequestID); err == nil && existing != nil {
			existingPlan, err := s.planForDecision(ctx, *existing)
			if err != nil {
				return decisiondomain.Decision{}, nil, err
			}
			return *existing, existingPlan, nil
		}
	}

	// Step 2: fetch transactions.
	txs, err := s.source.Fetch(ctx, req.UserID)
	if err != nil {
		s.metrics.IncBankFetchFailure()
		return decisiondomain.Decision{}, nil, fmt.Errorf("%w: %v", decisiondomain.ErrBankUnavailable, err)
	}

	now := s.clock.Now()
	decision, installmentPlan := s.scoreAndBuild(req, txs, now)

	// Step 5: emit metrics exactly once.
	s.metrics.IncDecision(outcomeLabel(decision))
	if len(txs) == 0 {
		s.metrics.IncCreditLimitBucket(risk.BucketEmpty)
	} else {
		s.metrics.IncCreditLimitBucket(string(decision.ScoreBand))
	}

	// Step 6: persist Decision first, then Plan + Installments. A lost
	// unique-index race (won=false, e.g. two concurrent callers with the
	// same request_id and no Redis locker acquired) means someone else's
	// decision already exists: adopt it instead of minting a second Plan
	// or firing a second webhook for the same request_id.
	won, err := s.repo.CreateDecision(ctx, &decision)
	if err != nil {
		return decisiondomain.Decision{}, nil, fmt.Errorf("%w: %v", decisiondomain.ErrPersistenceError, err)
	}
	if !won {
		existingPlan, err := s.planForDecision(ctx, decision)
		if err != nil {
			return decisiondomain.Decision{}, nil, err
		}
		return decision, existingPlan, nil
	}

	var result *decisiondomain.PlanWithInstallments
	if decision.Approved && installmentPlan != nil {
		installmentPlan.Plan.DecisionID = decision.ID
		if err := s.repo.CreatePlanWithInstallments(ctx, &installmentPlan.Plan, installmentPlan.Installments); err != nil {
			return decisiondomain.Decision{}, nil, fmt.Errorf("%w: %v", decisiondomain.ErrPersistenceError, err)
		}
		result = installmentPlan
	}

	// Step 7: dispatch webhook, detached from the inbound request's
	// cancellation so it can run to completion after we respond
	// (spec.md §5 cancellation rules).
	if decision.Approved && s.webhookURL != "" && result != nil {
		go s.dispatchWebhook(context.WithoutCancel(ctx), decision, result.Plan)
	}

	// Step 8.
	return decision, result, nil
}

// History returns the user's most-recent decisions.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]decisiondomain.Decision, error) {
	decisions, err := s.repo.History(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", decisiondomain.ErrPersistenceError, err)
	}
	return decisions, nil
}

// GetPlan returns a plan with its installments, or ErrPlanNotFound.
func (s *Service) GetPlan(ctx context.Context, planID uuid.UUID) (*decisiondomain.PlanWithInstallments, error) {
	p, err := s.repo.PlanByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", decisiondomain.ErrPersistenceError, err)
	}
	if p == nil {
		return nil, decisiondomain.ErrPlanNotFound
	}
	return p, nil
}

func (s *Service) planForDecision(ctx context.Context, d decisiondomain.Decision) (*decisiondomain.PlanWithInstallments, error) {
	if !d.Approved {
		return nil, nil
	}
	p, err := s.repo.PlanByDecisionID(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", decisiondomain.ErrPersistenceError, err)
	}
	return p, nil
}

// scoreAndBuild runs the scoring pipeline (feature extraction → utilization
// → payback → cooldown → risk) and constructs the Decision and, when
// approved, its Plan + Installments. It performs no I/O.
func (s *Service) scoreAndBuild(req decisiondomain.DecideRequest, txs []txdomain.Transaction, now time.Time) (decisiondomain.Decision, *decisiondomain.PlanWithInstallments) {
	decisionID := uuid.New()

	if len(txs) == 0 {
		return decisiondomain.Decision{
			ID:                   decisionID,
			UserID:               req.UserID,
			RequestID:            req.RequestID,
			AmountRequestedCents: req.AmountRequestedCents,
			Approved:             false,
			CreditLimitCents:     0,
			AmountGrantedCents:   0,
			ScoreNumeric:         0,
			ScoreBand:            decisiondomain.ScoreBand(risk.BucketEmpty),
			RiskFactors:          marshalFactors(risk.Factors{Reasons: []risk.Reason{{Code: risk.ReasonEmptyTransactions}}}),
			CreatedAt:            now,
		}, nil
	}

	features, err := feature.Extract(txs)
	if err != nil {
		// feature.Extract only fails on an empty slice, already handled above.
		features = feature.Features{}
	}

	paycheck := utilization.InferPaycheck(features)
	cooldownResult := cooldown.Check(now, nil, txs, s.cooldownHours)
	utilResult := utilization.Analyze(s.utilCfg, txs, paycheck)

	var avgPaycheck *int64
	if paycheck.Confidence >= 0.3 {
		p := paycheck.AvgPaycheckCents
		avgPaycheck = &p
	}
	paybackResult := payback.Project(payback.Inputs{
		AvgDailyBalanceCents: features.AvgDailyBalanceCents,
		BurnDays:             utilResult.BurnDays,
		AvgDailySpendCents:   float64(derefInt64(utilResult.AvgDailySpendCents)),
		AvgPaycheckCents:     avgPaycheck,
	})

	outcome := risk.Evaluate(s.riskCfg, risk.Inputs{
		Features: features,
		Util:     utilResult,
		Payback:  paybackResult,
		Cooldown: cooldownResult,
	})

	approved := outcome.Tier != risk.TierDeny && outcome.LimitCents > 0
	amountGranted := int64(0)
	if approved {
		amountGranted = req.AmountRequestedCents
		if amountGranted > outcome.LimitCents {
			amountGranted = outcome.LimitCents
		}
	}

	decision := decisiondomain.Decision{
		ID:                   decisionID,
		UserID:               req.UserID,
		RequestID:            req.RequestID,
		AmountRequestedCents: req.AmountRequestedCents,
		Approved:             approved,
		CreditLimitCents:     outcome.LimitCents,
		AmountGrantedCents:   amountGranted,
		ScoreNumeric:         outcome.FinalScore,
		ScoreBand:            decisiondomain.ScoreBand(risk.Bucket(outcome.Tier)),
		RiskFactors:          marshalFactors(outcome.Factors),
		CreatedAt:            now,
	}

	if !approved {
		return decision, nil
	}

	installments := plan.Build(amountGranted, plan.DefaultInstallmentsCount, plan.DefaultDaysBetweenInstallments, now)
	planID := uuid.New()
	domainInstallments := make([]decisiondomain.Installment, 0, len(installments))
	for _, inst := range installments {
		domainInstallments = append(domainInstallments, decisiondomain.Installment{
			ID:          uuid.New(),
			PlanID:      planID,
			DueDate:     inst.DueDate,
			AmountCents: inst.AmountCents,
			Status:      decisiondomain.InstallmentPending,
			CreatedAt:   now,
		})
	}

	return decision, &decisiondomain.PlanWithInstallments{
		Plan: decisiondomain.Plan{
			ID:                      planID,
			DecisionID:              decisionID,
			UserID:                  req.UserID,
			TotalCents:              amountGranted,
			InstallmentsCount:       plan.DefaultInstallmentsCount,
			DaysBetweenInstallments: plan.DefaultDaysBetweenInstallments,
			CreatedAt:               now,
		},
		Installments: domainInstallments,
	}
}

// dispatchWebhook notifies the ledger of an approval. Failures are logged,
// never surfaced to the API caller (spec.md §4.7 step 7, §7 WebhookFailed).
func (s *Service) dispatchWebhook(ctx context.Context, d decisiondomain.Decision, p decisiondomain.Plan) {
	if s.dispatcher == nil {
		return
	}
	ok, attempts, err := s.dispatcher.Dispatch(ctx, webhookdomain.Payload{
		Event:              webhookdomain.EventBNPLApproved,
		PlanID:             p.ID,
		DecisionID:         d.ID,
		UserID:             d.UserID,
		AmountGrantedCents: d.AmountGrantedCents,
		RequestID:          d.RequestID,
	}, s.webhookURL)
	if err != nil {
		s.log.Error("webhook dispatch errored", zap.Error(err), zap.String("decision_id", d.ID.String()))
		return
	}
	if !ok {
		s.log.Warn("webhook delivery failed after exhausting retries",
			zap.String("decision_id", d.ID.String()), zap.Int("attempts", attempts))
	}
}

func outcomeLabel(d decisiondomain.Decision) string {
	if d.Approved {
		return "approved"
	}
	if d.ScoreBand == decisiondomain.ScoreBand(risk.BucketEmpty) {
		return "error"
	}
	return "declined"
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func marshalFactors(f risk.Factors) datatypes.JSON {
	b, err := json.Marshal(f)
	if err != nil {
		return nil
	}
	return b
}
