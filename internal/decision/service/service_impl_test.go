package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geraldco/bnpl-decision-gateway/internal/clock"
	appconfig "github.com/geraldco/bnpl-decision-gateway/internal/config"
	decisiondomain "github.com/geraldco/bnpl-decision-gateway/internal/decision/domain"
	"github.com/geraldco/bnpl-decision-gateway/internal/observability/metrics"
	"github.com/geraldco/bnpl-decision-gateway/internal/risk"
	txdomain "github.com/geraldco/bnpl-decision-gateway/internal/transaction/domain"
	"github.com/geraldco/bnpl-decision-gateway/internal/utilization"
	"github.com/geraldco/bnpl-decision-gateway/internal/webhook/dispatcher"
	webhookdomain "github.com/geraldco/bnpl-decision-gateway/internal/webhook/domain"
)

type fakeSource struct {
	txs []txdomain.Transaction
	err error
}

func (s *fakeSource) Fetch(_ context.Context, _ string) ([]txdomain.Transaction, error) {
	return s.txs, s.err
}

type fakeRepo struct {
	mu           sync.Mutex
	byRequestID  map[string]decisiondomain.Decision
	decisions    []decisiondomain.Decision
	plans        map[uuid.UUID]*decisiondomain.PlanWithInstallments
	plansByDecID map[uuid.UUID]*decisiondomain.PlanWithInstallments
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byRequestID:  map[string]decisiondomain.Decision{},
		plans:        map[uuid.UUID]*decisiondomain.PlanWithInstallments{},
		plansByDecID: map[uuid.UUID]*decisiondomain.PlanWithInstallments{},
	}
}

func (r *fakeRepo) FindByRequestID(_ context.Context, userID, requestID string) (*decisiondomain.Decision, error) {
	if requestID == "" {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byRequestID[userID+"|"+requestID]
	if !ok {
		return nil, nil
	}
	cp := d
	return &cp, nil
}

func (r *fakeRepo) CreateDecision(_ context.Context, d *decisiondomain.Decision) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.RequestID != "" {
		if existing, ok := r.byRequestID[d.UserID+"|"+d.RequestID]; ok {
			*d = existing
			return false, nil
		}
		r.byRequestID[d.UserID+"|"+d.RequestID] = *d
	}
	r.decisions = append(r.decisions, *d)
	return true, nil
}

func (r *fakeRepo) CreatePlanWithInstallments(_ context.Context, plan *decisiondomain.Plan, installments []decisiondomain.Installment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pw := &decisiondomain.PlanWithInstallments{Plan: *plan, Installments: installments}
	r.plans[plan.ID] = pw
	r.plansByDecID[plan.DecisionID] = pw
	return nil
}

func (r *fakeRepo) History(_ context.Context, userID string, limit int) ([]decisiondomain.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []decisiondomain.Decision
	for _, d := range r.decisions {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeRepo) PlanByID(_ context.Context, planID uuid.UUID) (*decisiondomain.PlanWithInstallments, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.plans[planID], nil
}

func (r *fakeRepo) PlanByDecisionID(_ context.Context, decisionID uuid.UUID) (*decisiondomain.PlanWithInstallments, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.plansByDecID[decisionID], nil
}

// fakeWebhookStore is the audit-trail backing store the dispatcher needs;
// it records rows in memory so Dispatch can run end-to-end in tests.
type fakeWebhookStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*webhookdomain.OutboundWebhook
}

func newFakeWebhookStore() *fakeWebhookStore {
	return &fakeWebhookStore{rows: map[uuid.UUID]*webhookdomain.OutboundWebhook{}}
}

func (s *fakeWebhookStore) Create(_ context.Context, w *webhookdomain.OutboundWebhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[w.ID] = w
	return nil
}

func (s *fakeWebhookStore) GetByID(_ context.Context, id uuid.UUID) (*webhookdomain.OutboundWebhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id], nil
}

func (s *fakeWebhookStore) RecordAttempt(_ context.Context, id uuid.UUID, attempts int, status webhookdomain.Status, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.rows[id]; ok {
		w.Attempts = attempts
		w.Status = status
	}
	return nil
}

func testRiskConfig(t *testing.T) risk.Config {
	t.Helper()
	cfg, err := risk.NewConfig(risk.Config{
		BalanceWeight: 0.5, IncomeSpendWeight: 0.3, NSFWeight: 0.2,
		BalanceNegCap: 10_000, NSFPenalty: 25, PaybackPenalty: 10,
		UtilPenaltyHigh: 15, UtilPenaltyMedium: 7.5,
		TierALimit: 20_000, TierBLimit: 12_000, TierCLimit: 6_000, TierDLimit: 2_000,
		TierAMinScore: 75, TierBMinScore: 55, TierCMinScore: 35,
	})
	require.NoError(t, err)
	return cfg
}

func testUtilConfig(t *testing.T) utilization.Config {
	t.Helper()
	cfg, err := utilization.NewConfig(utilization.Config{
		UtilMu: 0.6, UtilWeight: 0.45,
		BurnMu: 30, BurnWeight: 0.35,
		SpendMu: 0.033, SpendSigma: 0.02, SpendWeight: 0.20,
		LabelHealthy: 80, LabelMedium: 60, LabelHigh: 40, LabelVeryHigh: 20,
	})
	require.NoError(t, err)
	return cfg
}

func newTestService(t *testing.T, src *fakeSource, repo *fakeRepo, webhookURL string, disp *dispatcher.Dispatcher) *Service {
	t.Helper()
	return New(
		src,
		testRiskConfig(t),
		testUtilConfig(t),
		appconfig.Config{Cooldown: appconfig.CooldownConfig{Hours: 72}, LedgerWebhookURL: webhookURL},
		repo,
		nil, // no Redis lock configured
		disp,
		metrics.New(prometheus.NewRegistry()),
		clock.NewFake(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)),
		zap.NewNop(),
	)
}

func ptr(i int64) *int64 { return &i }

// healthyHistory builds 40 days of regular biweekly paychecks against
// moderate recurring spend with a positive running balance. Utilization
// lands near its Gaussian mean and the composite stays in the medium-risk
// label, so the final score and payback label clear Tier A.
func healthyHistory() []txdomain.Transaction {
	var txs []txdomain.Transaction
	balance := int64(900_000)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for day := 0; day < 40; day++ {
		date := start.AddDate(0, 0, day)
		if day%14 == 0 {
			balance += 300_000
			txs = append(txs, txdomain.Transaction{
				ID: "credit", Date: date, AmountCents: 300_000,
				Type: txdomain.TransactionCredit, BalanceCents: ptr(balance),
			})
		}
		balance -= 9_000
		txs = append(txs, txdomain.Transaction{
			ID: "debit", Date: date, AmountCents: 9_000,
			Type: txdomain.TransactionDebit, BalanceCents: ptr(balance),
		})
	}
	return txs
}

func TestDecideHappyPathWithHealthySpendApproves(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, &fakeSource{txs: healthyHistory()}, repo, "", nil)

	d, plan, err := svc.Decide(context.Background(), decisiondomain.DecideRequest{
		UserID: "U1", AmountRequestedCents: 40_000, RequestID: "r1",
	})

	require.NoError(t, err)
	assert.True(t, d.Approved)
	assert.Greater(t, d.CreditLimitCents, int64(0))
	wantGranted := d.CreditLimitCents
	if 40_000 < wantGranted {
		wantGranted = 40_000
	}
	assert.Equal(t, wantGranted, d.AmountGrantedCents)
	require.NotNil(t, plan)
	assert.Len(t, plan.Installments, 4)
	var sum int64
	for _, inst := range plan.Installments {
		sum += inst.AmountCents
	}
	assert.Equal(t, d.AmountGrantedCents, sum)
}

func TestDecideEmptyTransactionsIsDeclinedAndPersisted(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, &fakeSource{txs: nil}, repo, "", nil)

	d, plan, err := svc.Decide(context.Background(), decisiondomain.DecideRequest{
		UserID: "U2", AmountRequestedCents: 10_000, RequestID: "r2",
	})

	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.Equal(t, int64(0), d.CreditLimitCents)
	assert.Nil(t, plan)
	assert.Len(t, repo.decisions, 1)
}

func TestDecideBankUnavailableSurfacesSentinelError(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, &fakeSource{err: assertError("boom")}, repo, "", nil)

	_, _, err := svc.Decide(context.Background(), decisiondomain.DecideRequest{
		UserID: "U3", AmountRequestedCents: 10_000, RequestID: "r3",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, decisiondomain.ErrBankUnavailable)
	assert.Empty(t, repo.decisions)
}

func TestDecideIdempotentReplayReturnsExistingWithoutSideEffects(t *testing.T) {
	txs := []txdomain.Transaction{
		{ID: "t1", Date: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), AmountCents: 500_000, Type: txdomain.TransactionCredit, BalanceCents: ptr(500_000)},
	}
	repo := newFakeRepo()
	svc := newTestService(t, &fakeSource{txs: txs}, repo, "", nil)

	req := decisiondomain.DecideRequest{UserID: "U4", AmountRequestedCents: 40_000, RequestID: "r4"}
	first, firstPlan, err := svc.Decide(context.Background(), req)
	require.NoError(t, err)

	second, secondPlan, err := svc.Decide(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, firstPlan.Plan.ID, secondPlan.Plan.ID)
	assert.Len(t, repo.decisions, 1)
}

func TestDecideCooldownDenies(t *testing.T) {
	txs := []txdomain.Transaction{
		{ID: "t1", Date: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), AmountCents: 500_000, Type: txdomain.TransactionCredit, BalanceCents: ptr(500_000)},
		{ID: "t2", Date: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), AmountCents: 50_000, Type: txdomain.TransactionCredit,
			Description: "Gerald cash advance disbursement", BalanceCents: ptr(550_000)},
	}
	repo := newFakeRepo()
	svc := newTestService(t, &fakeSource{txs: txs}, repo, "", nil)

	d, plan, err := svc.Decide(context.Background(), decisiondomain.DecideRequest{
		UserID: "U5", AmountRequestedCents: 40_000, RequestID: "r5",
	})

	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.Equal(t, int64(0), d.CreditLimitCents)
	assert.Nil(t, plan)
}

// TestDecideConcurrentDuplicateRequestIDProducesExactlyOnePlanAndWebhook
// drives two concurrent callers through Decide with the same request_id and
// no Redis locker configured, matching the default deployment. TryLock on a
// nil *idempotency.Locker always reports acquired=true, so both callers pass
// step 1 and race to step 6; the repository's unique index on request_id
// picks a single winner and reports won=false to the loser. The loser must
// adopt the winner's Decision and Plan rather than minting its own and must
// not dispatch a second webhook.
func TestDecideConcurrentDuplicateRequestIDProducesExactlyOnePlanAndWebhook(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := newFakeRepo()
	store := newFakeWebhookStore()
	m := metrics.New(prometheus.NewRegistry())
	disp := dispatcher.New(store, zap.NewNop(), m)

	src := &fakeSource{txs: healthyHistory()}
	svc := New(
		src,
		testRiskConfig(t),
		testUtilConfig(t),
		appconfig.Config{Cooldown: appconfig.CooldownConfig{Hours: 72}, LedgerWebhookURL: server.URL},
		repo,
		nil, // no Redis lock configured, matching default deployment
		disp,
		m,
		clock.NewFake(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)),
		zap.NewNop(),
	)

	req := decisiondomain.DecideRequest{UserID: "U6", AmountRequestedCents: 40_000, RequestID: "r6"}

	var wg sync.WaitGroup
	results := make([]decisiondomain.Decision, 2)
	errs := make([]error, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			d, _, err := svc.Decide(context.Background(), req)
			results[i] = d
			errs[i] = err
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].ID, results[1].ID, "both callers must observe the same winning decision")

	assert.Len(t, repo.decisions, 1, "exactly one Decision row must be persisted")
	assert.Len(t, repo.plans, 1, "exactly one Plan must reference the Decision")

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&hits) == 1
	}, 2*time.Second, 10*time.Millisecond, "exactly one webhook must be dispatched")
}

type assertError string

func (e assertError) Error() string { return string(e) }
