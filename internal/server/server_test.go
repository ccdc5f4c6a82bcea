package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geraldco/bnpl-decision-gateway/internal/config"
	decisiondomain "github.com/geraldco/bnpl-decision-gateway/internal/decision/domain"
)

type fakeDecisionService struct {
	decision  decisiondomain.Decision
	plan      *decisiondomain.PlanWithInstallments
	decideErr error

	history    []decisiondomain.Decision
	historyErr error

	planErr error
}

func (f *fakeDecisionService) Decide(ctx context.Context, req decisiondomain.DecideRequest) (decisiondomain.Decision, *decisiondomain.PlanWithInstallments, error) {
	if f.decideErr != nil {
		return decisiondomain.Decision{}, nil, f.decideErr
	}
	return f.decision, f.plan, nil
}

func (f *fakeDecisionService) History(ctx context.Context, userID string, limit int) ([]decisiondomain.Decision, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func (f *fakeDecisionService) GetPlan(ctx context.Context, planID uuid.UUID) (*decisiondomain.PlanWithInstallments, error) {
	if f.planErr != nil {
		return nil, f.planErr
	}
	return f.plan, nil
}

func newTestServer(t *testing.T, svc decisiondomain.Service) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := NewEngine(zap.NewNop())
	return NewServer(engine, config.Config{}, svc, zap.NewNop())
}

func TestHandleDecideApprovedReturnsPlanID(t *testing.T) {
	planID := uuid.New()
	svc := &fakeDecisionService{
		decision: decisiondomain.Decision{
			Approved:           true,
			CreditLimitCents:   20_000,
			AmountGrantedCents: 15_000,
		},
		plan: &decisiondomain.PlanWithInstallments{
			Plan: decisiondomain.Plan{ID: planID},
		},
	}
	s := newTestServer(t, svc)

	body, _ := json.Marshal(decideRequestBody{UserID: "user-1", AmountRequestedCents: 15_000})
	req := httptest.NewRequest(http.MethodPost, "/v1/decision", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp decideResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Approved)
	assert.Equal(t, int64(15_000), resp.AmountGrantedCents)
	assert.Equal(t, planID.String(), resp.PlanID)
}

func TestHandleDecideDeclinedReturnsEmptyPlanID(t *testing.T) {
	svc := &fakeDecisionService{
		decision: decisiondomain.Decision{Approved: false},
	}
	s := newTestServer(t, svc)

	body, _ := json.Marshal(decideRequestBody{UserID: "user-1", AmountRequestedCents: 5_000})
	req := httptest.NewRequest(http.MethodPost, "/v1/decision", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp decideResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Approved)
	assert.Equal(t, "", resp.PlanID)
}

func TestHandleDecideMissingUserIDReturns400(t *testing.T) {
	s := newTestServer(t, &fakeDecisionService{})

	body, _ := json.Marshal(decideRequestBody{AmountRequestedCents: 5_000})
	req := httptest.NewRequest(http.MethodPost, "/v1/decision", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDecideBankUnavailableReturns503(t *testing.T) {
	svc := &fakeDecisionService{decideErr: decisiondomain.ErrBankUnavailable}
	s := newTestServer(t, svc)

	body, _ := json.Marshal(decideRequestBody{UserID: "user-1", AmountRequestedCents: 5_000})
	req := httptest.NewRequest(http.MethodPost, "/v1/decision", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var payload errorPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "bank_api_error", payload.Error)
}

func TestHandleDecideGeneratesRequestIDWhenAbsent(t *testing.T) {
	s := newTestServer(t, &fakeDecisionService{decision: decisiondomain.Decision{Approved: false}})

	body, _ := json.Marshal(decideRequestBody{UserID: "user-1", AmountRequestedCents: 1_000})
	req := httptest.NewRequest(http.MethodPost, "/v1/decision", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.engine.ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestHandleHistoryMissingUserIDReturns400(t *testing.T) {
	s := newTestServer(t, &fakeDecisionService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/decision/history", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHistoryReturnsDecisions(t *testing.T) {
	svc := &fakeDecisionService{history: []decisiondomain.Decision{{UserID: "user-1"}}}
	s := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/decision/history?user_id=user-1", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleGetPlanNotFoundReturns404(t *testing.T) {
	svc := &fakeDecisionService{planErr: decisiondomain.ErrPlanNotFound}
	s := newTestServer(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/plan/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetPlanInvalidUUIDReturns400(t *testing.T) {
	s := newTestServer(t, &fakeDecisionService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/plan/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeDecisionService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
