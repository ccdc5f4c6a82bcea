package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	decisiondomain "github.com/geraldco/bnpl-decision-gateway/internal/decision/domain"
)

type decideRequestBody struct {
	UserID               string `json:"user_id"`
	AmountRequestedCents int64  `json:"amount_requested_cents"`
}

type decideResponse struct {
	Approved           bool   `json:"approved"`
	CreditLimitCents   int64  `json:"credit_limit_cents"`
	AmountGrantedCents int64  `json:"amount_granted_cents"`
	PlanID             string `json:"plan_id"`
}

func (s *Server) handleDecide(c *gin.Context) {
	var body decideRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", errInvalidRequest, err))
		return
	}
	if body.UserID == "" {
		AbortWithError(c, fmt.Errorf("%w: user_id is required", errInvalidRequest))
		return
	}
	if body.AmountRequestedCents < 0 {
		AbortWithError(c, fmt.Errorf("%w: amount_requested_cents must be >= 0", errInvalidRequest))
		return
	}

	req := decisiondomain.DecideRequest{
		UserID:               body.UserID,
		AmountRequestedCents: body.AmountRequestedCents,
		RequestID:            requestIDFromContext(c),
	}

	decision, plan, err := s.decisionSvc.Decide(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := decideResponse{
		Approved:           decision.Approved,
		CreditLimitCents:   decision.CreditLimitCents,
		AmountGrantedCents: decision.AmountGrantedCents,
	}
	if plan != nil {
		resp.PlanID = plan.Plan.ID.String()
	}

	c.JSON(http.StatusOK, resp)
}

const defaultHistoryLimit = 10

func (s *Server) handleHistory(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		AbortWithError(c, fmt.Errorf("%w: user_id is required", errInvalidRequest))
		return
	}

	decisions, err := s.decisionSvc.History(c.Request.Context(), userID, defaultHistoryLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"decisions": decisions})
}

func (s *Server) handleGetPlan(c *gin.Context) {
	planID, err := uuid.Parse(c.Param("plan_id"))
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: plan_id must be a UUID", errInvalidRequest))
		return
	}

	plan, err := s.decisionSvc.GetPlan(c.Request.Context(), planID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}
