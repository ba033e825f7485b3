package handler

import (
	"context"

	appmetering "github.com/bizledger/backend/internal/application/metering"
	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanChanger moves a subscriber between plans
type PlanChanger interface {
	ChangePlan(ctx context.Context, input appmetering.TransitionInput) (*metering.PlanTransition, error)
	GetHistory(ctx context.Context, subscriberID uuid.UUID) ([]*metering.PlanTransition, error)
}

// SubscriptionHandler handles plan transition HTTP requests
type SubscriptionHandler struct {
	BaseHandler
	transitions PlanChanger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(transitions PlanChanger) *SubscriptionHandler {
	return &SubscriptionHandler{transitions: transitions}
}

// RegisterRoutes registers subscription routes
func (h *SubscriptionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	subscribers := rg.Group("/subscribers")
	{
		subscribers.POST("/:id/transitions", h.ChangePlan)
		subscribers.GET("/:id/transitions", h.History)
	}
}

// ProrationRequest carries the billing adjustment of a plan change
type ProrationRequest struct {
	CreditAmount string `json:"credit_amount"`
	ChargeAmount string `json:"charge_amount"`
	Currency     string `json:"currency"`
	Note         string `json:"note"`
}

// ChangePlanRequest moves a subscriber to a new plan
type ChangePlanRequest struct {
	ToPlanID    string            `json:"to_plan_id" binding:"required"`
	CountPolicy string            `json:"count_policy"`
	Proration   *ProrationRequest `json:"proration"`
	Reason      string            `json:"reason"`
}

// TransitionResponse reports a recorded plan transition
type TransitionResponse struct {
	SubscriberID string `json:"subscriber_id"`
	FromPlanID   string `json:"from_plan_id"`
	ToPlanID     string `json:"to_plan_id"`
	OccurredAt   string `json:"occurred_at"`
	CountPolicy  string `json:"count_policy"`
	CreditAmount string `json:"credit_amount"`
	ChargeAmount string `json:"charge_amount"`
	Currency     string `json:"currency,omitempty"`
	Note         string `json:"note,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

func transitionResponseFrom(t *metering.PlanTransition) TransitionResponse {
	return TransitionResponse{
		SubscriberID: t.SubscriberID.String(),
		FromPlanID:   t.FromPlanID,
		ToPlanID:     t.ToPlanID,
		OccurredAt:   t.OccurredAt.Format("2006-01-02T15:04:05Z07:00"),
		CountPolicy:  string(t.CountPolicy),
		CreditAmount: t.Proration.CreditAmount.String(),
		ChargeAmount: t.Proration.ChargeAmount.String(),
		Currency:     t.Proration.Currency,
		Note:         t.Proration.Note,
		Reason:       t.Reason,
	}
}

// ChangePlan moves the subscriber to the requested plan
func (h *SubscriptionHandler) ChangePlan(c *gin.Context) {
	subscriberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid subscriber ID")
		return
	}

	var req ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	countPolicy := metering.CountPolicyReset
	if req.CountPolicy != "" {
		countPolicy, err = metering.ParseCountPolicy(req.CountPolicy)
		if err != nil {
			h.BadRequest(c, "Unknown count policy: "+req.CountPolicy)
			return
		}
	}

	proration, err := prorationFrom(req.Proration)
	if err != nil {
		h.BadRequest(c, "Invalid proration amount: "+err.Error())
		return
	}

	transition, err := h.transitions.ChangePlan(c.Request.Context(), appmetering.TransitionInput{
		SubscriberID: subscriberID,
		ToPlanID:     req.ToPlanID,
		CountPolicy:  countPolicy,
		Proration:    proration,
		Reason:       req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, transitionResponseFrom(transition))
}

// History lists past plan transitions, newest first
func (h *SubscriptionHandler) History(c *gin.Context) {
	subscriberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid subscriber ID")
		return
	}

	transitions, err := h.transitions.GetHistory(c.Request.Context(), subscriberID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]TransitionResponse, 0, len(transitions))
	for _, t := range transitions {
		responses = append(responses, transitionResponseFrom(t))
	}
	h.Success(c, gin.H{"transitions": responses})
}

func prorationFrom(req *ProrationRequest) (metering.ProrationDetails, error) {
	if req == nil {
		return metering.ProrationDetails{}, nil
	}

	details := metering.ProrationDetails{
		Currency: req.Currency,
		Note:     req.Note,
	}

	var err error
	if req.CreditAmount != "" {
		details.CreditAmount, err = decimal.NewFromString(req.CreditAmount)
		if err != nil {
			return details, err
		}
	}
	if req.ChargeAmount != "" {
		details.ChargeAmount, err = decimal.NewFromString(req.ChargeAmount)
		if err != nil {
			return details, err
		}
	}
	return details, nil
}
