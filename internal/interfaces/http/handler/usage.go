package handler

import (
	"context"

	appmetering "github.com/bizledger/backend/internal/application/metering"
	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UsageEnforcer is the admission surface used by the usage handler
type UsageEnforcer interface {
	CheckAndReserve(ctx context.Context, actingUserID uuid.UUID, featureType metering.FeatureType) (*appmetering.Reservation, error)
	Release(ctx context.Context, actingUserID uuid.UUID, featureType metering.FeatureType, ref uuid.UUID) error
	GetUsageStatus(ctx context.Context, actingUserID uuid.UUID) (*appmetering.UsageStatusDTO, error)
}

// Reconciler runs ledger reconciliation on demand
type Reconciler interface {
	Reconcile(ctx context.Context, subscriberID uuid.UUID) ([]appmetering.Correction, error)
	ReconcileAll(ctx context.Context) (*appmetering.ReconcileReport, error)
}

// UsageHandler handles quota enforcement HTTP requests
type UsageHandler struct {
	BaseHandler
	enforcer   UsageEnforcer
	reconciler Reconciler
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(enforcer UsageEnforcer, reconciler Reconciler) *UsageHandler {
	return &UsageHandler{
		enforcer:   enforcer,
		reconciler: reconciler,
	}
}

// RegisterRoutes registers usage routes
func (h *UsageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	usage := rg.Group("/usage")
	{
		usage.POST("/reservations", h.Reserve)
		usage.DELETE("/reservations/:ref", h.Release)
		usage.GET("/status", h.Status)
		usage.POST("/reconcile", h.Reconcile)
	}
}

// ReserveRequest asks for one unit of a metered feature
type ReserveRequest struct {
	FeatureType string `json:"feature_type" binding:"required"`
}

// ReservationResponse reports an admitted reservation
type ReservationResponse struct {
	Ref          string `json:"ref"`
	SubscriberID string `json:"subscriber_id"`
	FeatureType  string `json:"feature_type"`
	Remaining    int64  `json:"remaining"`
	PeriodEnd    string `json:"period_end"`
}

// Reserve admits or denies one unit of usage for the acting user
func (h *UsageHandler) Reserve(c *gin.Context) {
	actingUserID, err := getActingUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing or invalid acting user")
		return
	}

	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	featureType, err := metering.ParseFeatureType(req.FeatureType)
	if err != nil {
		h.BadRequest(c, "Unknown feature type: "+req.FeatureType)
		return
	}

	reservation, err := h.enforcer.CheckAndReserve(c.Request.Context(), actingUserID, featureType)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, ReservationResponse{
		Ref:          reservation.Ref.String(),
		SubscriberID: reservation.SubscriberID.String(),
		FeatureType:  string(reservation.FeatureType),
		Remaining:    reservation.Remaining,
		PeriodEnd:    reservation.PeriodEnd.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// Release returns a previously admitted unit, e.g. when the business
// write failed after admission
func (h *UsageHandler) Release(c *gin.Context) {
	actingUserID, err := getActingUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing or invalid acting user")
		return
	}

	ref, err := uuid.Parse(c.Param("ref"))
	if err != nil {
		h.BadRequest(c, "Invalid reservation ref")
		return
	}

	featureType, err := metering.ParseFeatureType(c.Query("feature_type"))
	if err != nil {
		h.BadRequest(c, "Unknown feature type: "+c.Query("feature_type"))
		return
	}

	if err := h.enforcer.Release(c.Request.Context(), actingUserID, featureType, ref); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Status reports current usage against limits for every feature
func (h *UsageHandler) Status(c *gin.Context) {
	actingUserID, err := getActingUserID(c)
	if err != nil {
		h.Unauthorized(c, "Missing or invalid acting user")
		return
	}

	status, err := h.enforcer.GetUsageStatus(c.Request.Context(), actingUserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, status)
}

// ReconcileRequest scopes a reconciliation run. Without a subscriber ID
// the pass covers every subscriber with ledger rows.
type ReconcileRequest struct {
	SubscriberID string `json:"subscriber_id"`
}

// Reconcile triggers an on-demand reconciliation pass
func (h *UsageHandler) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	if req.SubscriberID != "" {
		subscriberID, err := uuid.Parse(req.SubscriberID)
		if err != nil {
			h.BadRequest(c, "Invalid subscriber ID")
			return
		}

		corrections, err := h.reconciler.Reconcile(c.Request.Context(), subscriberID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, gin.H{"corrections": corrections})
		return
	}

	report, err := h.reconciler.ReconcileAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
