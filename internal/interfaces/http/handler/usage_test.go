package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appmetering "github.com/bizledger/backend/internal/application/metering"
	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/bizledger/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEnforcer is a mock implementation of UsageEnforcer
type mockEnforcer struct {
	reservation *appmetering.Reservation
	status      *appmetering.UsageStatusDTO
	err         error

	releasedRef uuid.UUID
}

func (m *mockEnforcer) CheckAndReserve(_ context.Context, _ uuid.UUID, _ metering.FeatureType) (*appmetering.Reservation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.reservation, nil
}

func (m *mockEnforcer) Release(_ context.Context, _ uuid.UUID, _ metering.FeatureType, ref uuid.UUID) error {
	m.releasedRef = ref
	return m.err
}

func (m *mockEnforcer) GetUsageStatus(_ context.Context, _ uuid.UUID) (*appmetering.UsageStatusDTO, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.status, nil
}

// mockReconciler is a mock implementation of Reconciler
type mockReconciler struct {
	corrections []appmetering.Correction
	report      *appmetering.ReconcileReport
	err         error

	singleCalled bool
	allCalled    bool
}

func (m *mockReconciler) Reconcile(_ context.Context, _ uuid.UUID) ([]appmetering.Correction, error) {
	m.singleCalled = true
	if m.err != nil {
		return nil, m.err
	}
	return m.corrections, nil
}

func (m *mockReconciler) ReconcileAll(_ context.Context) (*appmetering.ReconcileReport, error) {
	m.allCalled = true
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func setupUsageRouter(enforcer UsageEnforcer, reconciler Reconciler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewUsageHandler(enforcer, reconciler).RegisterRoutes(api)
	return engine
}

func performRequest(engine *gin.Engine, method, path string, body any, actingUser string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actingUser != "" {
		req.Header.Set(ActingUserHeader, actingUser)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestUsageHandler_Reserve(t *testing.T) {
	subscriberID := uuid.New()
	enforcer := &mockEnforcer{
		reservation: &appmetering.Reservation{
			Ref:          uuid.New(),
			SubscriberID: subscriberID,
			FeatureType:  metering.FeatureTypeInvoices,
			Remaining:    41,
			PeriodEnd:    time.Now().Add(24 * time.Hour),
		},
	}
	engine := setupUsageRouter(enforcer, &mockReconciler{})

	w := performRequest(engine, http.MethodPost, "/api/v1/usage/reservations",
		ReserveRequest{FeatureType: "INVOICES"}, uuid.New().String())

	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool                `json:"success"`
		Data    ReservationResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, subscriberID.String(), resp.Data.SubscriberID)
	assert.Equal(t, "INVOICES", resp.Data.FeatureType)
	assert.Equal(t, int64(41), resp.Data.Remaining)
}

func TestUsageHandler_Reserve_LimitExceeded(t *testing.T) {
	enforcer := &mockEnforcer{
		err: metering.NewLimitExceededError(metering.FeatureTypeInvoices, 450, 450, time.Now().Add(time.Hour)),
	}
	engine := setupUsageRouter(enforcer, &mockReconciler{})

	w := performRequest(engine, http.MethodPost, "/api/v1/usage/reservations",
		ReserveRequest{FeatureType: "INVOICES"}, uuid.New().String())

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_LIMIT_EXCEEDED")
}

func TestUsageHandler_Reserve_ConcurrencyTimeout(t *testing.T) {
	enforcer := &mockEnforcer{
		err: &metering.ConcurrencyTimeoutError{
			SubscriberID: uuid.New(),
			FeatureType:  metering.FeatureTypeSales,
			Waited:       5 * time.Second,
		},
	}
	engine := setupUsageRouter(enforcer, &mockReconciler{})

	w := performRequest(engine, http.MethodPost, "/api/v1/usage/reservations",
		ReserveRequest{FeatureType: "SALES"}, uuid.New().String())

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_CONCURRENCY_TIMEOUT")
}

func TestUsageHandler_Reserve_InactiveSubscription(t *testing.T) {
	enforcer := &mockEnforcer{
		err: shared.NewDomainError("SUBSCRIPTION_INACTIVE", "Subscription does not admit metered usage"),
	}
	engine := setupUsageRouter(enforcer, &mockReconciler{})

	w := performRequest(engine, http.MethodPost, "/api/v1/usage/reservations",
		ReserveRequest{FeatureType: "EXPENSES"}, uuid.New().String())

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_SUBSCRIPTION_INACTIVE")
}

func TestUsageHandler_Reserve_MissingActingUser(t *testing.T) {
	engine := setupUsageRouter(&mockEnforcer{}, &mockReconciler{})

	w := performRequest(engine, http.MethodPost, "/api/v1/usage/reservations",
		ReserveRequest{FeatureType: "INVOICES"}, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUsageHandler_Reserve_UnknownFeature(t *testing.T) {
	engine := setupUsageRouter(&mockEnforcer{}, &mockReconciler{})

	w := performRequest(engine, http.MethodPost, "/api/v1/usage/reservations",
		ReserveRequest{FeatureType: "WIDGETS"}, uuid.New().String())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsageHandler_Release(t *testing.T) {
	enforcer := &mockEnforcer{}
	engine := setupUsageRouter(enforcer, &mockReconciler{})
	ref := uuid.New()

	w := performRequest(engine, http.MethodDelete,
		"/api/v1/usage/reservations/"+ref.String()+"?feature_type=INVOICES", nil, uuid.New().String())

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, ref, enforcer.releasedRef)
}

func TestUsageHandler_Release_BadRef(t *testing.T) {
	engine := setupUsageRouter(&mockEnforcer{}, &mockReconciler{})

	w := performRequest(engine, http.MethodDelete,
		"/api/v1/usage/reservations/not-a-uuid?feature_type=INVOICES", nil, uuid.New().String())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsageHandler_Status(t *testing.T) {
	subscriberID := uuid.New()
	enforcer := &mockEnforcer{
		status: &appmetering.UsageStatusDTO{
			SubscriberID: subscriberID,
			PlanID:       "basic",
			PlanStatus:   "active",
			Features: map[string]appmetering.FeatureUsageDTO{
				"INVOICES": {FeatureType: "INVOICES", CurrentCount: 3, LimitCount: 450, Remaining: 447},
			},
			GeneratedAt: time.Now(),
		},
	}
	engine := setupUsageRouter(enforcer, &mockReconciler{})

	w := performRequest(engine, http.MethodGet, "/api/v1/usage/status", nil, uuid.New().String())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "basic")
	assert.Contains(t, w.Body.String(), "INVOICES")
}

func TestUsageHandler_Status_UnknownUser(t *testing.T) {
	enforcer := &mockEnforcer{err: shared.ErrNotFound}
	engine := setupUsageRouter(enforcer, &mockReconciler{})

	w := performRequest(engine, http.MethodGet, "/api/v1/usage/status", nil, uuid.New().String())

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsageHandler_Reconcile_SingleSubscriber(t *testing.T) {
	reconciler := &mockReconciler{
		corrections: []appmetering.Correction{
			{SubscriberID: uuid.New(), FeatureType: metering.FeatureTypeInvoices, LedgerCount: 40, Authoritative: 37, Delta: -3},
		},
	}
	engine := setupUsageRouter(&mockEnforcer{}, reconciler)

	w := performRequest(engine, http.MethodPost, "/api/v1/usage/reconcile",
		ReconcileRequest{SubscriberID: uuid.New().String()}, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reconciler.singleCalled)
	assert.False(t, reconciler.allCalled)
	assert.Contains(t, w.Body.String(), "corrections")
}

func TestUsageHandler_Reconcile_AllSubscribers(t *testing.T) {
	reconciler := &mockReconciler{
		report: &appmetering.ReconcileReport{SubscribersChecked: 5, RecordsChecked: 12},
	}
	engine := setupUsageRouter(&mockEnforcer{}, reconciler)

	w := performRequest(engine, http.MethodPost, "/api/v1/usage/reconcile", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reconciler.allCalled)
	assert.Contains(t, w.Body.String(), "subscribers_checked")
}

func TestUsageHandler_Reconcile_BadSubscriberID(t *testing.T) {
	engine := setupUsageRouter(&mockEnforcer{}, &mockReconciler{})

	w := performRequest(engine, http.MethodPost, "/api/v1/usage/reconcile",
		ReconcileRequest{SubscriberID: "not-a-uuid"}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
