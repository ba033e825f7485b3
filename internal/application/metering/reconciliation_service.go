package metering

import (
	"context"
	"time"

	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Correction records one drift fix applied by reconciliation
type Correction struct {
	SubscriberID  uuid.UUID            `json:"subscriber_id"`
	FeatureType   metering.FeatureType `json:"feature_type"`
	LedgerCount   int64                `json:"ledger_count"`
	Authoritative int64                `json:"authoritative_count"`
	Delta         int64                `json:"delta"`
	AppliedAt     time.Time            `json:"applied_at"`
}

// ReconcileReport summarizes a batch reconciliation pass
type ReconcileReport struct {
	SubscribersChecked int          `json:"subscribers_checked"`
	RecordsChecked     int          `json:"records_checked"`
	Corrections        []Correction `json:"corrections"`
	Failures           int          `json:"failures"`
	StartedAt          time.Time    `json:"started_at"`
	FinishedAt         time.Time    `json:"finished_at"`
}

// ReconciliationService realigns the usage ledger with the counts
// derived from the business records themselves. It reads the business
// data, never writes it; the ledger is the only thing corrected. A pass
// over an already-consistent ledger changes nothing, so running it
// twice is safe.
type ReconciliationService struct {
	scope       TransactionScope
	ledgerRepo  metering.UsageLedgerRepository
	countSource metering.AuthoritativeCountSource
	cache       StatusCache
	logger      *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService.
// The cache may be nil.
func NewReconciliationService(
	scope TransactionScope,
	ledgerRepo metering.UsageLedgerRepository,
	countSource metering.AuthoritativeCountSource,
	cache StatusCache,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		scope:       scope,
		ledgerRepo:  ledgerRepo,
		countSource: countSource,
		cache:       cache,
		logger:      logger,
	}
}

// Reconcile realigns all active ledger rows of one subscriber. Each row
// is corrected in its own transaction under the same exclusive hold
// enforcement uses, so a concurrent reservation and a correction cannot
// interleave on the same row.
func (s *ReconciliationService) Reconcile(ctx context.Context, subscriberID uuid.UUID) ([]Correction, error) {
	corrections, _, err := s.reconcileSubscriber(ctx, subscriberID)
	return corrections, err
}

func (s *ReconciliationService) reconcileSubscriber(ctx context.Context, subscriberID uuid.UUID) ([]Correction, int, error) {
	now := time.Now()
	records, err := s.ledgerRepo.FindAllForSubscriber(ctx, subscriberID)
	if err != nil {
		return nil, 0, err
	}

	var corrections []Correction
	checked := 0
	for _, record := range records {
		if record.IsExpiredAt(now) {
			continue
		}
		checked++

		authoritative, err := s.countSource.CountInPeriod(ctx, subscriberID, record.FeatureType, record.Period())
		if err != nil {
			return corrections, checked, err
		}

		correction, err := s.correctRecord(ctx, subscriberID, record.FeatureType, authoritative)
		if err != nil {
			return corrections, checked, err
		}
		if correction != nil {
			corrections = append(corrections, *correction)
		}
	}

	if len(corrections) > 0 && s.cache != nil {
		s.cache.Invalidate(ctx, subscriberID)
	}

	return corrections, checked, nil
}

// ReconcileAll runs a pass over every subscriber holding ledger rows.
// A failure for one subscriber is logged and counted; the pass
// continues with the rest.
func (s *ReconciliationService) ReconcileAll(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{StartedAt: time.Now()}

	subscriberIDs, err := s.ledgerRepo.ListSubscriberIDs(ctx)
	if err != nil {
		return nil, err
	}

	for _, subscriberID := range subscriberIDs {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		corrections, checked, err := s.reconcileSubscriber(ctx, subscriberID)
		report.SubscribersChecked++
		report.RecordsChecked += checked
		report.Corrections = append(report.Corrections, corrections...)
		if err != nil {
			report.Failures++
			s.logger.Error("reconciliation failed for subscriber",
				zap.String("subscriber_id", subscriberID.String()),
				zap.Error(err))
		}
	}

	report.FinishedAt = time.Now()

	s.logger.Info("reconciliation pass finished",
		zap.Int("subscribers_checked", report.SubscribersChecked),
		zap.Int("corrections", len(report.Corrections)),
		zap.Int("failures", report.Failures),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))

	return report, nil
}

// correctRecord re-reads the row under the exclusive hold and applies
// the authoritative count. Returns nil when the row was already
// consistent.
func (s *ReconciliationService) correctRecord(ctx context.Context, subscriberID uuid.UUID, featureType metering.FeatureType, authoritative int64) (*Correction, error) {
	var correction *Correction
	now := time.Now()

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := repos.UsageLedger().FindActiveForUpdate(ctx, subscriberID, featureType, now)
		if err != nil {
			return err
		}

		ledgerCount := record.CurrentCount
		delta := record.ApplyCorrection(authoritative, now)
		if err := repos.UsageLedger().Update(ctx, record); err != nil {
			return err
		}
		if delta == 0 {
			return nil
		}

		correction = &Correction{
			SubscriberID:  subscriberID,
			FeatureType:   featureType,
			LedgerCount:   ledgerCount,
			Authoritative: authoritative,
			Delta:         delta,
			AppliedAt:     now,
		}

		inconsistency := &metering.InconsistentStateError{
			SubscriberID:  subscriberID,
			FeatureType:   featureType,
			LedgerCount:   ledgerCount,
			Authoritative: authoritative,
		}
		s.logger.Warn("usage ledger drift corrected",
			zap.String("subscriber_id", subscriberID.String()),
			zap.String("feature_type", featureType.String()),
			zap.Int64("delta", delta),
			zap.String("detail", inconsistency.Error()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return correction, nil
}
