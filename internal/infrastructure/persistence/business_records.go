package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/bizledger/backend/internal/domain/metering"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// The metered business tables. The CRUD modules that write them live
// outside this service; the models here exist so reconciliation can
// count their rows and migrations can create them in development.

// InvoiceModel is the GORM model for invoices
type InvoiceModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	SubscriberID string    `gorm:"type:uuid;not null;index:idx_invoice_subscriber_created,priority:1"`
	Number       string    `gorm:"type:varchar(50)"`
	CreatedAt    time.Time `gorm:"not null;index:idx_invoice_subscriber_created,priority:2"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for the model
func (InvoiceModel) TableName() string { return "invoices" }

// ExpenseModel is the GORM model for expense records
type ExpenseModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	SubscriberID string    `gorm:"type:uuid;not null;index:idx_expense_subscriber_created,priority:1"`
	CreatedAt    time.Time `gorm:"not null;index:idx_expense_subscriber_created,priority:2"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for the model
func (ExpenseModel) TableName() string { return "expenses" }

// SaleModel is the GORM model for sales records
type SaleModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	SubscriberID string    `gorm:"type:uuid;not null;index:idx_sale_subscriber_created,priority:1"`
	CreatedAt    time.Time `gorm:"not null;index:idx_sale_subscriber_created,priority:2"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for the model
func (SaleModel) TableName() string { return "sales" }

// ProductModel is the GORM model for catalog products
type ProductModel struct {
	ID           string     `gorm:"type:uuid;primaryKey"`
	SubscriberID string     `gorm:"type:uuid;not null;index:idx_product_subscriber"`
	Name         string     `gorm:"type:varchar(255)"`
	DeletedAt    *time.Time `gorm:"index"`
	CreatedAt    time.Time  `gorm:"not null"`
	UpdatedAt    time.Time  `gorm:"not null"`
}

// TableName returns the table name for the model
func (ProductModel) TableName() string { return "products" }

// GormCountSource implements metering.AuthoritativeCountSource by
// counting the business rows directly. Invoices, expenses and sales are
// counted by creation time within the period; products are a catalog
// size, so live rows are counted regardless of when they were created.
type GormCountSource struct {
	db *gorm.DB
}

// NewGormCountSource creates a new authoritative count source
func NewGormCountSource(db *gorm.DB) *GormCountSource {
	return &GormCountSource{db: db}
}

// CountInPeriod reports the true number of metered records for the
// subscriber within the window
func (s *GormCountSource) CountInPeriod(ctx context.Context, subscriberID uuid.UUID, featureType metering.FeatureType, period metering.Period) (int64, error) {
	var count int64
	query := s.db.WithContext(ctx)

	switch featureType {
	case metering.FeatureTypeProducts:
		err := query.Model(&ProductModel{}).
			Where("subscriber_id = ?", subscriberID.String()).
			Where("deleted_at IS NULL").
			Count(&count).Error
		return count, err
	case metering.FeatureTypeInvoices:
		query = query.Model(&InvoiceModel{})
	case metering.FeatureTypeExpenses:
		query = query.Model(&ExpenseModel{})
	case metering.FeatureTypeSales:
		query = query.Model(&SaleModel{})
	default:
		// Returning zero here would let reconciliation "correct" a ledger
		// row down to nothing.
		return 0, fmt.Errorf("no authoritative source for feature type %q", featureType)
	}

	err := query.
		Where("subscriber_id = ?", subscriberID.String()).
		Where("created_at >= ?", period.Start).
		Where("created_at < ?", period.End).
		Count(&count).Error
	return count, err
}

// Ensure GormCountSource implements the interface
var _ metering.AuthoritativeCountSource = (*GormCountSource)(nil)
