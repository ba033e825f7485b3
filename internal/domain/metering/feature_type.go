package metering

import "fmt"

// FeatureType represents a metered action category
type FeatureType string

const (
	// FeatureTypeInvoices tracks the number of invoices created
	FeatureTypeInvoices FeatureType = "INVOICES"

	// FeatureTypeExpenses tracks the number of expenses recorded
	FeatureTypeExpenses FeatureType = "EXPENSES"

	// FeatureTypeSales tracks the number of sales recorded
	FeatureTypeSales FeatureType = "SALES"

	// FeatureTypeProducts tracks the number of products in the catalog
	FeatureTypeProducts FeatureType = "PRODUCTS"
)

// String returns the string representation of FeatureType
func (f FeatureType) String() string {
	return string(f)
}

// IsValid returns true if the feature type is valid
func (f FeatureType) IsValid() bool {
	switch f {
	case FeatureTypeInvoices, FeatureTypeExpenses, FeatureTypeSales, FeatureTypeProducts:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the feature type
func (f FeatureType) DisplayName() string {
	switch f {
	case FeatureTypeInvoices:
		return "Invoices"
	case FeatureTypeExpenses:
		return "Expenses"
	case FeatureTypeSales:
		return "Sales"
	case FeatureTypeProducts:
		return "Products"
	default:
		return string(f)
	}
}

// AllFeatureTypes returns all valid feature types
func AllFeatureTypes() []FeatureType {
	return []FeatureType{
		FeatureTypeInvoices,
		FeatureTypeExpenses,
		FeatureTypeSales,
		FeatureTypeProducts,
	}
}

// ParseFeatureType parses a string into a FeatureType
func ParseFeatureType(s string) (FeatureType, error) {
	f := FeatureType(s)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid feature type: %s", s)
	}
	return f, nil
}

// PeriodType represents the billing window over which a limit applies
type PeriodType string

const (
	// PeriodTypeWeekly windows start on Monday and span 7 days
	PeriodTypeWeekly PeriodType = "WEEKLY"

	// PeriodTypeMonthly windows start on the 1st and span one calendar month
	PeriodTypeMonthly PeriodType = "MONTHLY"

	// PeriodTypeYearly windows start on January 1st and span one calendar year
	PeriodTypeYearly PeriodType = "YEARLY"
)

// String returns the string representation of PeriodType
func (p PeriodType) String() string {
	return string(p)
}

// IsValid returns true if the period type is valid
func (p PeriodType) IsValid() bool {
	switch p {
	case PeriodTypeWeekly, PeriodTypeMonthly, PeriodTypeYearly:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the period type
func (p PeriodType) DisplayName() string {
	switch p {
	case PeriodTypeWeekly:
		return "Weekly"
	case PeriodTypeMonthly:
		return "Monthly"
	case PeriodTypeYearly:
		return "Yearly"
	default:
		return string(p)
	}
}

// ParsePeriodType parses a string into a PeriodType
func ParsePeriodType(s string) (PeriodType, error) {
	p := PeriodType(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid period type: %s", s)
	}
	return p, nil
}
