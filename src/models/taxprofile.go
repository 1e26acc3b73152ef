package models

import "time"

// FilingStatus is the IRS filing status used for tax bracket lookups.
type FilingStatus string

const (
	FilingSingle                  FilingStatus = "single"
	FilingMarriedFilingJointly    FilingStatus = "married_filing_jointly"
	FilingMarriedFilingSeparately FilingStatus = "married_filing_separately"
	FilingHeadOfHousehold         FilingStatus = "head_of_household"
)

// ParseFilingStatus maps a raw string onto a FilingStatus. Unknown values
// silently default to single, the safest (highest-rate-at-low-income) choice,
// rather than failing the whole analysis.
func ParseFilingStatus(raw string) FilingStatus {
	switch FilingStatus(raw) {
	case FilingSingle, FilingMarriedFilingJointly, FilingMarriedFilingSeparately, FilingHeadOfHousehold:
		return FilingStatus(raw)
	default:
		return FilingSingle
	}
}

// TaxProfile holds the user inputs needed to estimate the tax impact of
// harvesting decisions. Immutable during an analysis.
type TaxProfile struct {
	UserID                int64        `json:"user_id,omitempty"`
	FilingStatus          FilingStatus `json:"filing_status"`
	EstimatedAnnualIncome float64      `json:"estimated_annual_income"`
	State                 string       `json:"state"` // US state abbreviation, currently unused in rate math
	TaxYear               int          `json:"tax_year"`
	AISuggestionsEnabled  bool         `json:"ai_suggestions_enabled"`
	CreatedAt             time.Time    `json:"created_at,omitempty"`
	UpdatedAt             time.Time    `json:"updated_at,omitempty"`
}

// DefaultTaxProfile returns the profile used when a user has not saved one.
func DefaultTaxProfile() TaxProfile {
	return TaxProfile{
		FilingStatus:          FilingSingle,
		EstimatedAnnualIncome: 75000,
		TaxYear:               2025,
		AISuggestionsEnabled:  true,
	}
}

// Normalize clamps profile fields into their supported ranges.
func (p *TaxProfile) Normalize() {
	p.FilingStatus = ParseFilingStatus(string(p.FilingStatus))
	if p.EstimatedAnnualIncome < 0 {
		p.EstimatedAnnualIncome = 0
	}
	if p.TaxYear < 2024 {
		p.TaxYear = 2024
	}
	if p.TaxYear > 2026 {
		p.TaxYear = 2026
	}
}

// TaxEstimate is the estimated tax impact for a specific gain or loss.
type TaxEstimate struct {
	ShortTermRate float64 `json:"short_term_rate"` // Marginal ordinary income rate
	LongTermRate  float64 `json:"long_term_rate"`  // Long-term capital gains rate
	NIITApplies   bool    `json:"niit_applies"`
	EffectiveRate float64 `json:"effective_rate"`
	EstimatedTax  float64 `json:"estimated_tax"` // Owed (positive) or saved (negative)
}
