package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/username/optionstaxhub/backend/src/models"
)

func profile(status models.FilingStatus, income float64, year int) models.TaxProfile {
	return models.TaxProfile{
		FilingStatus:          status,
		EstimatedAnnualIncome: income,
		TaxYear:               year,
	}
}

func TestMarginalOrdinaryRate(t *testing.T) {
	tests := []struct {
		name   string
		status models.FilingStatus
		income float64
		year   int
		want   float64
	}{
		{"single low income", models.FilingSingle, 10000, 2025, 0.10},
		{"single 100k", models.FilingSingle, 100000, 2025, 0.22},
		{"single bracket boundary inclusive", models.FilingSingle, 103350, 2025, 0.22},
		{"single just over boundary", models.FilingSingle, 103351, 2025, 0.24},
		{"single top bracket", models.FilingSingle, 1000000, 2025, 0.37},
		{"mfj 100k", models.FilingMarriedFilingJointly, 100000, 2025, 0.22},
		{"hoh 60k", models.FilingHeadOfHousehold, 60000, 2025, 0.12},
		{"single 100k 2026 tables", models.FilingSingle, 100000, 2026, 0.22},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MarginalOrdinaryRate(tt.income, profile(tt.status, tt.income, tt.year))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLTCGRate(t *testing.T) {
	tests := []struct {
		name   string
		status models.FilingStatus
		income float64
		want   float64
	}{
		{"single zero bracket", models.FilingSingle, 40000, 0.00},
		{"single 100k", models.FilingSingle, 100000, 0.15},
		{"single top", models.FilingSingle, 600000, 0.20},
		{"mfj zero bracket", models.FilingMarriedFilingJointly, 90000, 0.00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LTCGRate(tt.income, profile(tt.status, tt.income, 2025))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNIITApplies(t *testing.T) {
	// Strictly above the threshold only.
	assert.False(t, NIITApplies(200000, profile(models.FilingSingle, 200000, 2025)))
	assert.True(t, NIITApplies(200001, profile(models.FilingSingle, 200001, 2025)))
	assert.False(t, NIITApplies(250000, profile(models.FilingMarriedFilingJointly, 250000, 2025)))
	assert.True(t, NIITApplies(125001, profile(models.FilingMarriedFilingSeparately, 125001, 2025)))
}

func TestCalculateTaxSavingsScenario(t *testing.T) {
	p := profile(models.FilingSingle, 100000, 2025)

	assert.InDelta(t, 220.00, CalculateTaxSavings(1000, false, p), 1e-9)
	assert.InDelta(t, 150.00, CalculateTaxSavings(1000, true, p), 1e-9)
}

func TestCalculateTaxSavingsNonPositiveLoss(t *testing.T) {
	p := profile(models.FilingSingle, 100000, 2025)

	assert.Equal(t, 0.0, CalculateTaxSavings(0, false, p))
	assert.Equal(t, 0.0, CalculateTaxSavings(-500, false, p))
	assert.Equal(t, 0.0, CalculateTaxSavings(-500, true, p))
}

func TestCalculateTaxSavingsWithNIIT(t *testing.T) {
	p := profile(models.FilingSingle, 300000, 2025)

	// 35% ordinary + 3.8% NIIT
	assert.InDelta(t, 388.00, CalculateTaxSavings(1000, false, p), 1e-9)
	// 15% LTCG + 3.8% NIIT
	assert.InDelta(t, 188.00, CalculateTaxSavings(1000, true, p), 1e-9)
}

func TestUnknownFilingStatusUsesSingleTables(t *testing.T) {
	p := profile(models.FilingStatus("partnership"), 100000, 2025)

	assert.Equal(t, 0.22, MarginalOrdinaryRate(100000, p))
	assert.Equal(t, 0.15, LTCGRate(100000, p))
	assert.InDelta(t, 220.00, CalculateTaxSavings(1000, false, p), 1e-9)

	summary := GetBracketSummary(p)
	assert.Len(t, summary.OrdinaryBrackets, 7)
	assert.Equal(t, 200000.0, summary.NIITThreshold)
}

func TestCalculateTaxOnGain(t *testing.T) {
	p := profile(models.FilingSingle, 100000, 2025)

	estimate := CalculateTaxOnGain(1000, false, p)
	assert.Equal(t, 0.22, estimate.ShortTermRate)
	assert.Equal(t, 0.15, estimate.LongTermRate)
	assert.False(t, estimate.NIITApplies)
	assert.InDelta(t, 220.0, estimate.EstimatedTax, 1e-9)

	// Negative gain yields a negative estimated tax.
	estimate = CalculateTaxOnGain(-1000, true, p)
	assert.InDelta(t, -150.0, estimate.EstimatedTax, 1e-9)
}

func TestCapitalLossLimit(t *testing.T) {
	assert.Equal(t, 3000.0, CapitalLossLimit(profile(models.FilingSingle, 0, 2025)))
	assert.Equal(t, 3000.0, CapitalLossLimit(profile(models.FilingMarriedFilingJointly, 0, 2025)))
	assert.Equal(t, 1500.0, CapitalLossLimit(profile(models.FilingMarriedFilingSeparately, 0, 2025)))
}

func TestGetBracketSummary(t *testing.T) {
	summary := GetBracketSummary(profile(models.FilingSingle, 100000, 2025))

	assert.Equal(t, 2025, summary.TaxYear)
	assert.Equal(t, models.FilingSingle, summary.FilingStatus)
	assert.Equal(t, 0.22, summary.MarginalOrdinaryRate)
	assert.Equal(t, 0.15, summary.ApplicableLTCGRate)
	assert.Equal(t, 200000.0, summary.NIITThreshold)
	assert.Equal(t, 3000.0, summary.CapitalLossLimit)
	assert.Len(t, summary.OrdinaryBrackets, 7)
	assert.Len(t, summary.LTCGBrackets, 3)
	// Top brackets are open-ended.
	assert.Nil(t, summary.OrdinaryBrackets[6].UpTo)
	assert.Nil(t, summary.LTCGBrackets[2].UpTo)
	assert.NotNil(t, summary.OrdinaryBrackets[0].UpTo)
}
