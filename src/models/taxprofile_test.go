package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFilingStatus(t *testing.T) {
	tests := []struct {
		in   string
		want FilingStatus
	}{
		{"single", FilingSingle},
		{"married_filing_jointly", FilingMarriedFilingJointly},
		{"married_filing_separately", FilingMarriedFilingSeparately},
		{"head_of_household", FilingHeadOfHousehold},
		{"bogus", FilingSingle},
		{"SINGLE", FilingSingle},
		{"", FilingSingle},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseFilingStatus(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeClampsFields(t *testing.T) {
	p := TaxProfile{
		FilingStatus:          "partnership",
		EstimatedAnnualIncome: -50,
		TaxYear:               1999,
	}
	p.Normalize()

	assert.Equal(t, FilingSingle, p.FilingStatus)
	assert.Equal(t, 0.0, p.EstimatedAnnualIncome)
	assert.Equal(t, 2024, p.TaxYear)

	p.TaxYear = 3000
	p.Normalize()
	assert.Equal(t, 2026, p.TaxYear)
}
