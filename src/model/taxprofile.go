package model

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/optionstaxhub/backend/src/database"
	"github.com/username/optionstaxhub/backend/src/models"
)

// GetTaxProfileByUserID loads a user's saved tax profile. Returns the
// default profile when none has been saved yet.
func GetTaxProfileByUserID(userID int64) (*models.TaxProfile, error) {
	profile := models.DefaultTaxProfile()
	profile.UserID = userID

	var createdAt, updatedAt string
	var aiEnabled int
	err := database.DB.QueryRow(
		`SELECT filing_status, estimated_annual_income, state, tax_year, ai_suggestions_enabled, created_at, updated_at
		 FROM tax_profiles WHERE user_id = ?`,
		userID,
	).Scan(&profile.FilingStatus, &profile.EstimatedAnnualIncome, &profile.State, &profile.TaxYear, &aiEnabled, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return &profile, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying tax profile for user %d: %w", userID, err)
	}

	profile.AISuggestionsEnabled = aiEnabled != 0
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		profile.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		profile.UpdatedAt = t
	}
	profile.Normalize()
	return &profile, nil
}

// UpsertTaxProfile saves a user's tax profile, replacing any existing row.
func UpsertTaxProfile(profile *models.TaxProfile) error {
	profile.Normalize()
	now := time.Now().UTC().Format(time.RFC3339)

	aiEnabled := 0
	if profile.AISuggestionsEnabled {
		aiEnabled = 1
	}

	_, err := database.DB.Exec(
		`INSERT INTO tax_profiles (user_id, filing_status, estimated_annual_income, state, tax_year, ai_suggestions_enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			filing_status = excluded.filing_status,
			estimated_annual_income = excluded.estimated_annual_income,
			state = excluded.state,
			tax_year = excluded.tax_year,
			ai_suggestions_enabled = excluded.ai_suggestions_enabled,
			updated_at = excluded.updated_at`,
		profile.UserID, profile.FilingStatus, profile.EstimatedAnnualIncome, profile.State, profile.TaxYear, aiEnabled, now, now,
	)
	if err != nil {
		return fmt.Errorf("saving tax profile for user %d: %w", profile.UserID, err)
	}
	return nil
}
