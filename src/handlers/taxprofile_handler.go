package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/optionstaxhub/backend/src/logger"
	"github.com/username/optionstaxhub/backend/src/model"
	"github.com/username/optionstaxhub/backend/src/models"
	"github.com/username/optionstaxhub/backend/src/processors"
	"github.com/username/optionstaxhub/backend/src/utils"
)

type TaxProfileHandler struct{}

func NewTaxProfileHandler() *TaxProfileHandler {
	return &TaxProfileHandler{}
}

func (h *TaxProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	profile, err := model.GetTaxProfileByUserID(userID)
	if err != nil {
		logger.L.Error("Error loading tax profile", "userID", userID, "error", err)
		sendJSONError(w, "Error loading tax profile", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, profile, http.StatusOK)
}

func (h *TaxProfileHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	var profile models.TaxProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	profile.UserID = userID

	if err := model.UpsertTaxProfile(&profile); err != nil {
		logger.L.Error("Error saving tax profile", "userID", userID, "error", err)
		sendJSONError(w, "Error saving tax profile", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Tax profile updated", "userID", userID, "filingStatus", profile.FilingStatus, "taxYear", profile.TaxYear)
	utils.SendJSON(w, profile, http.StatusOK)
}

// HandleGetBrackets returns the bracket tables and applicable rates for the
// user's saved profile.
func (h *TaxProfileHandler) HandleGetBrackets(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	profile, err := model.GetTaxProfileByUserID(userID)
	if err != nil {
		logger.L.Error("Error loading tax profile for brackets", "userID", userID, "error", err)
		sendJSONError(w, "Error loading tax profile", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, processors.GetBracketSummary(*profile), http.StatusOK)
}
