package handlers

import (
	"errors"
	"net/http"

	"github.com/username/optionstaxhub/backend/src/logger"
	"github.com/username/optionstaxhub/backend/src/models"
	"github.com/username/optionstaxhub/backend/src/services"
	"github.com/username/optionstaxhub/backend/src/utils"
)

type HistoryHandler struct {
	historyService services.HistoryService
}

func NewHistoryHandler(historyService services.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

func (h *HistoryHandler) HandleListAnalyses(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	records, err := h.historyService.ListAnalyses(userID)
	if err != nil {
		logger.L.Error("Error listing analysis history", "userID", userID, "error", err)
		sendJSONError(w, "Error retrieving analysis history", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.AnalysisRecord{}
	}
	utils.SendJSON(w, records, http.StatusOK)
}

func (h *HistoryHandler) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	analysisID := r.PathValue("id")
	record, err := h.historyService.GetAnalysis(userID, analysisID)
	if err != nil {
		if errors.Is(err, services.ErrAnalysisNotFound) {
			sendJSONError(w, "Analysis not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Error retrieving analysis", "userID", userID, "analysisID", analysisID, "error", err)
		sendJSONError(w, "Error retrieving analysis", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, record, http.StatusOK)
}

func (h *HistoryHandler) HandleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	analysisID := r.PathValue("id")
	if err := h.historyService.DeleteAnalysis(userID, analysisID); err != nil {
		if errors.Is(err, services.ErrAnalysisNotFound) {
			sendJSONError(w, "Analysis not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Error deleting analysis", "userID", userID, "analysisID", analysisID, "error", err)
		sendJSONError(w, "Error deleting analysis", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "analysis deleted"}, http.StatusOK)
}
