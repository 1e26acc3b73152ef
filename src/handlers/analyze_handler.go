package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/username/optionstaxhub/backend/src/config"
	"github.com/username/optionstaxhub/backend/src/database"
	"github.com/username/optionstaxhub/backend/src/logger"
	"github.com/username/optionstaxhub/backend/src/model"
	"github.com/username/optionstaxhub/backend/src/models"
	"github.com/username/optionstaxhub/backend/src/security/validation"
	"github.com/username/optionstaxhub/backend/src/services"
	"github.com/username/optionstaxhub/backend/src/utils"
)

type AnalyzeHandler struct {
	analysisService services.AnalysisService
	notifier        services.NotificationService
}

func NewAnalyzeHandler(analysisService services.AnalysisService, notifier services.NotificationService) *AnalyzeHandler {
	return &AnalyzeHandler{
		analysisService: analysisService,
		notifier:        notifier,
	}
}

// HandleAnalyze accepts a multipart CSV upload and returns the full
// portfolio analysis.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "userID", userID, "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		sendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "userID", userID, "error", err)
		sendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		logger.L.Warn("Uploaded file too large", "userID", userID, "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		sendJSONError(w, fmt.Sprintf("File too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	filename := validation.SanitizeForFormulaInjection(validation.StripUnprintable(fileHeader.Filename))
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		sendJSONError(w, "Only .csv files are supported", http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		logger.L.Warn("Invalid client-declared file type", "userID", userID, "contentType", clientContentType, "error", err)
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := validation.ValidateFileContentByMagicBytes(file); err != nil {
		logger.L.Warn("Server-side file content validation failed", "userID", userID, "filename", filename, "error", err)
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	analysis, err := h.analysisService.AnalyzePortfolio(r.Context(), file, filename, userID)
	if err != nil {
		if errors.Is(err, services.ErrEmptyFile) {
			sendJSONError(w, "No transactions or positions found in the uploaded file", http.StatusBadRequest)
			return
		}
		logger.L.Error("Internal error during portfolio analysis", "userID", userID, "filename", filename, "error", err)
		sendJSONError(w, "An internal error occurred while analyzing the file. Please try again later.", http.StatusInternalServerError)
		return
	}

	h.notifyBestEffort(userID, analysis)
	utils.SendJSON(w, analysis, http.StatusOK)
}

// HandleGetLatest returns the most recent analysis for the user.
func (h *AnalyzeHandler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	analysis, err := h.analysisService.GetLatestAnalysis(userID)
	if err != nil {
		if errors.Is(err, services.ErrAnalysisNotFound) {
			sendJSONError(w, "No analysis found. Upload a CSV first.", http.StatusNotFound)
			return
		}
		logger.L.Error("Error retrieving latest analysis", "userID", userID, "error", err)
		sendJSONError(w, "Error retrieving latest analysis", http.StatusInternalServerError)
		return
	}

	etag, etagErr := utils.GenerateETag(analysis)
	if etagErr == nil {
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Cache-Control", "no-cache, private")
	utils.SendJSON(w, analysis, http.StatusOK)
}

// notifyBestEffort emails the analysis summary in the background. Failures
// are logged only.
func (h *AnalyzeHandler) notifyBestEffort(userID int64, analysis *models.PortfolioAnalysis) {
	user, err := model.GetUserByID(database.DB, userID)
	if err != nil || user.Email == "" {
		return
	}
	go func() {
		if err := h.notifier.SendAnalysisSummary(context.Background(), user.Email, analysis); err != nil {
			logger.L.Warn("Analysis summary notification failed", "userID", userID, "error", err)
		}
	}()
}
