package services

import (
	"context"
	"errors"
	"io"

	"github.com/username/optionstaxhub/backend/src/models"
)

var (
	ErrAnalysisNotFound = errors.New("analysis not found")
	ErrEmptyFile        = errors.New("uploaded file is empty")
)

// PriceService returns current prices for a set of symbols. fallback maps
// symbol to a caller-provided price used when no live quote is available.
// The warnings describe every degradation; the method itself never fails.
type PriceService interface {
	FetchPrices(symbols []string, fallback map[string]float64) (map[string]float64, []string)
}

// AdvisorService produces replacement suggestions and explanations for
// anonymized loss positions. A nil map means the advisor is unavailable and
// the caller should use its static fallbacks.
type AdvisorService interface {
	Suggest(ctx context.Context, positions []models.AdvisorPosition) map[string]models.AdvisorSuggestion
}

// AnalysisService runs the full portfolio analysis pipeline for one upload.
type AnalysisService interface {
	AnalyzePortfolio(ctx context.Context, fileReader io.Reader, filename string, userID int64) (*models.PortfolioAnalysis, error)
	GetLatestAnalysis(userID int64) (*models.PortfolioAnalysis, error)
}

// HistoryService persists and retrieves past analyses, scoped per user.
type HistoryService interface {
	SaveAnalysis(userID int64, filename string, analysis *models.PortfolioAnalysis) (*models.AnalysisRecord, error)
	ListAnalyses(userID int64) ([]models.AnalysisRecord, error)
	GetAnalysis(userID int64, analysisID string) (*models.AnalysisRecord, error)
	DeleteAnalysis(userID int64, analysisID string) error
}

// NotificationService delivers best-effort user notifications. Failures are
// logged, never propagated.
type NotificationService interface {
	SendAnalysisSummary(ctx context.Context, email string, analysis *models.PortfolioAnalysis) error
}
