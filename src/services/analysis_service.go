package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/username/optionstaxhub/backend/src/logger"
	"github.com/username/optionstaxhub/backend/src/model"
	"github.com/username/optionstaxhub/backend/src/models"
	"github.com/username/optionstaxhub/backend/src/parsers"
	"github.com/username/optionstaxhub/backend/src/processors"
)

const (
	ckLatestAnalysis = "latest_analysis_user_%d"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type analysisServiceImpl struct {
	parser              parsers.Parser
	lotProcessor        *processors.LotProcessor
	washSaleProcessor   *processors.WashSaleProcessor
	harvestingProcessor *processors.HarvestingProcessor
	priceService        PriceService
	advisorService      AdvisorService
	historyService      HistoryService
	reportCache         *cache.Cache
}

func NewAnalysisService(
	priceService PriceService,
	advisorService AdvisorService,
	historyService HistoryService,
	reportCache *cache.Cache,
) AnalysisService {
	return &analysisServiceImpl{
		parser:              parsers.NewCSVParser(),
		lotProcessor:        processors.NewLotProcessor(),
		washSaleProcessor:   processors.NewWashSaleProcessor(),
		harvestingProcessor: processors.NewHarvestingProcessor(),
		priceService:        priceService,
		advisorService:      advisorService,
		historyService:      historyService,
		reportCache:         reportCache,
	}
}

// AnalyzePortfolio runs the full pipeline for one CSV upload: parse,
// FIFO lot aggregation, wash-sale detection and adjustment, price fill,
// metric computation, position aggregation, suggestion ranking and capping,
// and summary totals. Collaborator failures (prices, advisor, history,
// notifications) degrade to warnings; only unusable input fails the call.
func (s *analysisServiceImpl) AnalyzePortfolio(ctx context.Context, fileReader io.Reader, filename string, userID int64) (*models.PortfolioAnalysis, error) {
	startTime := time.Now()
	logger.L.Info("Starting portfolio analysis", "userID", userID, "filename", filename)

	parseResult, err := s.parser.Parse(fileReader)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	analysis := &models.PortfolioAnalysis{
		Disclaimer:    models.Disclaimer,
		Errors:        []string{},
		Warnings:      []string{},
		Positions:     []models.Position{},
		TaxLots:       []*models.TaxLot{},
		Suggestions:   []models.HarvestingSuggestion{},
		WashSaleFlags: []models.WashSaleFlag{},
	}
	analysis.Errors = append(analysis.Errors, parseResult.Issues...)

	profile, err := model.GetTaxProfileByUserID(userID)
	if err != nil {
		logger.L.Warn("Failed to load tax profile, using defaults", "userID", userID, "error", err)
		defaultProfile := models.DefaultTaxProfile()
		profile = &defaultProfile
	}
	analysis.TaxProfile = profile

	// Transaction-format uploads need FIFO aggregation; lot-format uploads
	// arrive as ready-made lots.
	lots := parseResult.TaxLots
	if len(parseResult.Transactions) > 0 {
		aggregated, warnings := s.lotProcessor.Process(parseResult.Transactions)
		lots = append(aggregated, lots...)
		analysis.Warnings = append(analysis.Warnings, warnings...)
	}

	if len(lots) == 0 && len(parseResult.Transactions) == 0 {
		return nil, ErrEmptyFile
	}

	flags := s.washSaleProcessor.DetectWashSales(parseResult.Transactions)
	analysis.WashSaleFlags = flags
	lots = s.washSaleProcessor.AdjustLots(lots, flags)

	s.fillCurrentPrices(lots, analysis)

	referenceDate := time.Now()
	lots = s.harvestingProcessor.ComputeLotMetrics(lots, referenceDate)
	analysis.TaxLots = lots
	analysis.Positions = s.harvestingProcessor.AggregatePositions(lots)

	var advisorSuggestions map[string]models.AdvisorSuggestion
	if profile.AISuggestionsEnabled {
		advisorSuggestions = s.advisorService.Suggest(ctx, PreparePositionsForAdvisor(lots))
		if advisorSuggestions == nil {
			analysis.Warnings = append(analysis.Warnings,
				"AI suggestions unavailable. Using static replacement candidates.")
		}
	}

	suggestions := s.harvestingProcessor.GenerateSuggestions(lots, parseResult.Transactions, *profile, advisorSuggestions, referenceDate)
	suggestions = s.harvestingProcessor.CapSuggestionsToTarget(suggestions, parseResult.Transactions, *profile, referenceDate)
	analysis.Suggestions = suggestions
	analysis.Summary = s.harvestingProcessor.BuildSummary(analysis.Positions, suggestions, flags)

	if _, err := s.historyService.SaveAnalysis(userID, filename, analysis); err != nil {
		logger.L.Error("Failed to save analysis to history", "userID", userID, "error", err)
		analysis.Warnings = append(analysis.Warnings, "Analysis could not be saved to history.")
	}

	s.reportCache.Set(fmt.Sprintf(ckLatestAnalysis, userID), analysis, cache.DefaultExpiration)

	logger.L.Info("Portfolio analysis complete",
		"userID", userID,
		"positions", analysis.Summary.PositionsCount,
		"suggestions", len(suggestions),
		"washSaleFlags", len(flags),
		"durationMs", time.Since(startTime).Milliseconds())
	return analysis, nil
}

// GetLatestAnalysis returns the most recent analysis for a user, from the
// report cache when fresh, otherwise from history.
func (s *analysisServiceImpl) GetLatestAnalysis(userID int64) (*models.PortfolioAnalysis, error) {
	if cached, found := s.reportCache.Get(fmt.Sprintf(ckLatestAnalysis, userID)); found {
		if analysis, ok := cached.(*models.PortfolioAnalysis); ok {
			return analysis, nil
		}
	}

	records, err := s.historyService.ListAnalyses(userID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrAnalysisNotFound
	}

	record, err := s.historyService.GetAnalysis(userID, records[0].ID)
	if err != nil {
		return nil, err
	}
	if record.Result == nil {
		return nil, ErrAnalysisNotFound
	}
	return record.Result, nil
}

// fillCurrentPrices resolves a quote for every symbol, preferring live data
// and falling back to CSV-provided prices. Lots without any price keep a nil
// CurrentPrice and are skipped by the metric computation.
func (s *analysisServiceImpl) fillCurrentPrices(lots []*models.TaxLot, analysis *models.PortfolioAnalysis) {
	var symbols []string
	fallback := make(map[string]float64)
	seen := make(map[string]bool)
	for _, lot := range lots {
		symbol := strings.ToUpper(lot.Symbol)
		if !seen[symbol] {
			seen[symbol] = true
			symbols = append(symbols, symbol)
		}
		if lot.CurrentPrice != nil {
			fallback[symbol] = *lot.CurrentPrice
		}
	}
	if len(symbols) == 0 {
		return
	}

	prices, warnings := s.priceService.FetchPrices(symbols, fallback)
	analysis.Warnings = append(analysis.Warnings, warnings...)

	for _, lot := range lots {
		if price, ok := prices[strings.ToUpper(lot.Symbol)]; ok {
			p := price
			lot.CurrentPrice = &p
		}
	}
}
