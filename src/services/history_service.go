package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/username/optionstaxhub/backend/src/database"
	"github.com/username/optionstaxhub/backend/src/logger"
	"github.com/username/optionstaxhub/backend/src/models"
)

// historyServiceImpl stores analysis snapshots in SQLite. The summary and
// the full result are serialized as JSON columns; listing only decodes the
// summary.
type historyServiceImpl struct{}

func NewHistoryService() HistoryService {
	return &historyServiceImpl{}
}

func (s *historyServiceImpl) SaveAnalysis(userID int64, filename string, analysis *models.PortfolioAnalysis) (*models.AnalysisRecord, error) {
	record := &models.AnalysisRecord{
		ID:               uuid.NewString(),
		UserID:           userID,
		Filename:         filename,
		UploadedAt:       time.Now().UTC(),
		Summary:          analysis.Summary,
		PositionsCount:   analysis.Summary.PositionsCount,
		TotalMarketValue: analysis.Summary.TotalMarketValue,
	}

	summaryJSON, err := json.Marshal(analysis.Summary)
	if err != nil {
		return nil, fmt.Errorf("marshaling analysis summary: %w", err)
	}
	resultJSON, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("marshaling analysis result: %w", err)
	}

	_, err = database.DB.Exec(
		`INSERT INTO portfolio_analyses (id, user_id, filename, uploaded_at, summary, positions_count, total_market_value, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.UserID, record.Filename, record.UploadedAt.Format(time.RFC3339),
		string(summaryJSON), record.PositionsCount, record.TotalMarketValue, string(resultJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting analysis record: %w", err)
	}

	logger.L.Info("Analysis saved to history", "analysisID", record.ID, "userID", userID, "filename", filename)
	return record, nil
}

func (s *historyServiceImpl) ListAnalyses(userID int64) ([]models.AnalysisRecord, error) {
	rows, err := database.DB.Query(
		`SELECT id, user_id, filename, uploaded_at, summary, positions_count, total_market_value
		 FROM portfolio_analyses WHERE user_id = ? ORDER BY uploaded_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying analysis history: %w", err)
	}
	defer rows.Close()

	var records []models.AnalysisRecord
	for rows.Next() {
		record, err := scanAnalysisRow(rows.Scan, false)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (s *historyServiceImpl) GetAnalysis(userID int64, analysisID string) (*models.AnalysisRecord, error) {
	row := database.DB.QueryRow(
		`SELECT id, user_id, filename, uploaded_at, summary, positions_count, total_market_value, result
		 FROM portfolio_analyses WHERE id = ? AND user_id = ?`,
		analysisID, userID,
	)
	record, err := scanAnalysisRow(row.Scan, true)
	if err == sql.ErrNoRows {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying analysis %s: %w", analysisID, err)
	}
	return record, nil
}

func (s *historyServiceImpl) DeleteAnalysis(userID int64, analysisID string) error {
	result, err := database.DB.Exec(
		`DELETE FROM portfolio_analyses WHERE id = ? AND user_id = ?`,
		analysisID, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting analysis %s: %w", analysisID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAnalysisNotFound
	}
	logger.L.Info("Analysis deleted from history", "analysisID", analysisID, "userID", userID)
	return nil
}

func scanAnalysisRow(scan func(dest ...any) error, withResult bool) (*models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	var uploadedAt, summaryJSON string
	var resultJSON sql.NullString

	dest := []any{&record.ID, &record.UserID, &record.Filename, &uploadedAt, &summaryJSON, &record.PositionsCount, &record.TotalMarketValue}
	if withResult {
		dest = append(dest, &resultJSON)
	}
	if err := scan(dest...); err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, uploadedAt); err == nil {
		record.UploadedAt = t
	}
	if err := json.Unmarshal([]byte(summaryJSON), &record.Summary); err != nil {
		logger.L.Warn("Failed to decode stored analysis summary", "analysisID", record.ID, "error", err)
	}
	if withResult && resultJSON.Valid {
		var analysis models.PortfolioAnalysis
		if err := json.Unmarshal([]byte(resultJSON.String), &analysis); err != nil {
			return nil, fmt.Errorf("decoding stored analysis %s: %w", record.ID, err)
		}
		record.Result = &analysis
	}
	return &record, nil
}
