package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/username/optionstaxhub/backend/src/config"
	"github.com/username/optionstaxhub/backend/src/logger"
	"github.com/username/optionstaxhub/backend/src/models"
)

// NewNotificationService picks Mailgun when configured, otherwise a mock
// that only logs. Notification failures never fail an analysis.
func NewNotificationService() NotificationService {
	if !config.Cfg.NotificationsEnabled {
		logger.L.Info("Notifications disabled. Using mock notification service.")
		return &MockNotificationService{}
	}
	if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" {
		logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, or SenderEmail missing). Falling back to mock notification service.")
		return &MockNotificationService{}
	}

	mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
	logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
	return &MailgunNotificationService{
		mg:          mg,
		senderEmail: config.Cfg.SenderEmail,
		senderName:  config.Cfg.SenderName,
	}
}

type MailgunNotificationService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
}

func (s *MailgunNotificationService) SendAnalysisSummary(ctx context.Context, email string, analysis *models.PortfolioAnalysis) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	subject := "Your Portfolio Analysis Is Ready"

	summary := analysis.Summary
	plainTextBody := fmt.Sprintf(`Hi,

Your portfolio analysis has finished.

Positions analyzed: %d
Total market value: $%.2f
Harvestable losses: $%.2f
Estimated tax savings: $%.2f
Wash sale flags: %d

%s

Thanks,
The OptionsTaxHub Team`,
		summary.PositionsCount,
		summary.TotalMarketValue,
		summary.TotalHarvestableLosses,
		summary.EstimatedTaxSavings,
		summary.WashSaleFlagsCount,
		models.Disclaimer,
	)

	message := s.mg.NewMessage(from, subject, plainTextBody, email)
	message.AddTag("analysis-summary")

	ctx, cancel := context.WithTimeout(ctx, time.Second*20)
	defer cancel()

	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send analysis summary via Mailgun", "error", err, "to", email, "mailgunResp", resp, "mailgunId", id)
		return fmt.Errorf("mailgun send failed: %w", err)
	}
	logger.L.Info("Analysis summary sent via Mailgun", "to", email, "id", id)
	return nil
}

type MockNotificationService struct{}

func (m *MockNotificationService) SendAnalysisSummary(ctx context.Context, email string, analysis *models.PortfolioAnalysis) error {
	logger.L.Info("MockNotificationService: Would send analysis summary.",
		"to", email,
		"positions", analysis.Summary.PositionsCount,
		"estimatedTaxSavings", analysis.Summary.EstimatedTaxSavings)
	return nil
}
