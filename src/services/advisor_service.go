package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/username/optionstaxhub/backend/src/config"
	"github.com/username/optionstaxhub/backend/src/logger"
	"github.com/username/optionstaxhub/backend/src/models"
)

const advisorSystemPrompt = `You are a tax-loss harvesting advisor for a portfolio analysis tool.
Your role is to suggest replacement securities and explain harvesting strategies.

IMPORTANT RULES:
1. ALWAYS include a disclaimer that this is for educational/simulation purposes only,
   not financial or tax advice.
2. Replacement securities must NOT be "substantially identical" to the original
   to avoid triggering IRS wash-sale rules. ETFs tracking the same narrow index
   as the stock being sold should be avoided.
3. Focus on maintaining similar market exposure (sector, risk profile) while
   ensuring the replacement is clearly different from a wash-sale perspective.
4. Explain your reasoning in plain, accessible English suitable for DIY retail traders.
5. Consider both short-term and long-term tax implications in your analysis.

You will receive portfolio positions with unrealized losses. For each position, provide:
- 2-3 replacement securities (ticker, full name, and reason it's safe from wash-sale rules)
- A plain-English explanation of why harvesting this loss is beneficial
- Priority reasoning relative to other positions

Respond in valid JSON format only.`

type advisorReplacement struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type advisorEntry struct {
	Replacements      []advisorReplacement `json:"replacements"`
	Explanation       string               `json:"explanation"`
	PriorityReasoning string               `json:"priority_reasoning"`
}

type advisorResponse struct {
	Suggestions map[string]advisorEntry `json:"suggestions"`
}

// advisorServiceImpl enriches harvesting suggestions via Google Gemini.
// Only anonymized position data leaves the server; any failure degrades to
// the static fallback table by returning nil.
type advisorServiceImpl struct {
	client *genai.Client
	model  string
}

// NewAdvisorService creates the Gemini-backed advisor. Returns a disabled
// service (always nil suggestions) when no API key is configured.
func NewAdvisorService(ctx context.Context) AdvisorService {
	if config.Cfg.GeminiAPIKey == "" {
		logger.L.Warn("GEMINI_API_KEY not set. Falling back to hardcoded replacement mappings.")
		return &advisorServiceImpl{}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.Cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		logger.L.Error("Failed to create Gemini client. AI suggestions disabled.", "error", err)
		return &advisorServiceImpl{}
	}

	return &advisorServiceImpl{
		client: client,
		model:  config.Cfg.GeminiModel,
	}
}

// Suggest asks Gemini for replacement candidates and explanations for the
// given loss positions. Returns nil whenever the advisor cannot help.
func (s *advisorServiceImpl) Suggest(ctx context.Context, positions []models.AdvisorPosition) map[string]models.AdvisorSuggestion {
	if s.client == nil || len(positions) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, config.Cfg.AdvisorTimeout)
	defer cancel()

	prompt, err := buildAdvisorPrompt(positions)
	if err != nil {
		logger.L.Error("Failed to build advisor prompt", "error", err)
		return nil
	}

	temperature := float32(0.3)
	result, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(advisorSystemPrompt, genai.RoleUser),
		Temperature:       &temperature,
		MaxOutputTokens:   4096,
	})
	if err != nil {
		logger.L.Error("AI advisor request failed", "error", err)
		return nil
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		logger.L.Warn("Gemini returned empty response")
		return nil
	}

	parsed, err := parseAdvisorResponse(text)
	if err != nil {
		logger.L.Error("Failed to parse AI response as JSON", "error", err)
		return nil
	}
	if len(parsed) == 0 {
		logger.L.Warn("AI response missing suggestions")
		return nil
	}

	logger.L.Info("AI suggestions received", "positions", len(parsed))
	return parsed
}

func buildAdvisorPrompt(positions []models.AdvisorPosition) (string, error) {
	positionsJSON, err := json.MarshalIndent(positions, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`Analyze these portfolio positions that have unrealized losses and provide
tax-loss harvesting recommendations.

Positions with unrealized losses:
%s

For each position, provide your response in this exact JSON structure:
{
  "suggestions": {
    "<SYMBOL>": {
      "replacements": [
        {
          "symbol": "<TICKER>",
          "name": "<FULL_NAME>",
          "reason": "<WHY_NOT_SUBSTANTIALLY_IDENTICAL>"
        }
      ],
      "explanation": "<PLAIN_ENGLISH_EXPLANATION_OF_WHY_TO_HARVEST>",
      "priority_reasoning": "<WHY_THIS_PRIORITY_VS_OTHERS>"
    }
  },
  "overall_strategy": "<BRIEF_OVERALL_HARVESTING_STRATEGY>",
  "disclaimer": "This analysis is for educational and simulation purposes only. It does not constitute financial, tax, or investment advice. Consult a qualified tax professional."
}

Provide 2-3 replacement candidates per position. Ensure replacements are NOT substantially
identical to avoid wash-sale rule violations.`, string(positionsJSON)), nil
}

// parseAdvisorResponse decodes the model output, tolerating markdown code
// fences around the JSON body.
func parseAdvisorResponse(text string) (map[string]models.AdvisorSuggestion, error) {
	if strings.HasPrefix(text, "```") {
		var kept []string
		for _, line := range strings.Split(text, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				continue
			}
			kept = append(kept, line)
		}
		text = strings.Join(kept, "\n")
	}

	var resp advisorResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, err
	}

	suggestions := make(map[string]models.AdvisorSuggestion, len(resp.Suggestions))
	for symbol, entry := range resp.Suggestions {
		symbol = strings.ToUpper(symbol)
		s := models.AdvisorSuggestion{
			Symbol:      symbol,
			Explanation: entry.Explanation,
		}
		for _, r := range entry.Replacements {
			s.Replacements = append(s.Replacements, models.ReplacementCandidate{
				Symbol: strings.ToUpper(r.Symbol),
				Name:   r.Name,
				Reason: r.Reason,
			})
		}
		suggestions[symbol] = s
	}
	return suggestions, nil
}

// PreparePositionsForAdvisor builds the anonymized advisor payload from
// computed tax lots with unrealized losses.
func PreparePositionsForAdvisor(lots []*models.TaxLot) []models.AdvisorPosition {
	var positions []models.AdvisorPosition
	for _, lot := range lots {
		if lot.UnrealizedPnL == nil || *lot.UnrealizedPnL >= 0 {
			continue
		}
		positions = append(positions, models.AdvisorPosition{
			Symbol:            lot.Symbol,
			Quantity:          lot.Quantity,
			CostBasisPerShare: lot.CostBasisPerShare,
			CurrentPrice:      lot.CurrentPrice,
			UnrealizedPnL:     *lot.UnrealizedPnL,
			HoldingPeriodDays: lot.HoldingPeriodDays,
			IsLongTerm:        lot.IsLongTerm,
		})
	}
	return positions
}
