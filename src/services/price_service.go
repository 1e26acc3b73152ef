package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"sort"
	"strings"

	"github.com/patrickmn/go-cache"
	"golang.org/x/net/publicsuffix"

	"github.com/username/optionstaxhub/backend/src/config"
	"github.com/username/optionstaxhub/backend/src/logger"
	"github.com/username/optionstaxhub/backend/src/utils"
)

const yahooUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string  `json:"symbol"`
			RegularMarketPrice float64 `json:"regularMarketPrice"`
			Currency           string  `json:"currency"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteResponse"`
}

// quoteFetcher fetches live quotes for a batch of symbols. Swappable in tests.
type quoteFetcher func(symbols []string) (map[string]float64, error)

// priceServiceImpl fetches quotes from Yahoo Finance behind a TTL cache.
// Yahoo's v7 quote endpoint needs a session cookie plus a crumb, so the
// client keeps a cookie jar and scrapes the crumb once at startup.
type priceServiceImpl struct {
	httpClient *http.Client
	crumb      string
	cache      *cache.Cache
	disabled   bool
	fetch      quoteFetcher
}

// NewPriceService creates a price service with a fresh Yahoo session. When
// price fetching is disabled in config, only fallback prices are served.
func NewPriceService(priceCache *cache.Cache) PriceService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	s := &priceServiceImpl{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: config.Cfg.PriceFetchTimeout,
		},
		cache:    priceCache,
		disabled: config.Cfg.PriceFetchDisabled,
	}
	s.fetch = s.fetchQuotesFromYahoo

	if !s.disabled {
		if err := s.initializeYahooSession(); err != nil {
			logger.L.Error("Failed to initialize Yahoo Finance session. Price fetching may fail.", "error", err)
		}
	}
	return s
}

// initializeYahooSession visits a quote page to collect cookies and the crumb.
func (s *priceServiceImpl) initializeYahooSession() error {
	logger.L.Info("Initializing Yahoo Finance session to get crumb and cookies...")
	req, err := http.NewRequest("GET", "https://finance.yahoo.com/quote/VHYL.L", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", yahooUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make initial request to Yahoo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Yahoo response body: %w", err)
	}

	re := regexp.MustCompile(`"CrumbStore":{"crumb":"(.*?)"}`)
	matches := re.FindStringSubmatch(string(body))
	if len(matches) < 2 {
		return fmt.Errorf("could not find crumb in Yahoo Finance response. The page structure may have changed")
	}

	s.crumb = matches[1]
	logger.L.Info("Successfully obtained Yahoo Finance crumb.")
	return nil
}

// FetchPrices returns a price for as many of the requested symbols as
// possible: cache first, then a live batch quote, then the fallback map.
// Every degradation adds a warning; the call itself never fails.
func (s *priceServiceImpl) FetchPrices(symbols []string, fallback map[string]float64) (map[string]float64, []string) {
	prices := make(map[string]float64)
	var warnings []string
	if len(symbols) == 0 {
		return prices, warnings
	}

	var toFetch []string
	seen := make(map[string]bool)
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true

		if cached, ok := s.cache.Get(symbol); ok {
			prices[symbol] = cached.(float64)
			continue
		}
		toFetch = append(toFetch, symbol)
	}

	if len(toFetch) > 0 {
		if s.disabled {
			warnings = append(warnings, "Live price fetching is disabled. Using CSV-provided prices.")
		} else {
			fetched, err := s.fetch(toFetch)
			if err != nil {
				logger.L.Error("Yahoo Finance fetch failed", "error", err)
				warnings = append(warnings,
					fmt.Sprintf("Could not fetch live prices from Yahoo Finance: %v. Using CSV-provided prices as fallback.", err))
			}
			for symbol, price := range fetched {
				prices[symbol] = utils.RoundCents(price)
				s.cache.Set(symbol, prices[symbol], cache.DefaultExpiration)
			}
		}
	}

	for symbol := range seen {
		if _, ok := prices[symbol]; ok {
			continue
		}
		if fb, ok := fallback[symbol]; ok {
			prices[symbol] = fb
			warnings = append(warnings,
				fmt.Sprintf("Using CSV-provided price for %s (live price unavailable)", symbol))
		}
	}

	var missing []string
	for symbol := range seen {
		if _, ok := prices[symbol]; !ok {
			missing = append(missing, symbol)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		warnings = append(warnings, fmt.Sprintf("No prices available for: %s", strings.Join(missing, ", ")))
	}

	return prices, warnings
}

// fetchQuotesFromYahoo hits the v7 batch quote endpoint with the crumb.
func (s *priceServiceImpl) fetchQuotesFromYahoo(symbols []string) (map[string]float64, error) {
	if s.crumb == "" {
		logger.L.Warn("Yahoo crumb is missing, attempting to re-initialize session.")
		if err := s.initializeYahooSession(); err != nil {
			return nil, fmt.Errorf("failed to re-initialize Yahoo session: %w", err)
		}
	}

	quoteURL := fmt.Sprintf("https://query2.finance.yahoo.com/v7/finance/quote?symbols=%s&crumb=%s",
		strings.Join(symbols, ","), s.crumb)
	req, err := http.NewRequest("GET", quoteURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", yahooUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Yahoo quote API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("yahoo quote API returned non-OK status %d. Body: %s", resp.StatusCode, string(bodyBytes))
	}

	var quoteData yahooQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quoteData); err != nil {
		return nil, fmt.Errorf("failed to decode Yahoo quote response: %w", err)
	}
	if quoteData.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("yahoo quote API returned an error for symbols %s", strings.Join(symbols, ","))
	}

	result := make(map[string]float64, len(quoteData.QuoteResponse.Result))
	for _, q := range quoteData.QuoteResponse.Result {
		if q.RegularMarketPrice > 0 {
			result[strings.ToUpper(q.Symbol)] = q.RegularMarketPrice
		}
	}
	return result, nil
}
