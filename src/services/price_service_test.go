package services

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/optionstaxhub/backend/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func newTestPriceService(fetch quoteFetcher, disabled bool) (*priceServiceImpl, *cache.Cache) {
	c := cache.New(5*time.Minute, 10*time.Minute)
	s := &priceServiceImpl{
		cache:    c,
		disabled: disabled,
		fetch:    fetch,
	}
	return s, c
}

func TestFetchPricesFromLiveQuotes(t *testing.T) {
	var fetchedSymbols []string
	s, _ := newTestPriceService(func(symbols []string) (map[string]float64, error) {
		fetchedSymbols = symbols
		return map[string]float64{"AAPL": 135.456, "MSFT": 420.0}, nil
	}, false)

	prices, warnings := s.FetchPrices([]string{"aapl", "MSFT", " aapl "}, nil)

	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, fetchedSymbols, "symbols deduped and uppercased")
	assert.Equal(t, 135.46, prices["AAPL"], "prices rounded to cents")
	assert.Equal(t, 420.0, prices["MSFT"])
	assert.Empty(t, warnings)
}

func TestFetchPricesUsesCache(t *testing.T) {
	fetchCalls := 0
	s, c := newTestPriceService(func(symbols []string) (map[string]float64, error) {
		fetchCalls++
		return map[string]float64{"AAPL": 100.0}, nil
	}, false)
	c.Set("AAPL", 99.0, cache.DefaultExpiration)

	prices, warnings := s.FetchPrices([]string{"AAPL"}, nil)

	assert.Equal(t, 0, fetchCalls, "cached symbol never hits the fetcher")
	assert.Equal(t, 99.0, prices["AAPL"])
	assert.Empty(t, warnings)
}

func TestFetchPricesCachesFetchedQuotes(t *testing.T) {
	s, c := newTestPriceService(func(symbols []string) (map[string]float64, error) {
		return map[string]float64{"AAPL": 135.0}, nil
	}, false)

	s.FetchPrices([]string{"AAPL"}, nil)

	cached, ok := c.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 135.0, cached.(float64))
}

func TestFetchPricesFallsBackOnFetchError(t *testing.T) {
	s, _ := newTestPriceService(func(symbols []string) (map[string]float64, error) {
		return nil, errors.New("boom")
	}, false)

	prices, warnings := s.FetchPrices([]string{"AAPL"}, map[string]float64{"AAPL": 150.0})

	assert.Equal(t, 150.0, prices["AAPL"])
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "Could not fetch live prices")
	assert.Equal(t, "Using CSV-provided price for AAPL (live price unavailable)", warnings[1])
}

func TestFetchPricesFallsBackForSymbolsYahooOmits(t *testing.T) {
	s, _ := newTestPriceService(func(symbols []string) (map[string]float64, error) {
		return map[string]float64{"AAPL": 135.0}, nil
	}, false)

	prices, warnings := s.FetchPrices(
		[]string{"AAPL", "PRIVATECO"},
		map[string]float64{"PRIVATECO": 10.0},
	)

	assert.Equal(t, 135.0, prices["AAPL"])
	assert.Equal(t, 10.0, prices["PRIVATECO"])
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "PRIVATECO")
}

func TestFetchPricesReportsMissingSymbolsSorted(t *testing.T) {
	s, _ := newTestPriceService(func(symbols []string) (map[string]float64, error) {
		return nil, nil
	}, false)

	prices, warnings := s.FetchPrices([]string{"ZZZ", "AAA"}, nil)

	assert.Empty(t, prices)
	require.Len(t, warnings, 1)
	assert.Equal(t, "No prices available for: AAA, ZZZ", warnings[0])
}

func TestFetchPricesDisabled(t *testing.T) {
	s, _ := newTestPriceService(func(symbols []string) (map[string]float64, error) {
		t.Fatal("fetcher must not be called when disabled")
		return nil, nil
	}, true)

	prices, warnings := s.FetchPrices([]string{"AAPL"}, map[string]float64{"AAPL": 150.0})

	assert.Equal(t, 150.0, prices["AAPL"])
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "disabled")
}

func TestFetchPricesEmptyInput(t *testing.T) {
	s, _ := newTestPriceService(nil, false)

	prices, warnings := s.FetchPrices(nil, nil)

	assert.Empty(t, prices)
	assert.Empty(t, warnings)
}
