package parsers

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/optionstaxhub/backend/src/logger"
	"github.com/username/optionstaxhub/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

const robinhoodHeader = `"Activity Date","Process Date","Settle Date","Instrument","Description","Trans Code","Quantity","Price","Amount"`

func parseCSV(t *testing.T, content string) *ParseResult {
	t.Helper()
	result, err := NewCSVParser().Parse(strings.NewReader(content))
	require.NoError(t, err)
	return result
}

func TestParseRobinhoodFormat(t *testing.T) {
	content := robinhoodHeader + "\n" +
		`"3/14/2025","3/14/2025","3/17/2025","AAPL","Apple","Buy","10","$150.00","($1,500.00)"` + "\n" +
		`"4/1/2025","4/1/2025","4/2/2025","AAPL","Apple","Sell","4","$160.00","$640.00"`

	result := parseCSV(t, content)
	require.Len(t, result.Transactions, 2)
	assert.Empty(t, result.Issues)
	assert.Empty(t, result.TaxLots)

	buyTxn := result.Transactions[0]
	assert.Equal(t, "AAPL", buyTxn.Instrument)
	assert.Equal(t, models.TransCodeBuy, buyTxn.TransCode)
	assert.Equal(t, 10.0, buyTxn.Quantity)
	assert.Equal(t, 150.0, buyTxn.Price)
	assert.Equal(t, -1500.0, buyTxn.Amount)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), buyTxn.ActivityDate)
	assert.Equal(t, models.AssetTypeStock, buyTxn.AssetType)

	sellTxn := result.Transactions[1]
	assert.Equal(t, models.TransCodeSell, sellTxn.TransCode)
	assert.Equal(t, 640.0, sellTxn.Amount)
}

func TestParseRobinhoodLowercasesNothingUppercasesSymbol(t *testing.T) {
	content := robinhoodHeader + "\n" +
		`"3/14/2025","3/14/2025","3/17/2025","aapl","Apple","Buy","10","$150.00","($1,500.00)"`

	result := parseCSV(t, content)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "AAPL", result.Transactions[0].Instrument)
}

func TestParseSkipsAccountActivityCodes(t *testing.T) {
	var rows []string
	rows = append(rows, robinhoodHeader)
	for _, code := range []string{"ACH", "RTP", "FUTSWP", "MINT", "ROC", "GOLD", "INT", "CDIV"} {
		rows = append(rows, `"3/14/2025","3/14/2025","3/17/2025","AAPL","Cash movement","`+code+`","","","$5.00"`)
	}
	rows = append(rows, `"3/15/2025","3/15/2025","3/18/2025","AAPL","Apple","Buy","1","$100.00","($100.00)"`)

	result := parseCSV(t, strings.Join(rows, "\n"))
	require.Len(t, result.Transactions, 1)
	assert.Empty(t, result.Issues, "account activity rows are skipped without issues")
	assert.Equal(t, models.TransCodeBuy, result.Transactions[0].TransCode)
}

func TestParseSkipsRowsWithoutInstrument(t *testing.T) {
	content := robinhoodHeader + "\n" +
		`"3/14/2025","3/14/2025","3/17/2025","","Deposit","XYZ","","","$500.00"`

	result := parseCSV(t, content)
	assert.Empty(t, result.Transactions)
	assert.Empty(t, result.Issues)
}

func TestParseUnknownTransCodeReportsIssue(t *testing.T) {
	content := robinhoodHeader + "\n" +
		`"3/14/2025","3/14/2025","3/17/2025","AAPL","Apple","XYZ","10","$150.00","($1,500.00)"` + "\n" +
		`"3/15/2025","3/15/2025","3/18/2025","MSFT","Microsoft","Buy","5","$400.00","($2,000.00)"`

	result := parseCSV(t, content)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "Row 1: Unknown Trans Code 'XYZ' for AAPL", result.Issues[0])
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "MSFT", result.Transactions[0].Instrument)
}

func TestParseInvalidDateReportsIssue(t *testing.T) {
	content := robinhoodHeader + "\n" +
		`"not-a-date","3/14/2025","3/17/2025","AAPL","Apple","Buy","10","$150.00","($1,500.00)"`

	result := parseCSV(t, content)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "Row 1")
	assert.Contains(t, result.Issues[0], "Activity Date")
	assert.Empty(t, result.Transactions)
}

func TestParseOptionDetection(t *testing.T) {
	content := robinhoodHeader + "\n" +
		`"3/14/2025","3/14/2025","3/17/2025","NVDA","NVDA 6/20/2025 Call $120.00","STO","1","$5.00","$500.00"` + "\n" +
		`"3/14/2025","3/14/2025","3/17/2025","TSLA","TSLA 6/20/2025 Put $200.00 assigned","Buy","100","$200.00","($20,000.00)"` + "\n" +
		`"3/14/2025","3/14/2025","3/17/2025","AAPL","Apple","Buy","10","$150.00","($1,500.00)"`

	result := parseCSV(t, content)
	require.Len(t, result.Transactions, 3)
	assert.Equal(t, models.AssetTypeOption, result.Transactions[0].AssetType, "option trans code")
	assert.Equal(t, models.AssetTypeOption, result.Transactions[1].AssetType, "Put keyword in description")
	assert.Equal(t, models.AssetTypeStock, result.Transactions[2].AssetType)
}

func TestParseSimpleFormat(t *testing.T) {
	content := "symbol,quantity,purchase_price,current_price,purchase_date\n" +
		"AAPL,10,150.00,135.00,3/14/2025\n" +
		"msft,5,400.00,420.00,1/2/2024\n"

	result := parseCSV(t, content)
	require.Len(t, result.TaxLots, 2)
	assert.Empty(t, result.Transactions)
	assert.Empty(t, result.Issues)

	lot := result.TaxLots[0]
	assert.Equal(t, "AAPL", lot.Symbol)
	assert.Equal(t, 10.0, lot.Quantity)
	assert.Equal(t, 150.0, lot.CostBasisPerShare)
	assert.Equal(t, 1500.0, lot.TotalCostBasis)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), lot.PurchaseDate)
	require.NotNil(t, lot.CurrentPrice)
	assert.Equal(t, 135.0, *lot.CurrentPrice)

	assert.Equal(t, "MSFT", result.TaxLots[1].Symbol)
}

func TestParseSimpleFormatWithoutDatesWarnsAndUsesToday(t *testing.T) {
	content := "Symbol,Quantity,Purchase_Price,Current_Price\n" +
		"AAPL,10,150.00,135.00\n"

	result := parseCSV(t, content)
	require.Len(t, result.TaxLots, 1)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "purchase_date")

	today := time.Now().UTC().Truncate(24 * time.Hour)
	assert.Equal(t, today, result.TaxLots[0].PurchaseDate)
}

func TestParseSimpleFormatRowIssues(t *testing.T) {
	content := "symbol,quantity,purchase_price,current_price,purchase_date\n" +
		",10,150.00,135.00,3/14/2025\n" +
		"AAPL,0,150.00,135.00,3/14/2025\n" +
		"MSFT,5,400.00,420.00,garbage\n"

	result := parseCSV(t, content)
	require.Len(t, result.Issues, 3)
	assert.Equal(t, "Row 1: Missing symbol", result.Issues[0])
	assert.Equal(t, "Row 2: Invalid quantity for AAPL", result.Issues[1])
	assert.Contains(t, result.Issues[2], "Could not parse purchase_date for MSFT")

	// The bad-date row still produces a lot, dated today.
	require.Len(t, result.TaxLots, 1)
	assert.Equal(t, "MSFT", result.TaxLots[0].Symbol)
}

func TestParseUnrecognizedFormat(t *testing.T) {
	content := "foo,bar,baz\n1,2,3\n"

	_, err := NewCSVParser().Parse(strings.NewReader(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized CSV format")
}

func TestParseEmptyFile(t *testing.T) {
	_, err := NewCSVParser().Parse(strings.NewReader(""))
	require.Error(t, err)
}

func TestParseExportAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$7.70", 7.70},
		{"($732.00)", -732.00},
		{"($2,440.10)", -2440.10},
		{"1,234.56", 1234.56},
		{"", 0},
		{"  ", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseExportAmount(tt.in), "input %q", tt.in)
	}
}

func TestParseExportQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"10", 10},
		{"400S", 400},
		{"1,000", 1000},
		{"-5", 5},
		{"0.5", 0.5},
		{"", 0},
		{"S", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseExportQuantity(tt.in), "input %q", tt.in)
	}
}
