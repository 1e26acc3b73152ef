package validation

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/optionstaxhub/backend/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestValidateClientContentType(t *testing.T) {
	assert.NoError(t, ValidateClientContentType("text/csv"))
	assert.NoError(t, ValidateClientContentType("TEXT/CSV"))
	assert.NoError(t, ValidateClientContentType("application/vnd.ms-excel"))

	assert.Error(t, ValidateClientContentType("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
	assert.Error(t, ValidateClientContentType("image/png"))
	assert.Error(t, ValidateClientContentType(""))
}

func TestValidateFileContentByMagicBytes(t *testing.T) {
	csv := bytes.NewReader([]byte("symbol,quantity,purchase_price,current_price\nAAPL,10,150,135\n"))
	detected, err := ValidateFileContentByMagicBytes(csv)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", detected)

	// The reader must be rewound for the parser.
	pos, _ := csv.Seek(0, io.SeekCurrent)
	assert.Equal(t, int64(0), pos)

	png := bytes.NewReader([]byte("\x89PNG\r\n\x1a\nrest-of-file"))
	_, err = ValidateFileContentByMagicBytes(png)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not consistent with a CSV file")

	_, err = ValidateFileContentByMagicBytes(nil)
	assert.Error(t, err)
}

func TestSanitizeForFormulaInjection(t *testing.T) {
	assert.Equal(t, "'=cmd()", SanitizeForFormulaInjection("=cmd()"))
	assert.Equal(t, "'+SUM(A1)", SanitizeForFormulaInjection("+SUM(A1)"))
	assert.Equal(t, "report.csv", SanitizeForFormulaInjection("report.csv"))
	assert.Equal(t, "", SanitizeForFormulaInjection(""))
}

func TestStripUnprintable(t *testing.T) {
	assert.Equal(t, "report.csv", StripUnprintable("re\x00port.csv"))
	assert.Equal(t, "a\tb\nc", StripUnprintable("a\tb\nc"))
}
