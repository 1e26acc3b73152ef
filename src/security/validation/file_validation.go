package validation

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/username/optionstaxhub/backend/src/logger"
)

// allowedClientContentTypes are the client-declared MIME types accepted for a
// CSV upload. Brokerage exports show up under several historical aliases;
// .xlsx is explicitly rejected rather than merely unlisted.
var allowedClientContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true, // older Excel saves CSV under this
	"text/plain":               true,
	"application/octet-stream": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": false,
}

// ValidateClientContentType checks the Content-Type the client declared for
// the uploaded file. Client headers are advisory; the magic-byte check below
// is the one that inspects actual content.
func ValidateClientContentType(contentType string) error {
	if allowed, exists := allowedClientContentTypes[strings.ToLower(contentType)]; !exists || !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("client-declared file type '%s' is not allowed for CSV upload", contentType)
	}
	return nil
}

// detectedTextTypes are the sniffed types consistent with CSV content.
// octet-stream passes here because DetectContentType falls back to it for
// unrecognizable bytes; the CSV parser rejects non-CSV content afterwards.
var detectedTextTypes = map[string]bool{
	"text/plain":               true,
	"text/csv":                 true,
	"application/csv":          true,
	"application/octet-stream": true,
}

// ValidateFileContentByMagicBytes sniffs the first 512 bytes of the upload
// and rejects anything that is not text-like (executables, archives, office
// documents). The reader is rewound before returning so the parser sees the
// whole file.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", err)
	}

	detected := http.DetectContentType(buffer[:n])
	// Strip parameters like "; charset=utf-8".
	detected = strings.ToLower(strings.Split(detected, ";")[0])

	if !detectedTextTypes[detected] {
		logger.L.Warn("Upload content does not look like CSV", "detectedContentType", detected)
		return detected, fmt.Errorf("detected file content type '%s' is not consistent with a CSV file", detected)
	}

	return detected, nil
}
