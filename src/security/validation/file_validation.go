package validation

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/username/momoflow/src/logger"
)

// MaxInputFileSize caps the XML export size. SMS backups are small; a file
// over this limit is a wrong file, not a big export.
const MaxInputFileSize = 64 << 20 // 64 MiB

// isBinaryContent checks a buffer for binary control characters. An SMS
// export is text; null bytes or broken UTF-8 mean the wrong file was given.
func isBinaryContent(buf []byte) bool {
	if bytes.IndexByte(buf, 0) != -1 {
		return true
	}
	if !utf8.Valid(buf) {
		return true
	}
	return false
}

// ValidateInputContent inspects the start of the export before the parser
// touches it: the content must be text and sniff as XML or plain text. The
// read pointer is reset so the caller can hand the same reader to the parser.
func ValidateInputContent(file io.ReadSeeker) error {
	if file == nil {
		return fmt.Errorf("input file is nil")
	}

	buffer := make([]byte, 1024)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read input for content checking: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to reset input read pointer: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("input file is empty")
	}

	if isBinaryContent(buffer[:n]) {
		logger.L.Warn("Input rejected: binary content detected")
		return fmt.Errorf("input appears to be binary, not an XML export")
	}

	detected := http.DetectContentType(buffer[:n])
	detected = strings.ToLower(strings.Split(detected, ";")[0])

	allowed := map[string]bool{
		"text/plain":      true,
		"text/xml":        true,
		"application/xml": true,
	}
	if !allowed[detected] {
		logger.L.Warn("Disallowed input content type", "detectedContentType", detected)
		return fmt.Errorf("detected input content type '%s' is not an XML export", detected)
	}

	logger.L.Debug("Input content type validated", "detectedContentType", detected)
	return nil
}
