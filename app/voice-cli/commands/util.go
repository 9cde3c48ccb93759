package commands

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const pdfMimeType = "application/pdf"

// readPDF loads path and checks it is a non-empty PDF no larger than maxBytes.
func readPDF(path string, maxBytes int64) ([]byte, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("%s: only .pdf is allowed", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%s: file is empty", path)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, fmt.Errorf("%s: file too large (%d bytes, limit %d)", path, info.Size(), maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	if ct := http.DetectContentType(data); ct != pdfMimeType {
		return nil, fmt.Errorf("%s: invalid content type %q (must be pdf)", path, ct)
	}
	return data, nil
}

// saveToFile writes data, creating parent directories.
func saveToFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
