package hashing

import (
	"os"
	"path/filepath"
	"strings"
)

// ExtractText returns path's full text content for the DocumentAnalyzer:
// verbatim bytes (UTF-8 decoded, best-effort) for plain text files, or the
// whole-document concatenation of PDF text-show operands for PDFs. It is
// the document-wide counterpart to pdfTextExtractable's first-page probe.
func ExtractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if strings.ToLower(filepath.Ext(path)) == ".pdf" {
		return strings.TrimSpace(string(extractPDFShowText(data))), nil
	}
	return string(data), nil
}
