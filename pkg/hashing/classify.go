package hashing

import (
	"path/filepath"
	"strings"

	"github.com/evidence-toolkit/core/pkg/schema"
)

// Classify determines an ingested file's EvidenceType from its extension and
// MIME type. PDFs are special-cased: a PDF with extractable text on its
// first page classifies as a document, one without (a scanned image) as an
// image, per the text-extractability probe.
func Classify(path string) (schema.EvidenceType, error) {
	ext := strings.ToLower(filepath.Ext(path))
	m := MIMEGuess(path)

	switch {
	case isImageMIME(m) || imageExts[ext]:
		return schema.EvidenceTypeImage, nil
	case emailExts[ext] || isMessageMIME(m):
		return schema.EvidenceTypeEmail, nil
	case ext == ".pdf" || m == "application/pdf":
		extractable, err := pdfTextExtractable(path)
		if err != nil {
			// Unreadable PDF: treat as a non-text scan rather than failing
			// classification outright.
			return schema.EvidenceTypeImage, nil
		}
		if extractable {
			return schema.EvidenceTypeDocument, nil
		}
		return schema.EvidenceTypeImage, nil
	case documentExts[ext] || strings.HasPrefix(m, "text/"):
		return schema.EvidenceTypeDocument, nil
	default:
		return schema.EvidenceTypeOther, nil
	}
}
