package hashing

import (
	"bytes"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// extMIME covers extensions net/http's sniffer and mime.TypeByExtension
// either miss or guess generically, notably the evidence-domain formats
// (.eml/.msg/.mbox) that must classify as email rather than other/text.
var extMIME = map[string]string{
	".eml":  "message/rfc822",
	".msg":  "application/vnd.ms-outlook",
	".mbox": "application/mbox",
	".pdf":  "application/pdf",
}

// MIMEGuess identifies path's MIME type by extension first, falling back to
// a magic-byte sniff of the first 512 bytes, and finally
// application/octet-stream if nothing matches.
func MIMEGuess(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if m, ok := extMIME[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); m != "" {
		if i := strings.Index(m, ";"); i >= 0 {
			m = m[:i]
		}
		return m
	}

	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if n == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(buf[:n])
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".tif": true, ".tiff": true, ".bmp": true, ".webp": true,
}

var emailExts = map[string]bool{
	".eml": true, ".msg": true, ".mbox": true,
}

var documentExts = map[string]bool{
	".txt": true, ".doc": true, ".docx": true, ".rtf": true, ".odt": true, ".csv": true, ".md": true,
}

func isImageMIME(m string) bool  { return strings.HasPrefix(m, "image/") }
func isMessageMIME(m string) bool {
	return strings.HasPrefix(m, "message/") || m == "application/vnd.ms-outlook" || m == "application/mbox"
}

// pdfTextExtractable opens path, extracts the first page's text stream, and
// reports whether it contains at least 50 non-whitespace characters. This is
// a heuristic "is this a text PDF or a scanned image PDF" probe, not a full
// PDF parser: it collects the parenthesized string literals in the raw
// first-page region (see extractPDFShowText), without locating BT/ET text
// blocks, tolerant of the absence of a real PDF library in the corpus.
func pdfTextExtractable(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	page := firstPageContent(data)
	text := extractPDFShowText(page)
	return countNonWhitespace(text) >= 50, nil
}

// firstPageContent returns the byte range of the document up to the first
// "endobj" boundary after the first "/Type /Page" marker, a cheap substitute
// for walking the PDF object graph that is adequate for a text-density probe
// on well-formed, uncompressed first pages.
func firstPageContent(data []byte) []byte {
	marker := []byte("/Type /Page")
	idx := -1
	for off := 0; off < len(data); {
		i := bytes.Index(data[off:], marker)
		if i < 0 {
			break
		}
		if next := off + i + len(marker); next >= len(data) || data[next] != 's' {
			idx = off + i
			break
		}
		off += i + len(marker)
	}
	if idx < 0 {
		return data
	}
	end := bytes.Index(data[idx:], []byte("endobj"))
	if end < 0 {
		return data[idx:]
	}
	return data[idx : idx+end]
}

// extractPDFShowText concatenates the contents of every parenthesized
// literal string in page content (honouring nesting and backslash escapes),
// which is where visible glyph text lives in an uncompressed content
// stream. It does not check which operator follows a literal, so literals
// that are not Tj/TJ operands are counted too.
func extractPDFShowText(content []byte) []byte {
	var out bytes.Buffer
	for i := 0; i < len(content); i++ {
		if content[i] != '(' {
			continue
		}
		depth := 1
		j := i + 1
		for j < len(content) && depth > 0 {
			switch content[j] {
			case '(':
				depth++
			case ')':
				depth--
			case '\\':
				j++ // skip escaped char
			}
			j++
		}
		if depth == 0 {
			out.Write(content[i+1 : j-1])
			out.WriteByte(' ')
		}
		i = j - 1
	}
	return out.Bytes()
}

func countNonWhitespace(b []byte) int {
	n := 0
	for _, r := range string(b) {
		if !strings.ContainsRune(" \t\r\n\f\v", r) {
			n++
		}
	}
	return n
}
