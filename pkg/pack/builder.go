package pack

import (
	"archive/zip"
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/evidence-toolkit/core/pkg/schema"
)

// Builder assembles a case archive from its evidence bundles, correlation
// result, and executive summary. The zero value is usable; WithSigningKey
// opts into ed25519-signing the package metadata's content hash.
type Builder struct {
	privKey ed25519.PrivateKey
}

// NewBuilder returns a Builder with no signing key configured.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithSigningKey configures the archive's package_metadata.json to carry an
// ed25519 signature over its content hash.
func (b *Builder) WithSigningKey(priv ed25519.PrivateKey) *Builder {
	b.privKey = priv
	return b
}

// Input bundles everything one case archive needs.
type Input struct {
	CaseID      string
	Bundles     []schema.EvidenceBundle
	Correlation *schema.CorrelationResult
	Summary     *schema.ExecutiveSummary
	Now         time.Time
}

// Build assembles the deterministic ZIP archive:
// package_metadata.json, evidence_catalog/evidence_catalog.json,
// analyses/<hash>.json, correlations/correlation_analysis.json, and
// reports/executive_summary.txt. Entries are written in that fixed order
// (analyses sorted by name; the correlation entry only when a correlation
// result is present) with epoch mtimes so that the same input
// always produces byte-identical archive bytes (modulo the signature, which
// is itself deterministic for a fixed key).
func (b *Builder) Build(in Input) ([]byte, error) {
	sorted := make([]schema.EvidenceBundle, len(in.Bundles))
	copy(sorted, in.Bundles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Evidence.SHA256 < sorted[j].Evidence.SHA256 })

	catalog := make([]CatalogEntry, 0, len(sorted))
	types := map[string]int{}
	riskSummary := map[string]int{}

	for _, bundle := range sorted {
		canonical := bundle.Canonical()
		entry := CatalogEntry{
			SHA256:   bundle.Evidence.SHA256,
			Filename: bundle.Evidence.OriginalFilename,
			Size:     bundle.Evidence.Size,
		}
		if canonical != nil {
			entry.Type = string(canonical.EvidenceType)
			entry.Confidence = canonical.ConfidenceOverall
			for _, f := range riskFlagsOf(canonical) {
				entry.RiskFlags = append(entry.RiskFlags, string(f))
				riskSummary[string(f)]++
			}
			types[entry.Type]++
		}
		catalog = append(catalog, entry)
	}

	meta := Metadata{
		CaseID:        in.CaseID,
		CreatedAt:     in.Now.UTC(),
		EvidenceCount: len(sorted),
		Types:         types,
		RiskSummary:   riskSummary,
	}

	catalogBytes, err := schema.Marshal(struct {
		Evidence []CatalogEntry `json:"evidence"`
	}{Evidence: catalog})
	if err != nil {
		return nil, fmt.Errorf("pack: marshal catalog: %w", err)
	}

	var correlationBytes []byte
	if in.Correlation != nil {
		correlationBytes, err = schema.Marshal(in.Correlation)
		if err != nil {
			return nil, fmt.Errorf("pack: marshal correlation: %w", err)
		}
	}

	analysisFiles := make(map[string][]byte, len(sorted))
	for _, bundle := range sorted {
		data, err := schema.Marshal(bundle)
		if err != nil {
			return nil, fmt.Errorf("pack: marshal bundle %s: %w", bundle.Evidence.SHA256, err)
		}
		analysisFiles[bundle.Evidence.SHA256+".json"] = data
	}

	reportText := renderSummary(in.Summary)

	contentHash, err := hashEntries(catalogBytes, correlationBytes, analysisFiles, []byte(reportText))
	if err != nil {
		return nil, err
	}
	meta.ContentHash = contentHash
	if b.privKey != nil {
		sig := ed25519.Sign(b.privKey, []byte(contentHash))
		meta.Signature = hex.EncodeToString(sig)
	}

	metaBytes, err := schema.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("pack: marshal metadata: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeZIPEntry(zw, "package_metadata.json", metaBytes); err != nil {
		return nil, err
	}
	if err := writeZIPEntry(zw, "evidence_catalog/evidence_catalog.json", catalogBytes); err != nil {
		return nil, err
	}
	analysisNames := make([]string, 0, len(analysisFiles))
	for name := range analysisFiles {
		analysisNames = append(analysisNames, name)
	}
	sort.Strings(analysisNames)
	for _, name := range analysisNames {
		if err := writeZIPEntry(zw, "analyses/"+name, analysisFiles[name]); err != nil {
			return nil, err
		}
	}
	if correlationBytes != nil {
		if err := writeZIPEntry(zw, "correlations/correlation_analysis.json", correlationBytes); err != nil {
			return nil, err
		}
	}
	if err := writeZIPEntry(zw, "reports/executive_summary.txt", []byte(reportText)); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("pack: close archive: %w", err)
	}
	return buf.Bytes(), nil
}

func writeZIPEntry(zw *zip.Writer, name string, data []byte) error {
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Unix(0, 0).UTC(),
	}
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("pack: create entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("pack: write entry %s: %w", name, err)
	}
	return nil
}

func riskFlagsOf(a *schema.AnalysisRecord) []schema.RiskFlag {
	switch {
	case a.Document != nil:
		return a.Document.RiskFlags
	case a.Email != nil:
		return a.Email.RiskFlags
	case a.Image != nil:
		return a.Image.RiskFlags
	default:
		return nil
	}
}

func renderSummary(s *schema.ExecutiveSummary) string {
	if s == nil {
		return "No executive summary available.\n"
	}
	out := s.Overview + "\n\nKey Findings:\n"
	for _, f := range s.KeyFindings {
		out += "- " + f + "\n"
	}
	out += "\nRisk Assessment:\n" + s.RiskAssessment + "\n"
	if s.RecommendedAction != "" {
		out += "\nRecommended Action:\n" + s.RecommendedAction + "\n"
	}
	return out
}
