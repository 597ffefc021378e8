package store

import (
	"fmt"

	"github.com/evidence-toolkit/core/pkg/schema"
)

// WriteAnalysis appends rec to hash's analysis history, rebuilds and
// validates the evidence bundle, persists both atomically, appends an
// "analyze" custody entry, and creates label links for the distinct labels
// rec's outputs carry, up to maxLabels per evidence.
func (s *Store) WriteAnalysis(hash string, rec schema.AnalysisRecord) error {
	if !validDigest(hash) {
		return findingDigestError(hash)
	}

	var ext string
	err := s.withHashLock(hash, func() error {
		meta, err := s.readMetadata(hash)
		if err != nil {
			return err
		}
		ext = meta.Extension

		analyses, err := s.readAnalyses(hash)
		if err != nil {
			return err
		}
		analyses = append(analyses, rec)

		custody, err := s.appendCustodyLocked(hash, schema.ChainOfCustodyEntry{
			Timestamp: s.now().UTC(),
			Actor:     rec.Model.Name,
			Action:    schema.CustodyAnalyze,
		})
		if err != nil {
			return err
		}

		bundle := &schema.EvidenceBundle{
			SchemaVersion:  schema.BundleSchemaVersion,
			Evidence:       meta,
			ChainOfCustody: custody,
			Analyses:       analyses,
		}
		if err := schema.ValidateEvidenceBundle(bundle); err != nil {
			return fmt.Errorf("store: validate evidence bundle for %s: %w", hash, err)
		}

		analysisBytes, err := schema.Marshal(analyses)
		if err != nil {
			return fmt.Errorf("store: marshal analyses for %s: %w", hash, err)
		}
		if err := writeFileAtomic(s.analysisPath(hash), analysisBytes, 0o644); err != nil {
			return err
		}

		bundleBytes, err := schema.Marshal(bundle)
		if err != nil {
			return fmt.Errorf("store: marshal bundle for %s: %w", hash, err)
		}
		return writeFileAtomic(s.bundlePath(hash), bundleBytes, 0o644)
	})
	if err != nil {
		return err
	}

	for _, label := range extractLabels(rec, s.maxLabels) {
		if err := s.linkLabel(hash, label, ext); err != nil {
			return fmt.Errorf("store: link label %q for %s: %w", label, hash, err)
		}
	}
	return nil
}

// extractLabels derives up to maxLabels distinct, order-preserving labels
// from an analysis record's outputs: its risk flags plus a type-specific
// classifier (document_type or communication_pattern).
func extractLabels(rec schema.AnalysisRecord, maxLabels int) []string {
	var candidates []string
	switch {
	case rec.Document != nil:
		candidates = append(candidates, rec.Document.DocumentType)
		for _, f := range rec.Document.RiskFlags {
			candidates = append(candidates, string(f))
		}
	case rec.Email != nil:
		candidates = append(candidates, rec.Email.CommunicationPattern)
		for _, f := range rec.Email.RiskFlags {
			candidates = append(candidates, string(f))
		}
	case rec.Image != nil:
		for _, f := range rec.Image.RiskFlags {
			candidates = append(candidates, string(f))
		}
	}

	seen := make(map[string]bool, len(candidates))
	labels := make([]string, 0, maxLabels)
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		labels = append(labels, c)
		if len(labels) >= maxLabels {
			break
		}
	}
	return labels
}
