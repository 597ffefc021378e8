// Package analyzer implements one analyzer per schema.EvidenceType
// (DocumentAnalyzer, EmailAnalyzer, ImageAnalyzer). Each reads the raw
// bytes for one evidence item from the Store, dispatches to the oracle,
// and produces a typed schema.AnalysisRecord — never a partial one.
package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/evidence-toolkit/core/pkg/runctx"
	"github.com/evidence-toolkit/core/pkg/schema"
)

// AnalysisID computes the deterministic analysis_id from
// {sha256, prompt_hash, model_revision}.
// Identical inputs always produce the same id, which is what lets the
// pipeline and analyzers treat an existing record as a cache hit.
func AnalysisID(evidenceSHA256, promptHash, modelRevision string) string {
	h := sha256.New()
	h.Write([]byte(evidenceSHA256))
	h.Write([]byte{0})
	h.Write([]byte(promptHash))
	h.Write([]byte{0})
	h.Write([]byte(modelRevision))
	return hex.EncodeToString(h.Sum(nil))
}

// Result is what every analyzer returns: the record actually persisted
// (whether freshly computed or reused) and whether the oracle was called.
type Result struct {
	Record    schema.AnalysisRecord
	OracleHit bool // true if the oracle was actually called, false on reuse/cache
}

// sha256Hex hashes s for use as the prompt_hash component of an analysis_id.
func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// findExisting looks up hash's analysis history for one already bearing
// analysisID, implementing the idempotency rule common to all analyzers.
func findExisting(rc *runctx.RunContext, hash, analysisID string) (schema.AnalysisRecord, bool, error) {
	existing, err := rc.Store.Analyses(hash)
	if err != nil {
		return schema.AnalysisRecord{}, false, fmt.Errorf("analyzer: load existing analyses for %s: %w", hash, err)
	}
	for _, rec := range existing {
		if rec.AnalysisID == analysisID {
			return rec, true, nil
		}
	}
	return schema.AnalysisRecord{}, false, nil
}
