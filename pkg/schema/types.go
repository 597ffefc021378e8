// Package schema defines the versioned, typed records that are the system's
// lingua franca: every pipeline stage reads and writes these through
// Validate/Marshal so that a round-trip read-then-write is a fixed point.
package schema

import (
	"time"
)

// EvidenceType classifies an ingested file.
type EvidenceType string

const (
	EvidenceTypeDocument EvidenceType = "document"
	EvidenceTypeImage    EvidenceType = "image"
	EvidenceTypeEmail    EvidenceType = "email"
	EvidenceTypeOther    EvidenceType = "other"
)

// CustodyAction enumerates the chain-of-custody action vocabulary.
type CustodyAction string

const (
	CustodyIngest    CustodyAction = "ingest"
	CustodyAnalyze   CustodyAction = "analyze"
	CustodyExport    CustodyAction = "export"
	CustodyCorrelate CustodyAction = "correlate"
	CustodyPackage   CustodyAction = "package"
)

// FileMetadata is created at ingest and never mutated.
type FileMetadata struct {
	SHA256           string    `json:"sha256"`
	Size             int64     `json:"size"`
	MIMEType         string    `json:"mime_type"`
	OriginalFilename string    `json:"original_filename"`
	Extension        string    `json:"extension"`
	IngestedAt       time.Time `json:"ingested_at"`
	SourceModifiedAt time.Time `json:"source_modified_at,omitempty"`
	WidthPx          int       `json:"width_px,omitempty"`
	HeightPx         int       `json:"height_px,omitempty"`
}

// DerivedArtifacts holds per-evidence computed side data.
type DerivedArtifacts struct {
	SHA256              string         `json:"sha256"`
	MIMEType            string         `json:"mime_type"`
	EXIF                map[string]any `json:"exif,omitempty"`
	PerceptualHash      string         `json:"phash,omitempty"`
	TextExtractable     bool           `json:"text_extractable,omitempty"`
}

// ChainOfCustodyEntry is a single immutable, append-only ledger entry.
type ChainOfCustodyEntry struct {
	Timestamp       time.Time     `json:"ts"`
	Actor           string        `json:"actor"`
	Action          CustodyAction `json:"action"`
	Note            string        `json:"note,omitempty"`
	EvidenceAffected []string     `json:"evidence_affected,omitempty"`
}

// AnalysisModelInfo identifies the oracle model/revision used for an analysis.
type AnalysisModelInfo struct {
	Name     string `json:"name"`
	Revision string `json:"revision"`
}

// AnalysisParameters records the oracle call parameters for audit purposes.
type AnalysisParameters struct {
	Temperature  float64 `json:"temperature"`
	PromptHash   string  `json:"prompt_hash"`
	TokenUsageIn int     `json:"token_usage_in,omitempty"`
	TokenUsageOut int    `json:"token_usage_out,omitempty"`
}

// AnalysisRecord wraps a typed analysis output with its provenance.
// Exactly one of Document, Email, or Image holds the output, selected by
// EvidenceType.
type AnalysisRecord struct {
	AnalysisID       string             `json:"analysis_id"`
	CreatedAt        time.Time          `json:"created_at"`
	EvidenceType     EvidenceType       `json:"evidence_type"`
	Model            AnalysisModelInfo  `json:"model"`
	Parameters       AnalysisParameters `json:"parameters"`
	Document         *DocumentAnalysis  `json:"document,omitempty"`
	Email            *EmailAnalysis     `json:"email,omitempty"`
	Image            *ImageAnalysis     `json:"image,omitempty"`
	ConfidenceOverall float64           `json:"confidence_overall"`
}

// EvidenceBundle is the unit of export: schema_version, core metadata, the
// full custody log, and every analysis performed on this evidence item.
type EvidenceBundle struct {
	SchemaVersion   string                `json:"schema_version"`
	CaseID          string                `json:"case_id,omitempty"`
	Evidence        FileMetadata          `json:"evidence"`
	ChainOfCustody  []ChainOfCustodyEntry `json:"chain_of_custody"`
	Analyses        []AnalysisRecord      `json:"analyses"`
}

// BundleSchemaVersion is the current wire version for evidence_bundle.v1.json.
const BundleSchemaVersion = "1.0.0"

// Canonical returns the latest completed analysis, or nil if there is none.
func (b *EvidenceBundle) Canonical() *AnalysisRecord {
	var latest *AnalysisRecord
	for i := range b.Analyses {
		a := &b.Analyses[i]
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	return latest
}
