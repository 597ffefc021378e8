package schema

import "time"

// EntityType classifies a correlated entity.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityLocation     EntityType = "location"
	EntityDate         EntityType = "date"
	EntityEmailAddress EntityType = "email_address"
	EntityPhone        EntityType = "phone"
	EntityDocumentRef  EntityType = "document_ref"
	EntityAccount      EntityType = "account"
	EntityAddress      EntityType = "address"
	EntityOther        EntityType = "other"
)

// ExtractionMethod records how an entity occurrence was discovered.
type ExtractionMethod string

const (
	ExtractionNLP        ExtractionMethod = "nlp"
	ExtractionOCR        ExtractionMethod = "ocr"
	ExtractionManual     ExtractionMethod = "manual"
	ExtractionAIAnalysis ExtractionMethod = "ai_analysis"
)

// EntityOccurrence is one appearance of an entity in a specific evidence item.
type EntityOccurrence struct {
	EvidenceSHA256   string           `json:"evidence_sha256"`
	Context          string           `json:"context"`
	Confidence       float64          `json:"confidence"`
	VariantName      string           `json:"variant_name"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
}

// Entity is a canonicalized entity and all of its occurrences.
type Entity struct {
	CanonicalName         string             `json:"canonical_name"`
	Type                  EntityType         `json:"type"`
	Occurrences           []EntityOccurrence `json:"occurrences"`
	CorrelationConfidence  float64           `json:"correlation_confidence,omitempty"`
}

// DistinctEvidenceCount returns the number of distinct evidence items this entity
// appears in — the Stage 3 filter test (>= 2).
func (e *Entity) DistinctEvidenceCount() int {
	seen := make(map[string]bool, len(e.Occurrences))
	for _, occ := range e.Occurrences {
		seen[occ.EvidenceSHA256] = true
	}
	return len(seen)
}

// TimelineEvent is one chronologically ordered event drawn from a bundle.
type TimelineEvent struct {
	Timestamp        time.Time `json:"timestamp"`
	EvidenceSHA256   string    `json:"evidence_sha256"`
	EventType        string    `json:"event_type"`
	Description      string    `json:"description"`
	Confidence       float64   `json:"confidence"`
	EntitiesInvolved []string  `json:"entities_involved,omitempty"`
}

// TemporalSequence groups timeline events whose participating entities overlap
// within a sliding window.
type TemporalSequence struct {
	Events             []TimelineEvent `json:"events"`
	PatternConfidence  float64         `json:"pattern_confidence"`
}

// TimelineGap is a significant interval between adjacent timeline events.
type TimelineGap struct {
	GapStart          time.Time `json:"gap_start"`
	GapEnd            time.Time `json:"gap_end"`
	GapDurationHours  float64   `json:"gap_duration_hours"`
	Significance      string    `json:"significance"` // low|medium|high|critical
	Context           string    `json:"context,omitempty"`
}

// Contradiction is an oracle-identified conflict between two evidence items.
type Contradiction struct {
	ContradictionType string   `json:"contradiction_type"`
	EvidencePair      [2]string `json:"evidence_pair"`
	Description       string   `json:"description"`
	Severity          float64  `json:"severity"`
	Confidence        float64  `json:"confidence,omitempty"`
}

// CorroborationStrength buckets a supporting-evidence group by source count.
type CorroborationStrength string

const (
	CorroborationWeak     CorroborationStrength = "weak"
	CorroborationModerate CorroborationStrength = "moderate"
	CorroborationStrong   CorroborationStrength = "strong"
)

// Corroboration is a group of evidence items that mutually support each other.
type Corroboration struct {
	EvidenceGroup []string               `json:"evidence_group"`
	Strength      CorroborationStrength  `json:"strength"`
	Description   string                 `json:"description,omitempty"`
}

// EvidenceGap is an oracle-identified hole in the evidentiary record.
type EvidenceGap struct {
	Description string  `json:"description"`
	Severity    string  `json:"severity"`
	Confidence  float64 `json:"confidence,omitempty"`
}

// LegalPatterns bundles the oracle-derived pattern-detection output.
type LegalPatterns struct {
	Contradictions []Contradiction `json:"contradictions,omitempty"`
	Corroborations []Corroboration `json:"corroborations,omitempty"`
	EvidenceGaps   []EvidenceGap   `json:"evidence_gaps,omitempty"`
}

// CorrelationResult is the case-level output of the cross-evidence correlator.
type CorrelationResult struct {
	SchemaVersion       string              `json:"schema_version"`
	CaseID              string              `json:"case_id"`
	EntityCorrelations  []Entity            `json:"entity_correlations"`
	Timeline            []TimelineEvent     `json:"timeline"`
	TemporalSequences   []TemporalSequence  `json:"temporal_sequences"`
	TimelineGaps        []TimelineGap       `json:"timeline_gaps"`
	LegalPatterns       LegalPatterns       `json:"legal_patterns"`
	GeneratedAt         time.Time           `json:"generated_at"`
}

// CorrelationSchemaVersion is the current wire version for correlation_analysis.json.
const CorrelationSchemaVersion = "1.0.0"
