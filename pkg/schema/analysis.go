package schema

// RiskFlag is the closed vocabulary of permitted risk flags.
type RiskFlag string

const (
	RiskThreatening           RiskFlag = "threatening"
	RiskDeadline              RiskFlag = "deadline"
	RiskPII                   RiskFlag = "pii"
	RiskConfidential          RiskFlag = "confidential"
	RiskTimeSensitive         RiskFlag = "time_sensitive"
	RiskRetaliationIndicators RiskFlag = "retaliation_indicators"
	RiskHarassment            RiskFlag = "harassment"
	RiskDiscrimination        RiskFlag = "discrimination"

	RiskLowQuality         RiskFlag = "low_quality"
	RiskTamperingSuspected RiskFlag = "tampering_suspected"
	RiskOCRAmbiguous       RiskFlag = "ocr_ambiguous"
	RiskNSFW               RiskFlag = "nsfw"
)

// CriticalRiskFlags trigger elevated pattern detection in the correlator.
var CriticalRiskFlags = map[RiskFlag]bool{
	RiskRetaliationIndicators: true,
	RiskHarassment:            true,
	RiskDiscrimination:        true,
	RiskThreatening:           true,
}

// DocumentRiskFlags and ImageRiskFlags are the per-evidence-type allowed
// sets; a persisted risk flag must be a member of its type's set.
var DocumentRiskFlags = map[RiskFlag]bool{
	RiskThreatening: true, RiskDeadline: true, RiskPII: true, RiskConfidential: true,
	RiskTimeSensitive: true, RiskRetaliationIndicators: true, RiskHarassment: true,
	RiskDiscrimination: true,
}

var ImageRiskFlags = map[RiskFlag]bool{
	RiskLowQuality: true, RiskTamperingSuspected: true, RiskOCRAmbiguous: true,
	RiskNSFW: true, RiskPII: true,
}

// DocumentEntity is one entity extracted from a document by the oracle.
type DocumentEntity struct {
	Name              string  `json:"name"`
	Type              string  `json:"type"` // person|organization|date|legal_term
	Confidence        float64 `json:"confidence"`
	Context           string  `json:"context"`
	Relationship      string  `json:"relationship,omitempty"`
	QuotedText        string  `json:"quoted_text,omitempty"`
	AssociatedEvent   string  `json:"associated_event,omitempty"`
}

// WordFrequency is a local, non-oracle statistic computed by the
// DocumentAnalyzer for downstream UI consumption.
type WordFrequency struct {
	TopWords    []WordCount `json:"top_words"`
	TotalWords  int         `json:"total_words"`
	UniqueWords int         `json:"unique_words"`
}

type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// DocumentAnalysis is the oracle output for a document evidence item.
type DocumentAnalysis struct {
	Summary           string           `json:"summary"`
	Entities          []DocumentEntity `json:"entities,omitempty"`
	DocumentType      string           `json:"document_type"` // email|letter|contract|filing
	Sentiment         string           `json:"sentiment"`     // hostile|neutral|professional
	LegalSignificance string           `json:"legal_significance"`
	RiskFlags         []RiskFlag       `json:"risk_flags,omitempty"`
	WordFrequency     *WordFrequency   `json:"word_frequency,omitempty"`
	ConfidenceOverall float64          `json:"confidence_overall"`
}

// ParticipantProfile describes one participant's behavior across an email thread.
type ParticipantProfile struct {
	EmailAddress     string   `json:"email_address"`
	AuthorityLevel   string   `json:"authority_level"` // executive|management|employee|external
	MessageCount     int      `json:"message_count"`
	DeferenceScore   float64  `json:"deference_score"`
	DominantTopics   []string `json:"dominant_topics,omitempty"`
}

// EscalationEvent flags a point in a thread where tone/authority shifted.
type EscalationEvent struct {
	MessageIndex int    `json:"message_index"`
	Description  string `json:"description"`
	Confidence   float64 `json:"confidence"`
}

// EmailTimelineItem is one chronological key event within a thread.
type EmailTimelineItem struct {
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
}

// EmailAnalysis is the oracle output for an email-thread evidence item.
type EmailAnalysis struct {
	ThreadSummary         string                `json:"thread_summary"`
	Participants          []ParticipantProfile  `json:"participants,omitempty"`
	CommunicationPattern  string                `json:"communication_pattern"` // professional|escalating|hostile|retaliatory
	SentimentProgression  []string              `json:"sentiment_progression,omitempty"`
	EscalationEvents      []EscalationEvent     `json:"escalation_events,omitempty"`
	LegalSignificance     string                `json:"legal_significance"`
	RiskFlags             []RiskFlag            `json:"risk_flags,omitempty"`
	Timeline              []EmailTimelineItem   `json:"timeline,omitempty"`
	ConfidenceOverall     float64               `json:"confidence_overall"`
}

// DetectedObject is one object detected by the oracle in an image.
type DetectedObject struct {
	Label      string     `json:"label"`
	BBox       [4]float64 `json:"bbox"` // [x, y, w, h] normalized to [0,1]
	Confidence float64    `json:"confidence"`
}

// ImageAnalysis is the oracle output for an image evidence item.
type ImageAnalysis struct {
	Summary           string           `json:"summary"`
	Objects           []DetectedObject `json:"objects,omitempty"`
	OCRText           string           `json:"ocr_text,omitempty"`
	RiskFlags         []RiskFlag       `json:"risk_flags,omitempty"`
	ConfidenceOverall float64          `json:"confidence_overall"`
}

// riskFlagSynonyms normalizes provider-specific wording to the canonical
// vocabulary before an image analysis is persisted.
var riskFlagSynonyms = map[string]RiskFlag{
	"blurry":         RiskLowQuality,
	"uncertain_text":  RiskOCRAmbiguous,
	"damage":          RiskTamperingSuspected,
	"low_quality":     RiskLowQuality,
	"tampering_suspected": RiskTamperingSuspected,
	"ocr_ambiguous":   RiskOCRAmbiguous,
	"nsfw":            RiskNSFW,
	"pii":             RiskPII,
}

// NormalizeImageRiskFlag maps a raw oracle-returned flag string to the
// canonical ImageAnalysis risk flag, or ("" , false) if unrecognized.
func NormalizeImageRiskFlag(raw string) (RiskFlag, bool) {
	f, ok := riskFlagSynonyms[raw]
	return f, ok
}
