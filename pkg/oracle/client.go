// Package oracle wraps an external structured-output LLM service — the
// "oracle" — behind a typed, audit-friendly interface: every call hashes
// its prompt, records token usage, and returns one of a fixed set of typed
// outputs or a typed refusal/incomplete error.
package oracle

import (
	"context"

	"github.com/evidence-toolkit/core/pkg/schema"
)

// CallMeta records the provenance of one oracle call, carried into the
// AnalysisRecord.Parameters the caller persists.
type CallMeta struct {
	Model        schema.AnalysisModelInfo
	PromptHash   string
	TokensIn     int
	TokensOut    int
	FromCache    bool
}

// Client is the typed surface every analyzer and the correlator call
// through. Implementations must be safe for concurrent use — the run
// constructs exactly one Client and shares it across every worker.
type Client interface {
	AnalyzeDocument(ctx context.Context, req DocumentRequest) (*schema.DocumentAnalysis, CallMeta, error)
	AnalyzeEmail(ctx context.Context, req EmailRequest) (*schema.EmailAnalysis, CallMeta, error)
	AnalyzeImage(ctx context.Context, req ImageRequest) (*schema.ImageAnalysis, CallMeta, error)
	ResolveEntityPair(ctx context.Context, req EntityPairRequest) (*schema.EntityMatchDecision, CallMeta, error)
	SummarizeCase(ctx context.Context, req SummarizeRequest) (*schema.ExecutiveSummary, CallMeta, error)
	DetectPatterns(ctx context.Context, req PatternsRequest) (*schema.LegalPatterns, CallMeta, error)
}

// DocumentRequest is the input to analyze_document.
type DocumentRequest struct {
	Text          string
	Prompt        string
	AnalysisKeyID string // the deterministic analysis_id this call is for, used by caching layers
}

// EmailRequest is the input to analyze_email.
type EmailRequest struct {
	ThreadText    string
	Prompt        string
	AnalysisKeyID string
}

// ImageRequest is the input to analyze_image.
type ImageRequest struct {
	Bytes         []byte
	MIMEType      string
	Prompt        string
	AnalysisKeyID string
}

// EntityPairRequest is the input to resolve_entity_pair.
type EntityPairRequest struct {
	VariantA, VariantB string
	ContextsA, ContextsB []string
}

// SummarizeRequest is the input to summarize_case, consumed by the package
// writer.
type SummarizeRequest struct {
	CaseID           string
	CorrelationInput string // a rendered, human-readable digest of the CorrelationResult
}

// PatternsRequest is the input to detect_legal_patterns, consumed by the
// correlator's Stage 5.
type PatternsRequest struct {
	CaseID           string
	CorrelationInput string
}
