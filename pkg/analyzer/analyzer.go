package analyzer

import (
	"context"
	"fmt"

	"github.com/evidence-toolkit/core/pkg/runctx"
	"github.com/evidence-toolkit/core/pkg/schema"
)

// Analyzer is implemented by DocumentAnalyzer, EmailAnalyzer, and
// ImageAnalyzer, and is what the pipeline's Analyze stage calls.
type Analyzer interface {
	Analyze(ctx context.Context, rc *runctx.RunContext, hash string) (Result, error)
}

// ForType selects the analyzer for an evidence item's classified type.
// schema.EvidenceTypeOther has no analyzer: the pipeline records such
// items in the catalog but never calls the oracle for them.
func ForType(evidenceType schema.EvidenceType, prompts Prompts) (Analyzer, error) {
	switch evidenceType {
	case schema.EvidenceTypeDocument:
		return DocumentAnalyzer{Prompt: prompts.Document}, nil
	case schema.EvidenceTypeEmail:
		return EmailAnalyzer{Prompt: prompts.Email}, nil
	case schema.EvidenceTypeImage:
		return ImageAnalyzer{Prompt: prompts.Image}, nil
	default:
		return nil, fmt.Errorf("analyzer: no analyzer for evidence type %q", evidenceType)
	}
}

// Prompts carries optional per-run system prompt overrides; zero value
// uses each analyzer's built-in oracle prompt.
type Prompts struct {
	Document string
	Email    string
	Image    string
}
