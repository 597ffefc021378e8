package analyzer

import (
	"context"
	"fmt"

	"github.com/evidence-toolkit/core/pkg/hashing"
	"github.com/evidence-toolkit/core/pkg/oracle"
	"github.com/evidence-toolkit/core/pkg/runctx"
	"github.com/evidence-toolkit/core/pkg/schema"
)

// EmailAnalyzer produces an EmailAnalysis for one email-thread evidence
// item: participant authority/deference profiles, escalation events, and a
// reconstructed timeline, all from the oracle.
type EmailAnalyzer struct {
	Prompt string
}

const emailDefaultPromptMarker = "email-analysis-v1"

func (a EmailAnalyzer) Analyze(ctx context.Context, rc *runctx.RunContext, hash string) (Result, error) {
	path, err := rc.Store.RawPath(hash)
	if err != nil {
		return Result{}, fmt.Errorf("analyzer: email: raw path for %s: %w", hash, err)
	}
	threadText, err := hashing.ExtractText(path)
	if err != nil {
		return Result{}, fmt.Errorf("analyzer: email: read thread for %s: %w", hash, err)
	}

	promptHash := sha256Hex(promptOrDefault(a.Prompt, emailDefaultPromptMarker))
	analysisID := AnalysisID(hash, promptHash, rc.Config.OracleModelRevision)

	if existing, ok, err := findExisting(rc, hash, analysisID); err != nil {
		return Result{}, err
	} else if ok {
		return Result{Record: existing, OracleHit: false}, nil
	}

	email, meta, err := rc.Oracle.AnalyzeEmail(ctx, oracle.EmailRequest{
		ThreadText:    threadText,
		Prompt:        a.Prompt,
		AnalysisKeyID: analysisID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("analyzer: email: oracle call for %s: %w", hash, err)
	}

	rec := schema.AnalysisRecord{
		AnalysisID:   analysisID,
		CreatedAt:    rc.Now(),
		EvidenceType: schema.EvidenceTypeEmail,
		Model:        meta.Model,
		Parameters: schema.AnalysisParameters{
			Temperature:   0,
			PromptHash:    meta.PromptHash,
			TokenUsageIn:  meta.TokensIn,
			TokenUsageOut: meta.TokensOut,
		},
		Email:             email,
		ConfidenceOverall: email.ConfidenceOverall,
	}
	if err := rc.Store.WriteAnalysis(hash, rec); err != nil {
		return Result{}, fmt.Errorf("analyzer: email: persist %s: %w", hash, err)
	}
	return Result{Record: rec, OracleHit: !meta.FromCache}, nil
}
