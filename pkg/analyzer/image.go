package analyzer

import (
	"context"
	"fmt"

	"github.com/evidence-toolkit/core/pkg/oracle"
	"github.com/evidence-toolkit/core/pkg/runctx"
	"github.com/evidence-toolkit/core/pkg/schema"
)

// ImageAnalyzer produces an ImageAnalysis for one image evidence item: a
// visual summary, detected objects, OCR text, and risk flags, dispatched
// to the oracle as a base64 data URL.
type ImageAnalyzer struct {
	Prompt string
}

const imageDefaultPromptMarker = "image-analysis-v1"

func (a ImageAnalyzer) Analyze(ctx context.Context, rc *runctx.RunContext, hash string) (Result, error) {
	meta, err := rc.Store.Metadata(hash)
	if err != nil {
		return Result{}, fmt.Errorf("analyzer: image: metadata for %s: %w", hash, err)
	}
	raw, err := rc.Store.ReadRaw(hash)
	if err != nil {
		return Result{}, fmt.Errorf("analyzer: image: read raw for %s: %w", hash, err)
	}

	promptHash := sha256Hex(promptOrDefault(a.Prompt, imageDefaultPromptMarker))
	analysisID := AnalysisID(hash, promptHash, rc.Config.OracleModelRevision)

	if existing, ok, err := findExisting(rc, hash, analysisID); err != nil {
		return Result{}, err
	} else if ok {
		return Result{Record: existing, OracleHit: false}, nil
	}

	img, callMeta, err := rc.Oracle.AnalyzeImage(ctx, oracle.ImageRequest{
		Bytes:         raw,
		MIMEType:      meta.MIMEType,
		Prompt:        a.Prompt,
		AnalysisKeyID: analysisID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("analyzer: image: oracle call for %s: %w", hash, err)
	}

	rec := schema.AnalysisRecord{
		AnalysisID:   analysisID,
		CreatedAt:    rc.Now(),
		EvidenceType: schema.EvidenceTypeImage,
		Model:        callMeta.Model,
		Parameters: schema.AnalysisParameters{
			Temperature:   0,
			PromptHash:    callMeta.PromptHash,
			TokenUsageIn:  callMeta.TokensIn,
			TokenUsageOut: callMeta.TokensOut,
		},
		Image:             img,
		ConfidenceOverall: img.ConfidenceOverall,
	}
	if err := rc.Store.WriteAnalysis(hash, rec); err != nil {
		return Result{}, fmt.Errorf("analyzer: image: persist %s: %w", hash, err)
	}
	return Result{Record: rec, OracleHit: !callMeta.FromCache}, nil
}
