package pipeline

import (
	"context"

	"github.com/evidence-toolkit/core/pkg/index"
	"github.com/evidence-toolkit/core/pkg/runctx"
	"github.com/evidence-toolkit/core/pkg/schema"
	"github.com/evidence-toolkit/core/pkg/store"
)

// indexIngested best-effort refreshes the derived query index after a
// successful ingest. rc.Index is an accelerant cache (pkg/index); failures
// here are swallowed since nothing downstream consults the index for
// correctness.
func indexIngested(ctx context.Context, rc *runctx.RunContext, caseID string, result *store.IngestResult) {
	if rc.Index == nil || result == nil {
		return
	}
	meta, err := rc.Store.Metadata(result.SHA256)
	if err != nil {
		return
	}
	_ = rc.Index.UpsertEvidence(ctx, index.EvidenceRow{
		SHA256:           result.SHA256,
		OriginalFilename: meta.OriginalFilename,
		MIMEType:         meta.MIMEType,
		EvidenceType:     string(result.EvidenceType),
		Size:             meta.Size,
		IngestedAt:       meta.IngestedAt,
	})
	if caseID != "" {
		_ = rc.Index.LinkCase(ctx, caseID, result.SHA256)
	}
	_ = rc.Index.AppendCustody(ctx, result.SHA256, rc.Now(), "", string(schema.CustodyIngest), "")
}

// indexAnalyzed best-effort records an evidence item's overall analysis
// confidence in the derived index once analysis completes.
func indexAnalyzed(ctx context.Context, rc *runctx.RunContext, hash string, rec schema.AnalysisRecord) {
	if rc.Index == nil {
		return
	}
	meta, err := rc.Store.Metadata(hash)
	if err != nil {
		return
	}
	_ = rc.Index.UpsertEvidence(ctx, index.EvidenceRow{
		SHA256:           hash,
		OriginalFilename: meta.OriginalFilename,
		MIMEType:         meta.MIMEType,
		Size:             meta.Size,
		IngestedAt:       meta.IngestedAt,
		Confidence:       rec.ConfidenceOverall,
	})
	_ = rc.Index.AppendCustody(ctx, hash, rc.Now(), "", string(schema.CustodyAnalyze), "")
}

// indexCorrelated best-effort records the case's resolved entity summaries
// in the derived index once correlation completes.
func indexCorrelated(ctx context.Context, rc *runctx.RunContext, caseID string, result *schema.CorrelationResult) {
	if rc.Index == nil || result == nil {
		return
	}
	for _, e := range result.EntityCorrelations {
		_ = rc.Index.UpsertEntity(ctx, caseID, e.CanonicalName, string(e.Type), len(e.Occurrences), e.CorrelationConfidence)
	}
}
