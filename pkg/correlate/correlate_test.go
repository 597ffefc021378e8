package correlate

import (
	"context"
	"testing"
	"time"

	"github.com/evidence-toolkit/core/pkg/config"
	"github.com/evidence-toolkit/core/pkg/oracle"
	"github.com/evidence-toolkit/core/pkg/runctx"
	"github.com/evidence-toolkit/core/pkg/schema"
	"github.com/evidence-toolkit/core/pkg/store"
	"github.com/stretchr/testify/require"
)

type stubOracle struct {
	resolveDecision *schema.EntityMatchDecision
	patterns        *schema.LegalPatterns
}

func (s *stubOracle) AnalyzeDocument(ctx context.Context, req oracle.DocumentRequest) (*schema.DocumentAnalysis, oracle.CallMeta, error) {
	return nil, oracle.CallMeta{}, nil
}
func (s *stubOracle) AnalyzeEmail(ctx context.Context, req oracle.EmailRequest) (*schema.EmailAnalysis, oracle.CallMeta, error) {
	return nil, oracle.CallMeta{}, nil
}
func (s *stubOracle) AnalyzeImage(ctx context.Context, req oracle.ImageRequest) (*schema.ImageAnalysis, oracle.CallMeta, error) {
	return nil, oracle.CallMeta{}, nil
}
func (s *stubOracle) ResolveEntityPair(ctx context.Context, req oracle.EntityPairRequest) (*schema.EntityMatchDecision, oracle.CallMeta, error) {
	return s.resolveDecision, oracle.CallMeta{}, nil
}
func (s *stubOracle) SummarizeCase(ctx context.Context, req oracle.SummarizeRequest) (*schema.ExecutiveSummary, oracle.CallMeta, error) {
	return &schema.ExecutiveSummary{}, oracle.CallMeta{}, nil
}
func (s *stubOracle) DetectPatterns(ctx context.Context, req oracle.PatternsRequest) (*schema.LegalPatterns, oracle.CallMeta, error) {
	if s.patterns != nil {
		return s.patterns, oracle.CallMeta{}, nil
	}
	return &schema.LegalPatterns{}, oracle.CallMeta{}, nil
}

func newRunContext(t *testing.T, oc oracle.Client) *runctx.RunContext {
	t.Helper()
	st := store.New(t.TempDir())
	return runctx.New(st, oc, config.Load(), nil)
}

func bundleWithDocEntity(sha, name string, ingested time.Time, confidence float64) schema.EvidenceBundle {
	return schema.EvidenceBundle{
		Evidence: schema.FileMetadata{SHA256: sha, IngestedAt: ingested, OriginalFilename: sha + ".txt"},
		Analyses: []schema.AnalysisRecord{{
			AnalysisID:   "a-" + sha,
			CreatedAt:    ingested,
			EvidenceType: schema.EvidenceTypeDocument,
			Document: &schema.DocumentAnalysis{
				Entities: []schema.DocumentEntity{
					{Name: name, Type: "person", Confidence: confidence, Context: "memo"},
				},
				ConfidenceOverall: confidence,
			},
			ConfidenceOverall: confidence,
		}},
	}
}

func TestRun_FiltersEntitiesBelowTwoOccurrences(t *testing.T) {
	rc := newRunContext(t, &stubOracle{})
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	bundles := []schema.EvidenceBundle{
		bundleWithDocEntity("aaa1", "Jane Roe", base, 0.9),
		bundleWithDocEntity("bbb2", "Jane Roe", base.Add(time.Hour), 0.8),
		bundleWithDocEntity("ccc3", "Solo Mention", base.Add(2*time.Hour), 0.95),
	}

	result, err := Run(context.Background(), rc, "CASE-1", bundles, Options{
		Thresholds: ThresholdsFromConfig(14, 72),
	})
	require.NoError(t, err)
	require.Len(t, result.EntityCorrelations, 1, "only the entity seen in >=2 evidence items survives Stage 3")
	require.Equal(t, "Jane Roe", result.EntityCorrelations[0].CanonicalName)
	require.InDelta(t, 0.85, result.EntityCorrelations[0].CorrelationConfidence, 0.001)
}

func TestRun_TimelineIsSortedByTimestamp(t *testing.T) {
	rc := newRunContext(t, &stubOracle{})
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	bundles := []schema.EvidenceBundle{
		bundleWithDocEntity("zzz9", "Late Person", base.Add(48*time.Hour), 0.7),
		bundleWithDocEntity("aaa1", "Early Person", base, 0.7),
	}

	result, err := Run(context.Background(), rc, "CASE-2", bundles, Options{Thresholds: ThresholdsFromConfig(14, 72)})
	require.NoError(t, err)
	require.True(t, len(result.Timeline) >= 2)
	for i := 1; i < len(result.Timeline); i++ {
		require.False(t, result.Timeline[i].Timestamp.Before(result.Timeline[i-1].Timestamp))
	}
}

func TestRun_TimelineGapExceedsThreshold(t *testing.T) {
	rc := newRunContext(t, &stubOracle{})
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	bundles := []schema.EvidenceBundle{
		bundleWithDocEntity("aaa1", "Person A", base, 0.8),
		bundleWithDocEntity("bbb2", "Person A", base.Add(20*24*time.Hour), 0.8),
	}

	result, err := Run(context.Background(), rc, "CASE-3", bundles, Options{
		Thresholds: ThresholdsFromConfig(14, 72),
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.TimelineGaps)
}

func TestResolveEntities_AcceptsHighConfidenceMerge(t *testing.T) {
	oc := &stubOracle{resolveDecision: &schema.EntityMatchDecision{
		IsSameEntity: true, Confidence: 0.92, SupportingSignals: []string{"shared email domain"},
	}}
	rc := newRunContext(t, oc)
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	bundles := []schema.EvidenceBundle{
		bundleWithDocEntity("aaa1", "Jane Roe", base, 0.9),
		bundleWithDocEntity("bbb2", "J Roe", base.Add(time.Hour), 0.9),
		bundleWithDocEntity("ccc3", "Jane Roe", base.Add(2*time.Hour), 0.9),
	}

	result, err := Run(context.Background(), rc, "CASE-4", bundles, Options{
		Thresholds:      ThresholdsFromConfig(14, 72),
		ResolveEntities: true,
	})
	require.NoError(t, err)
	require.Len(t, result.EntityCorrelations, 1, "the name-prefix-agreeing variant should merge into one entity")
}

func TestAcceptMerge_RejectsCommonFirstNameWithoutIdentifier(t *testing.T) {
	d := &schema.EntityMatchDecision{IsSameEntity: true, Confidence: 0.95}
	require.False(t, acceptMerge("John", "John Smith", d))
}

func TestAcceptMerge_RejectsConflictingSurname(t *testing.T) {
	d := &schema.EntityMatchDecision{IsSameEntity: true, Confidence: 0.95, ConflictingSignals: []string{"distinct surname"}}
	require.False(t, acceptMerge("Jane Roe", "Jane Doe", d))
}
