package correlate

import (
	"context"
	"testing"
	"time"

	"github.com/evidence-toolkit/core/pkg/config"
	"github.com/evidence-toolkit/core/pkg/runctx"
	"github.com/evidence-toolkit/core/pkg/schema"
	"github.com/evidence-toolkit/core/pkg/store"
	"github.com/stretchr/testify/require"
)

func frozenRunContext(t *testing.T) *runctx.RunContext {
	t.Helper()
	st := store.New(t.TempDir())
	clock := func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	return runctx.New(st, &stubOracle{}, config.Load(), clock)
}

// Two documents mention the same organization with different casing; after
// correlation there is exactly one entity with canonical name "Acme Corp",
// two occurrences, and a correlation confidence equal to the mean of the
// occurrence confidences.
func TestScenario_EntityAcrossTwoDocuments(t *testing.T) {
	rc := frozenRunContext(t)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	bundles := []schema.EvidenceBundle{
		bundleWithDocEntity("aaa1", "Acme Corp", base, 0.9),
		bundleWithDocEntity("bbb2", "acme corp", base.Add(time.Hour), 0.8),
	}

	result, err := Run(context.Background(), rc, "CASE-S5", bundles, Options{
		Thresholds: ThresholdsFromConfig(14, 72),
	})
	require.NoError(t, err)
	require.Len(t, result.EntityCorrelations, 1)
	e := result.EntityCorrelations[0]
	require.Equal(t, "Acme Corp", e.CanonicalName)
	require.Len(t, e.Occurrences, 2)
	require.InDelta(t, 0.85, e.CorrelationConfidence, 1e-9)
}

// An oracle match at confidence 0.92 with a unique email identifier merges
// "Paul" into "Paul Boucherat", whose variant carries more occurrences and
// so supplies the canonical name.
func TestScenario_AIResolutionMergesOnUniqueIdentifier(t *testing.T) {
	oc := &stubOracle{resolveDecision: &schema.EntityMatchDecision{
		IsSameEntity:      true,
		Confidence:        0.92,
		SupportingSignals: []string{"shared email paul.b@acme.com"},
	}}
	st := store.New(t.TempDir())
	rc := runctx.New(st, oc, config.Load(), nil)
	base := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	bundles := []schema.EvidenceBundle{
		bundleWithDocEntity("aaa1", "Paul", base, 0.9),
		bundleWithDocEntity("bbb2", "Paul Boucherat", base.Add(time.Hour), 0.9),
		bundleWithDocEntity("ccc3", "Paul Boucherat", base.Add(2*time.Hour), 0.9),
	}

	result, err := Run(context.Background(), rc, "CASE-S6", bundles, Options{
		Thresholds:      ThresholdsFromConfig(14, 72),
		ResolveEntities: true,
	})
	require.NoError(t, err)
	require.Len(t, result.EntityCorrelations, 1)
	require.Equal(t, "Paul Boucherat", result.EntityCorrelations[0].CanonicalName)
}

// A common first name without a surname never merges below confidence 0.90,
// and never without a unique identifier, regardless of oracle enthusiasm.
func TestScenario_CommonFirstNameGating(t *testing.T) {
	noIdentifier := &schema.EntityMatchDecision{IsSameEntity: true, Confidence: 0.95}
	require.False(t, acceptMerge("Paul", "Paul Smithson", noIdentifier))

	lowConfidence := &schema.EntityMatchDecision{
		IsSameEntity:      true,
		Confidence:        0.88,
		SupportingSignals: []string{"shared email paul@acme.com"},
	}
	require.False(t, acceptMerge("Paul", "Paul Smithson", lowConfidence))
}

// The same bundle set and config produce byte-identical correlation output
// across runs (AI-resolve off).
func TestCorrelationDeterministic(t *testing.T) {
	base := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)
	bundles := []schema.EvidenceBundle{
		bundleWithDocEntity("aaa1", "Jane Roe", base, 0.9),
		bundleWithDocEntity("bbb2", "Jane Roe", base.Add(30*24*time.Hour), 0.8),
	}

	var outputs [][]byte
	for i := 0; i < 2; i++ {
		rc := frozenRunContext(t)
		result, err := Run(context.Background(), rc, "CASE-DET", bundles, Options{
			Thresholds: ThresholdsFromConfig(14, 72),
		})
		require.NoError(t, err)
		data, err := schema.Marshal(result)
		require.NoError(t, err)
		outputs = append(outputs, data)
	}
	require.Equal(t, string(outputs[0]), string(outputs[1]))
}
