package correlate

import (
	"context"
	"fmt"
	"time"

	"github.com/evidence-toolkit/core/pkg/runctx"
	"github.com/evidence-toolkit/core/pkg/schema"
)

// Options configures one correlation run, overriding the thresholds
// config.Config loads by default and opting into AI-assisted entity
// resolution.
type Options struct {
	Thresholds     Thresholds
	ResolveEntities bool
}

// Run executes Stages 1-5 of the cross-evidence correlator over caseID's
// evidence bundles and returns the assembled CorrelationResult. Bundles must already carry their Analyses; Run performs no I/O
// beyond optional oracle calls and, when ResolveEntities is set, custody
// appends for accepted entity merges.
func Run(ctx context.Context, rc *runctx.RunContext, caseID string, bundles []schema.EvidenceBundle, opts Options) (*schema.CorrelationResult, error) {
	candidates := aggregate(bundles)
	canonical := canonicalize(candidates)

	if opts.ResolveEntities {
		hashes := make([]string, 0, len(bundles))
		for _, b := range bundles {
			hashes = append(hashes, b.Evidence.SHA256)
		}
		merged, err := resolveEntities(ctx, rc.Oracle, rc.Store, caseID, hashes, canonical)
		if err != nil {
			return nil, err
		}
		canonical = merged
	}

	entities := filterAndScore(canonical)
	timeline := assembleTimeline(bundles)

	sequences, err := temporalSequences(timeline, opts.Thresholds.TemporalWindow)
	if err != nil {
		return nil, err
	}
	gaps, err := timelineGaps(timeline, bundles, opts.Thresholds.TimelineGap)
	if err != nil {
		return nil, err
	}

	patterns, err := detectLegalPatterns(ctx, rc.Oracle, caseID, entities, timeline)
	if err != nil {
		return nil, fmt.Errorf("correlate: case %s: %w", caseID, err)
	}

	if timeline == nil {
		timeline = []schema.TimelineEvent{}
	}
	if sequences == nil {
		sequences = []schema.TemporalSequence{}
	}
	if gaps == nil {
		gaps = []schema.TimelineGap{}
	}

	return &schema.CorrelationResult{
		SchemaVersion:      schema.CorrelationSchemaVersion,
		CaseID:             caseID,
		EntityCorrelations: entities,
		Timeline:           timeline,
		TemporalSequences:  sequences,
		TimelineGaps:       gaps,
		LegalPatterns:      patterns,
		GeneratedAt:        rc.Now(),
	}, nil
}

// ThresholdsFromConfig builds Thresholds from the run's loaded
// configuration, converting the documented day/hour units.
func ThresholdsFromConfig(timelineGapDays, temporalWindowHours int) Thresholds {
	return Thresholds{
		TemporalWindow: time.Duration(temporalWindowHours) * time.Hour,
		TimelineGap:    time.Duration(timelineGapDays) * 24 * time.Hour,
	}
}

// ThresholdsForCaseType layers per-case-type defaults over the configured
// values: workplace cases correlate over a tighter temporal window (the
// escalation patterns of interest play out within days), contract disputes
// over a longer gap threshold (document cadence is monthly, not daily).
// The case type never changes evidence identity or storage layout.
func ThresholdsForCaseType(caseType string, timelineGapDays, temporalWindowHours int) Thresholds {
	switch caseType {
	case "workplace":
		temporalWindowHours = 48
	case "contract_dispute":
		timelineGapDays = 30
	}
	return ThresholdsFromConfig(timelineGapDays, temporalWindowHours)
}
