package correlate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/evidence-toolkit/core/pkg/oracle"
	"github.com/evidence-toolkit/core/pkg/schema"
	"github.com/google/cel-go/cel"
)

// Thresholds holds the configurable Stage 5 pattern-detection parameters.
type Thresholds struct {
	TemporalWindow time.Duration
	TimelineGap    time.Duration
}

// ruleEvaluator compiles and caches the CEL programs that decide temporal-
// sequence window membership and gap-significance elevation. The rules are
// plain CEL source so their text can be hashed into a run's provenance the
// same way oracle prompts are.
type ruleEvaluator struct {
	env      *cel.Env
	programs map[string]cel.Program
}

// windowRule decides whether two timeline events, a gap_hours apart with
// overlapping entities, belong to the same temporal sequence.
const windowRule = `gap_hours <= window_hours && shared_entities > 0`

// gapSeverityRule decides whether a timeline gap is elevated to "critical"
// significance because a critical risk flag is active in a bounding event.
const gapSeverityRule = `gap_hours > threshold_hours && has_critical_flag`

func newRuleEvaluator() (*ruleEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("gap_hours", cel.DoubleType),
		cel.Variable("window_hours", cel.DoubleType),
		cel.Variable("shared_entities", cel.IntType),
		cel.Variable("threshold_hours", cel.DoubleType),
		cel.Variable("has_critical_flag", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("correlate: cel environment: %w", err)
	}
	return &ruleEvaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

func (r *ruleEvaluator) eval(expr string, input map[string]any) (bool, error) {
	prg, ok := r.programs[expr]
	if !ok {
		ast, issues := r.env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return false, fmt.Errorf("correlate: compile rule %q: %w", expr, issues.Err())
		}
		p, err := r.env.Program(ast)
		if err != nil {
			return false, fmt.Errorf("correlate: build program %q: %w", expr, err)
		}
		r.programs[expr] = p
		prg = p
	}
	out, _, err := prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("correlate: eval rule %q: %w", expr, err)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("correlate: rule %q did not return bool", expr)
	}
	return val, nil
}

// temporalSequences groups timeline events whose participating entities
// overlap within a sliding window, the window-membership test expressed as
// a CEL rule so it is auditable the same way oracle prompts are hashed.
func temporalSequences(events []schema.TimelineEvent, window time.Duration) ([]schema.TemporalSequence, error) {
	ev, err := newRuleEvaluator()
	if err != nil {
		return nil, err
	}

	var sequences []schema.TemporalSequence
	var current []schema.TimelineEvent
	for i, e := range events {
		if len(current) == 0 {
			current = append(current, e)
			continue
		}
		prev := current[len(current)-1]
		gapHours := e.Timestamp.Sub(prev.Timestamp).Hours()
		shared := sharedEntityCount(prev.EntitiesInvolved, e.EntitiesInvolved)
		belongs, err := ev.eval(windowRule, map[string]any{
			"gap_hours":       gapHours,
			"window_hours":    window.Hours(),
			"shared_entities": int64(shared),
		})
		if err != nil {
			return nil, err
		}
		if belongs {
			current = append(current, e)
		} else {
			if seq, ok := buildSequence(current); ok {
				sequences = append(sequences, seq)
			}
			current = []schema.TimelineEvent{e}
		}
		if i == len(events)-1 {
			if seq, ok := buildSequence(current); ok {
				sequences = append(sequences, seq)
			}
		}
	}
	return sequences, nil
}

func sharedEntityCount(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, x := range a {
		set[x] = true
	}
	count := 0
	for _, y := range b {
		if set[y] {
			count++
		}
	}
	return count
}

// buildSequence discards sequences of length < 2 and computes
// pattern_confidence as the geometric mean of member confidences.
func buildSequence(events []schema.TimelineEvent) (schema.TemporalSequence, bool) {
	if len(events) < 2 {
		return schema.TemporalSequence{}, false
	}
	product := 1.0
	for _, e := range events {
		c := e.Confidence
		if c <= 0 {
			c = 0.01
		}
		product *= c
	}
	geomean := math.Pow(product, 1.0/float64(len(events)))
	return schema.TemporalSequence{Events: events, PatternConfidence: geomean}, true
}

// timelineGaps emits adjacent-event intervals exceeding threshold, with
// significance elevated to "critical" when a critical risk flag is active
// in either bounding event's source analysis.
func timelineGaps(events []schema.TimelineEvent, bundles []schema.EvidenceBundle, threshold time.Duration) ([]schema.TimelineGap, error) {
	ev, err := newRuleEvaluator()
	if err != nil {
		return nil, err
	}
	criticalBySHA := criticalFlagIndex(bundles)

	var gaps []schema.TimelineGap
	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		gapHours := cur.Timestamp.Sub(prev.Timestamp).Hours()
		if gapHours <= threshold.Hours() {
			continue
		}
		hasCritical := criticalBySHA[prev.EvidenceSHA256] || criticalBySHA[cur.EvidenceSHA256]
		critical, err := ev.eval(gapSeverityRule, map[string]any{
			"gap_hours":         gapHours,
			"threshold_hours":   threshold.Hours(),
			"has_critical_flag": hasCritical,
		})
		if err != nil {
			return nil, err
		}
		gaps = append(gaps, schema.TimelineGap{
			GapStart:         prev.Timestamp,
			GapEnd:           cur.Timestamp,
			GapDurationHours: gapHours,
			Significance:     gapSignificance(gapHours, threshold.Hours(), critical),
		})
	}
	return gaps, nil
}

func gapSignificance(gapHours, thresholdHours float64, critical bool) string {
	switch {
	case critical:
		return "critical"
	case gapHours >= thresholdHours*3:
		return "high"
	case gapHours >= thresholdHours*1.5:
		return "medium"
	default:
		return "low"
	}
}

func criticalFlagIndex(bundles []schema.EvidenceBundle) map[string]bool {
	out := make(map[string]bool)
	for _, b := range bundles {
		for _, rec := range b.Analyses {
			flags := recordRiskFlags(rec)
			for _, f := range flags {
				if schema.CriticalRiskFlags[f] {
					out[b.Evidence.SHA256] = true
				}
			}
		}
	}
	return out
}

func recordRiskFlags(rec schema.AnalysisRecord) []schema.RiskFlag {
	switch {
	case rec.Document != nil:
		return rec.Document.RiskFlags
	case rec.Email != nil:
		return rec.Email.RiskFlags
	case rec.Image != nil:
		return rec.Image.RiskFlags
	default:
		return nil
	}
}

// detectLegalPatterns asks the oracle for contradictions, corroboration
// groups, and evidence gaps given a rendered digest of the correlation
// state so far.
func detectLegalPatterns(ctx context.Context, oc oracle.Client, caseID string, entities []schema.Entity, timeline []schema.TimelineEvent) (schema.LegalPatterns, error) {
	input := renderCorrelationDigest(caseID, entities, timeline)
	patterns, _, err := oc.DetectPatterns(ctx, oracle.PatternsRequest{CaseID: caseID, CorrelationInput: input})
	if err != nil {
		return schema.LegalPatterns{}, fmt.Errorf("correlate: detect_legal_patterns: %w", err)
	}
	return *patterns, nil
}

func renderCorrelationDigest(caseID string, entities []schema.Entity, timeline []schema.TimelineEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "case: %s\n\nentities:\n", caseID)
	for _, e := range entities {
		fmt.Fprintf(&b, "- %s (%s), %d occurrences, confidence %.2f\n", e.CanonicalName, e.Type, len(e.Occurrences), e.CorrelationConfidence)
	}
	fmt.Fprintf(&b, "\ntimeline:\n")
	for _, ev := range timeline {
		fmt.Fprintf(&b, "- %s [%s] %s (evidence %s)\n", ev.Timestamp.Format(time.RFC3339), ev.EventType, ev.Description, ev.EvidenceSHA256)
	}
	return b.String()
}
