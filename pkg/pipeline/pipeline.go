// Package pipeline orchestrates the four-stage case run — Ingest, Analyze,
// Correlate, Package — bounding each stage's fan-out with a semaphore and
// isolating per-item failures so one bad file never aborts its peers.
package pipeline

import (
	"context"
	"fmt"

	"github.com/evidence-toolkit/core/pkg/runctx"
)

// Options configures one pipeline run. MaxConcurrent <= 0 uses
// runctx.Config's default.
type Options struct {
	CaseID        string
	CaseType      string
	Actor         string
	MaxConcurrent int
	RatePerSecond float64
	AIResolve     bool
	FailFast      bool

	// ArchiveOut overrides where the Package stage writes the case archive;
	// empty uses "<store-root>/<case-id>.zip".
	ArchiveOut string
}

// ItemFailure records one item's failure within a stage without aborting
// its peers.
type ItemFailure struct {
	Stage string
	Item  string
	Err   error
}

func (f ItemFailure) Error() string {
	return fmt.Sprintf("pipeline: %s: %s: %v", f.Stage, f.Item, f.Err)
}

// RunResult reports a stage or full-case run's aggregate outcome. ExitCode
// is 0 when every item succeeded, 1 on partial failure, 2 when the stage
// could make no progress.
type RunResult struct {
	ExitCode int
	Failures []ItemFailure
}

func newResult(failures []ItemFailure, attempted int) *RunResult {
	r := &RunResult{Failures: failures}
	switch {
	case len(failures) == 0:
		r.ExitCode = 0
	case len(failures) < attempted:
		r.ExitCode = 1
	default:
		r.ExitCode = 2
	}
	return r
}

// trackStage opens an observability span for a whole pipeline stage,
// degrading to a no-op when the run has no provider attached.
func trackStage(ctx context.Context, rc *runctx.RunContext, stage string) (context.Context, func(error)) {
	if rc.Obs == nil {
		return ctx, func(error) {}
	}
	return rc.Obs.TrackOperation(ctx, "pipeline."+stage)
}

// recordItem feeds the run's stage-item metrics, tolerating a run with no
// observability provider attached.
func recordItem(ctx context.Context, rc *runctx.RunContext, stage string, err error) {
	if rc.Obs == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	rc.Obs.RecordStageItem(ctx, stage, outcome)
}

func (o Options) concurrency(rc *runctx.RunContext) int {
	if o.MaxConcurrent > 0 {
		return o.MaxConcurrent
	}
	if rc.Config.MaxConcurrent > 0 {
		return rc.Config.MaxConcurrent
	}
	return 5
}

// ProcessCase runs all four stages over caseDir in order, stopping after
// any stage returns a fatal (ExitCode 2) result.
func ProcessCase(ctx context.Context, rc *runctx.RunContext, caseDir string, opts Options) (*RunResult, error) {
	ingestResult, err := Ingest(ctx, rc, caseDir, opts)
	if err != nil {
		return nil, fmt.Errorf("pipeline: process-case: ingest: %w", err)
	}
	if ingestResult.ExitCode == 2 {
		return ingestResult, nil
	}

	analyzeResult, err := Analyze(ctx, rc, opts)
	if err != nil {
		return nil, fmt.Errorf("pipeline: process-case: analyze: %w", err)
	}
	if analyzeResult.ExitCode == 2 {
		return analyzeResult, nil
	}

	correlateResult, err := Correlate(ctx, rc, opts)
	if err != nil {
		return nil, fmt.Errorf("pipeline: process-case: correlate: %w", err)
	}
	if correlateResult.ExitCode == 2 {
		return correlateResult, nil
	}

	exportResult, err := Export(ctx, rc, opts, opts.ArchiveOut)
	if err != nil {
		return nil, fmt.Errorf("pipeline: process-case: export: %w", err)
	}

	failures := append(append(append(append([]ItemFailure{}, ingestResult.Failures...), analyzeResult.Failures...), correlateResult.Failures...), exportResult.Failures...)
	worst := ingestResult.ExitCode
	for _, code := range []int{analyzeResult.ExitCode, correlateResult.ExitCode, exportResult.ExitCode} {
		if code > worst {
			worst = code
		}
	}
	return &RunResult{ExitCode: worst, Failures: failures}, nil
}
