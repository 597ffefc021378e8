package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/evidence-toolkit/core/pkg/analyzer"
	"github.com/evidence-toolkit/core/pkg/hashing"
	"github.com/evidence-toolkit/core/pkg/runctx"
	"github.com/evidence-toolkit/core/pkg/schema"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Analyze dispatches every case evidence hash lacking a current
// AnalysisRecord to its type's analyzer, bounded by max_concurrent to
// respect the oracle's rate limits.
func Analyze(ctx context.Context, rc *runctx.RunContext, opts Options) (*RunResult, error) {
	hashes, err := rc.Store.List(opts.CaseID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: analyze: list case %s: %w", opts.CaseID, err)
	}
	if len(hashes) == 0 {
		return newResult(nil, 0), nil
	}

	width := opts.concurrency(rc)
	sem := semaphore.NewWeighted(int64(width))
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	var mu sync.Mutex
	var failures []ItemFailure

	g, gctx := errgroup.WithContext(ctx)
	for _, hash := range hashes {
		hash := hash
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
			}
			err := AnalyzeEvidence(gctx, rc, hash, "")
			recordItem(gctx, rc, "analyze", err)
			if err != nil {
				mu.Lock()
				failures = append(failures, ItemFailure{Stage: "analyze", Item: hash, Err: err})
				mu.Unlock()
				if opts.FailFast {
					return err
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return newResult(failures, len(hashes)), nil
}

// AnalyzeEvidence analyzes one evidence item, classifying it from its raw
// bytes unless typeOverride names a type explicitly (the CLI's analyze
// --type override).
func AnalyzeEvidence(ctx context.Context, rc *runctx.RunContext, hash string, typeOverride schema.EvidenceType) error {
	evidenceType := typeOverride
	if evidenceType == "" {
		path, err := rc.Store.RawPath(hash)
		if err != nil {
			return fmt.Errorf("raw path: %w", err)
		}
		evidenceType, err = hashing.Classify(path)
		if err != nil {
			return fmt.Errorf("classify: %w", err)
		}
	}
	a, err := analyzer.ForType(evidenceType, analyzer.Prompts{})
	if err != nil {
		// schema.EvidenceTypeOther carries no analyzer; this is not a failure.
		return nil
	}
	result, err := a.Analyze(ctx, rc, hash)
	if err != nil {
		return err
	}
	if result.OracleHit && rc.Obs != nil {
		rc.Obs.RecordOracleTokens(ctx, "analyze_"+string(evidenceType),
			result.Record.Parameters.TokenUsageIn, result.Record.Parameters.TokenUsageOut)
	}
	indexAnalyzed(ctx, rc, hash, result.Record)
	return nil
}
