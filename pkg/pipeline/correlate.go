package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/evidence-toolkit/core/pkg/correlate"
	"github.com/evidence-toolkit/core/pkg/runctx"
	"github.com/evidence-toolkit/core/pkg/schema"
)

// Correlate runs the cross-evidence correlator once over the case's
// evidence bundles and writes correlations/correlation_analysis.json under
// the store's case directory. A correlation failure
// is fatal for the stage since there is only one item to correlate.
func Correlate(ctx context.Context, rc *runctx.RunContext, opts Options) (*RunResult, error) {
	bundles, err := caseBundles(rc, opts.CaseID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: correlate: load bundles for %s: %w", opts.CaseID, err)
	}
	if len(bundles) == 0 {
		return newResult(nil, 0), nil
	}

	stageCtx, finish := trackStage(ctx, rc, "correlate")
	result, err := correlate.Run(stageCtx, rc, opts.CaseID, bundles, correlate.Options{
		Thresholds:      correlate.ThresholdsForCaseType(opts.CaseType, rc.Config.TimelineGapDays, rc.Config.TemporalWindowHours),
		ResolveEntities: opts.AIResolve,
	})
	finish(err)
	recordItem(ctx, rc, "correlate", err)
	if err != nil {
		return newResult([]ItemFailure{{Stage: "correlate", Item: opts.CaseID, Err: err}}, 1), nil
	}

	if err := writeCorrelationResult(rc.Config.StoreRoot, opts.CaseID, result); err != nil {
		return newResult([]ItemFailure{{Stage: "correlate", Item: opts.CaseID, Err: err}}, 1), nil
	}
	indexCorrelated(ctx, rc, opts.CaseID, result)

	for _, hash := range bundleHashes(bundles) {
		_ = rc.Store.AppendCustody(hash, schema.ChainOfCustodyEntry{
			Timestamp: rc.Now(),
			Actor:     opts.Actor,
			Action:    schema.CustodyCorrelate,
			Note:      "case " + opts.CaseID + " correlated (run " + rc.RunID + ")",
		})
	}

	return newResult(nil, 1), nil
}

func caseBundles(rc *runctx.RunContext, caseID string) ([]schema.EvidenceBundle, error) {
	hashes, err := rc.Store.List(caseID)
	if err != nil {
		return nil, err
	}
	bundles := make([]schema.EvidenceBundle, 0, len(hashes))
	for _, hash := range hashes {
		b, err := rc.Store.ReadBundle(hash)
		if err != nil {
			return nil, fmt.Errorf("read bundle %s: %w", hash, err)
		}
		if b == nil {
			continue
		}
		bundles = append(bundles, *b)
	}
	return bundles, nil
}

func bundleHashes(bundles []schema.EvidenceBundle) []string {
	out := make([]string, len(bundles))
	for i, b := range bundles {
		out[i] = b.Evidence.SHA256
	}
	return out
}

func writeCorrelationResult(storeRoot, caseID string, result *schema.CorrelationResult) error {
	if err := schema.ValidateCorrelationResult(result); err != nil {
		return fmt.Errorf("validate correlation result: %w", err)
	}
	dir := filepath.Join(storeRoot, "cases", caseID, "correlations")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	data, err := schema.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal correlation result: %w", err)
	}
	path := filepath.Join(dir, "correlation_analysis.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// ReadCorrelationResult reads back a previously written correlation result
// for caseID, or nil if correlation has not yet been run.
func ReadCorrelationResult(storeRoot, caseID string) (*schema.CorrelationResult, error) {
	path := filepath.Join(storeRoot, "cases", caseID, "correlations", "correlation_analysis.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := schema.ValidateBundleBytes("correlation", data); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	var result schema.CorrelationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &result, nil
}
