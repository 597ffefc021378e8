package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evidence-toolkit/core/pkg/blob"
	"github.com/evidence-toolkit/core/pkg/oracle"
	"github.com/evidence-toolkit/core/pkg/pack"
	"github.com/evidence-toolkit/core/pkg/runctx"
	"github.com/evidence-toolkit/core/pkg/schema"
)

// Export runs the package-writer stage: it
// loads the case's evidence bundles and correlation result, calls the
// oracle for an executive summary, and writes a ZIP archive to outPath
// (defaulting to "<case-id>.zip" under the store root when empty). The
// archive is built without a signing key, so it carries no signature.
func Export(ctx context.Context, rc *runctx.RunContext, opts Options, outPath string) (*RunResult, error) {
	bundles, err := caseBundles(rc, opts.CaseID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: export: load bundles for %s: %w", opts.CaseID, err)
	}
	if len(bundles) == 0 {
		return newResult(nil, 0), nil
	}

	correlation, err := ReadCorrelationResult(rc.Config.StoreRoot, opts.CaseID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: export: read correlation for %s: %w", opts.CaseID, err)
	}

	stageCtx, finish := trackStage(ctx, rc, "package")
	summary, summaryMeta, err := rc.Oracle.SummarizeCase(stageCtx, oracle.SummarizeRequest{
		CaseID:           opts.CaseID,
		CorrelationInput: renderCorrelationInput(opts.CaseID, correlation, bundles),
	})
	finish(err)
	recordItem(ctx, rc, "package", err)
	if err != nil {
		return newResult([]ItemFailure{{Stage: "package", Item: opts.CaseID, Err: err}}, 1), nil
	}
	if rc.Obs != nil && !summaryMeta.FromCache {
		rc.Obs.RecordOracleTokens(ctx, "summarize_case", summaryMeta.TokensIn, summaryMeta.TokensOut)
	}

	archive, err := pack.NewBuilder().Build(pack.Input{
		CaseID:      opts.CaseID,
		Bundles:     bundles,
		Correlation: correlation,
		Summary:     summary,
		Now:         rc.Now(),
	})
	if err != nil {
		return newResult([]ItemFailure{{Stage: "package", Item: opts.CaseID, Err: err}}, 1), nil
	}

	if outPath == "" {
		outPath = filepath.Join(rc.Config.StoreRoot, opts.CaseID+".zip")
	}
	if err := writeArchiveAtomic(outPath, archive); err != nil {
		return newResult([]ItemFailure{{Stage: "package", Item: opts.CaseID, Err: err}}, 1), nil
	}

	if rc.Config.ArchiveMirror != "" {
		mirror, err := blob.ForURL(ctx, rc.Config.ArchiveMirror)
		if err != nil {
			return newResult([]ItemFailure{{Stage: "package", Item: opts.CaseID, Err: err}}, 1), nil
		}
		if err := mirror.Put(ctx, opts.CaseID+".zip", archive); err != nil {
			return newResult([]ItemFailure{{Stage: "package", Item: opts.CaseID, Err: err}}, 1), nil
		}
	}

	for _, hash := range bundleHashes(bundles) {
		_ = rc.Store.AppendCustody(hash, schema.ChainOfCustodyEntry{
			Timestamp: rc.Now(),
			Actor:     opts.Actor,
			Action:    schema.CustodyPackage,
			Note:      "case " + opts.CaseID + " packaged to " + outPath + " (run " + rc.RunID + ")",
		})
	}

	return newResult(nil, 1), nil
}

// ExportEvidence writes one evidence item's bundle to outPath and appends
// an "export" custody entry. It is the single-evidence export operation,
// distinct from the case-archive Package stage. Any failure is
// fatal (exit 2): there is exactly one item, so there is no partial outcome.
func ExportEvidence(rc *runctx.RunContext, hash, outPath, actor string) error {
	bundle, err := rc.Store.ReadBundle(hash)
	if err != nil {
		return fmt.Errorf("pipeline: export evidence %s: %w", hash, err)
	}
	if err := schema.ValidateEvidenceBundle(bundle); err != nil {
		return fmt.Errorf("pipeline: export evidence %s: %w", hash, err)
	}
	data, err := schema.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("pipeline: export evidence %s: %w", hash, err)
	}
	if err := writeArchiveAtomic(outPath, data); err != nil {
		return fmt.Errorf("pipeline: export evidence %s: %w", hash, err)
	}
	return rc.Store.AppendCustody(hash, schema.ChainOfCustodyEntry{
		Timestamp: rc.Now(),
		Actor:     actor,
		Action:    schema.CustodyExport,
		Note:      "bundle exported to " + outPath,
	})
}

// renderCorrelationInput builds a human-readable digest of the case's
// evidence and correlation state for summarize_case, mirroring the
// correlator's own digest rendering for detect_legal_patterns
// (pkg/correlate/patterns.go renderCorrelationDigest).
func renderCorrelationInput(caseID string, correlation *schema.CorrelationResult, bundles []schema.EvidenceBundle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "case: %s\nevidence_count: %d\n", caseID, len(bundles))
	if correlation != nil {
		fmt.Fprintf(&b, "\nentities:\n")
		for _, e := range correlation.EntityCorrelations {
			fmt.Fprintf(&b, "- %s (%s), %d occurrences\n", e.CanonicalName, e.Type, len(e.Occurrences))
		}
		fmt.Fprintf(&b, "\ncontradictions: %d, corroborations: %d, evidence_gaps: %d\n",
			len(correlation.LegalPatterns.Contradictions),
			len(correlation.LegalPatterns.Corroborations),
			len(correlation.LegalPatterns.EvidenceGaps))
	}
	return b.String()
}

func writeArchiveAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
