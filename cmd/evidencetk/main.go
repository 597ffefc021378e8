// Command evidencetk is a thin, convenience entry point over pkg/pipeline's
// five operations (process-case, ingest, analyze, correlate, export). The
// command-line parsing here is intentionally minimal: flag.FlagSet per
// subcommand, no dependency injection framework.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/evidence-toolkit/core/pkg/config"
	"github.com/evidence-toolkit/core/pkg/index"
	"github.com/evidence-toolkit/core/pkg/obs"
	"github.com/evidence-toolkit/core/pkg/oracle"
	"github.com/evidence-toolkit/core/pkg/pipeline"
	"github.com/evidence-toolkit/core/pkg/runctx"
	"github.com/evidence-toolkit/core/pkg/schema"
	"github.com/evidence-toolkit/core/pkg/store"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entry point for testing: it never calls os.Exit itself.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "process-case":
		return runProcessCase(args[2:], stdout, stderr)
	case "ingest":
		return runIngest(args[2:], stdout, stderr)
	case "analyze":
		return runAnalyze(args[2:], stdout, stderr)
	case "correlate":
		return runCorrelate(args[2:], stdout, stderr)
	case "export":
		return runExport(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "evidencetk <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  process-case --case <id> --dir <path>   run ingest, analyze, correlate, export in order")
	fmt.Fprintln(w, "  ingest       --case <id> --dir <path>   ingest a file or every file under --dir into the case")
	fmt.Fprintln(w, "  analyze      --case <id> | --sha <hex>  analyze evidence lacking a current analysis")
	fmt.Fprintln(w, "  correlate    --case <id>                run the cross-evidence correlator")
	fmt.Fprintln(w, "  export       --sha <hex> --out <path>   export one evidence bundle (or --case for an archive)")
}

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	caseID   string
	actor    string
	json     bool
	failFast bool
}

func bindCommon(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVar(&f.caseID, "case", "", "case id (required)")
	fs.StringVar(&f.actor, "actor", "evidencetk-cli", "actor recorded in chain-of-custody entries")
	fs.BoolVar(&f.json, "json", false, "emit the result as JSON")
	fs.BoolVar(&f.failFast, "fail-fast", false, "abort the stage on the first item failure")
}

func runProcessCase(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("process-case", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f commonFlags
	bindCommon(fs, &f)
	var caseDir, outPath, caseType string
	var maxConcurrent int
	var ratePerSecond float64
	var aiResolve bool
	fs.StringVar(&caseDir, "dir", "", "directory of source files to ingest (required)")
	fs.StringVar(&outPath, "out", "", "archive output path (defaults to <store-root>/<case>.zip)")
	fs.StringVar(&caseType, "case-type", "", "case type selecting pattern-detection defaults (workplace, contract_dispute, general)")
	fs.IntVar(&maxConcurrent, "max-concurrent", 0, "override config MAX_CONCURRENT")
	fs.Float64Var(&ratePerSecond, "rate", 0, "oracle calls per second (0 = unlimited)")
	fs.BoolVar(&aiResolve, "ai-resolve", false, "use the oracle for cross-variant entity resolution")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if f.caseID == "" || caseDir == "" {
		fmt.Fprintln(stderr, "process-case requires --case and --dir")
		return 2
	}

	rc, err := buildRunContext()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	defer closeIndex(rc)

	result, err := pipeline.ProcessCase(context.Background(), rc, caseDir, pipeline.Options{
		CaseID: f.caseID, CaseType: caseType, Actor: f.actor, FailFast: f.failFast,
		MaxConcurrent: maxConcurrent, RatePerSecond: ratePerSecond,
		AIResolve: aiResolve, ArchiveOut: outPath,
	})
	return emit(result, err, f.json, stdout, stderr)
}

func runIngest(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f commonFlags
	bindCommon(fs, &f)
	var caseDir string
	fs.StringVar(&caseDir, "dir", "", "directory of source files to ingest (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if f.caseID == "" || caseDir == "" {
		fmt.Fprintln(stderr, "ingest requires --case and --dir")
		return 2
	}

	rc, err := buildRunContext()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	defer closeIndex(rc)

	result, err := pipeline.Ingest(context.Background(), rc, caseDir, pipeline.Options{
		CaseID: f.caseID, Actor: f.actor, FailFast: f.failFast,
	})
	return emit(result, err, f.json, stdout, stderr)
}

func runAnalyze(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f commonFlags
	bindCommon(fs, &f)
	var maxConcurrent int
	var ratePerSecond float64
	var sha, typeOverride string
	fs.IntVar(&maxConcurrent, "max-concurrent", 0, "override config MAX_CONCURRENT")
	fs.Float64Var(&ratePerSecond, "rate", 0, "oracle calls per second (0 = unlimited)")
	fs.StringVar(&sha, "sha", "", "analyze a single evidence item by sha256 instead of a whole case")
	fs.StringVar(&typeOverride, "type", "", "override the classified evidence type (document, image, email)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if f.caseID == "" && sha == "" {
		fmt.Fprintln(stderr, "analyze requires --case or --sha")
		return 2
	}

	rc, err := buildRunContext()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	defer closeIndex(rc)

	if sha != "" {
		if err := pipeline.AnalyzeEvidence(context.Background(), rc, sha, schema.EvidenceType(typeOverride)); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 2
		}
		fmt.Fprintln(stdout, "ok")
		return 0
	}

	result, err := pipeline.Analyze(context.Background(), rc, pipeline.Options{
		CaseID: f.caseID, Actor: f.actor, FailFast: f.failFast,
		MaxConcurrent: maxConcurrent, RatePerSecond: ratePerSecond,
	})
	return emit(result, err, f.json, stdout, stderr)
}

func runCorrelate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("correlate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f commonFlags
	bindCommon(fs, &f)
	var aiResolve bool
	fs.BoolVar(&aiResolve, "ai-resolve", false, "use the oracle for cross-variant entity resolution")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if f.caseID == "" {
		fmt.Fprintln(stderr, "correlate requires --case")
		return 2
	}

	rc, err := buildRunContext()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	defer closeIndex(rc)

	result, err := pipeline.Correlate(context.Background(), rc, pipeline.Options{
		CaseID: f.caseID, Actor: f.actor, FailFast: f.failFast, AIResolve: aiResolve,
	})
	return emit(result, err, f.json, stdout, stderr)
}

func runExport(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f commonFlags
	bindCommon(fs, &f)
	var outPath, sha string
	fs.StringVar(&outPath, "out", "", "output path (bundle JSON for --sha, archive for --case)")
	fs.StringVar(&sha, "sha", "", "export a single evidence bundle by sha256 instead of a case archive")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if f.caseID == "" && sha == "" {
		fmt.Fprintln(stderr, "export requires --case or --sha")
		return 2
	}

	rc, err := buildRunContext()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	defer closeIndex(rc)

	if sha != "" {
		if outPath == "" {
			fmt.Fprintln(stderr, "export --sha requires --out")
			return 2
		}
		if err := pipeline.ExportEvidence(rc, sha, outPath, f.actor); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 2
		}
		fmt.Fprintln(stdout, "ok")
		return 0
	}

	result, err := pipeline.Export(context.Background(), rc, pipeline.Options{
		CaseID: f.caseID, Actor: f.actor, FailFast: f.failFast,
	}, outPath)
	return emit(result, err, f.json, stdout, stderr)
}

// buildRunContext wires a Store, an oracle Client, and (best-effort) a
// derived query Index from environment configuration.
func buildRunContext() (*runctx.RunContext, error) {
	cfg := config.Load()
	apiKey := cfg.OracleAPIKey
	if apiKey == "" && cfg.JWTSecret != "" {
		tok, err := oracle.MintBearerToken([]byte(cfg.JWTSecret), "evidencetk", time.Hour)
		if err != nil {
			return nil, fmt.Errorf("mint oracle bearer token: %w", err)
		}
		apiKey = tok
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ORACLE_API_KEY is not set")
	}

	st := store.New(cfg.StoreRoot)
	oc := oracle.New(oracle.Options{
		BaseURL:       cfg.OracleBaseURL,
		APIKey:        apiKey,
		Model:         cfg.OracleModel,
		ModelRevision: cfg.OracleModelRevision,
		MaxConcurrent: cfg.MaxConcurrent,
		Retry:         oracle.DefaultRetryConfig(),
		RedisURL:      cfg.RedisURL,
	})

	rc := runctx.New(st, oc, cfg, nil)

	if provider, err := obs.New(context.Background(), nil); err == nil {
		rc.WithObs(provider)
	}

	if cfg.IndexPath != "" {
		idx, err := index.Open(cfg.IndexPath)
		if err != nil {
			// The index is an accelerant cache only; a failure to open it
			// never blocks a run.
			fmt.Fprintf(os.Stderr, "warning: derived index unavailable: %v\n", err)
		} else {
			rc.WithIndex(idx)
		}
	}
	return rc, nil
}

func closeIndex(rc *runctx.RunContext) {
	if rc.Index != nil {
		_ = rc.Index.Close()
	}
	if rc.Obs != nil {
		_ = rc.Obs.Shutdown(context.Background())
	}
}

func emit(result *pipeline.RunResult, err error, asJSON bool, stdout, stderr io.Writer) int {
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	if asJSON {
		type failure struct {
			Stage string `json:"stage"`
			Item  string `json:"item"`
			Error string `json:"error"`
		}
		out := struct {
			ExitCode int       `json:"exit_code"`
			Failures []failure `json:"failures,omitempty"`
		}{ExitCode: result.ExitCode}
		for _, f := range result.Failures {
			out.Failures = append(out.Failures, failure{Stage: f.Stage, Item: f.Item, Error: f.Err.Error()})
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Fprintln(stdout, string(data))
		return result.ExitCode
	}

	if len(result.Failures) == 0 {
		fmt.Fprintln(stdout, "ok")
	} else {
		for _, f := range result.Failures {
			fmt.Fprintf(stderr, "%s\n", f.Error())
		}
	}
	return result.ExitCode
}
