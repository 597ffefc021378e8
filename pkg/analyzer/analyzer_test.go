package analyzer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/evidence-toolkit/core/pkg/analyzer"
	"github.com/evidence-toolkit/core/pkg/config"
	"github.com/evidence-toolkit/core/pkg/oracle"
	"github.com/evidence-toolkit/core/pkg/runctx"
	"github.com/evidence-toolkit/core/pkg/schema"
	"github.com/evidence-toolkit/core/pkg/store"
	"github.com/stretchr/testify/require"
)

// fakeOracle returns scripted results and counts calls per evidence type,
// letting these tests exercise analyzer idempotency without a live endpoint.
type fakeOracle struct {
	docCalls, emailCalls, imageCalls int
	doc                              *schema.DocumentAnalysis
	email                            *schema.EmailAnalysis
	image                            *schema.ImageAnalysis
}

func (f *fakeOracle) AnalyzeDocument(ctx context.Context, req oracle.DocumentRequest) (*schema.DocumentAnalysis, oracle.CallMeta, error) {
	f.docCalls++
	return f.doc, oracle.CallMeta{Model: schema.AnalysisModelInfo{Name: "fake", Revision: "v1"}, PromptHash: "ph"}, nil
}
func (f *fakeOracle) AnalyzeEmail(ctx context.Context, req oracle.EmailRequest) (*schema.EmailAnalysis, oracle.CallMeta, error) {
	f.emailCalls++
	return f.email, oracle.CallMeta{Model: schema.AnalysisModelInfo{Name: "fake", Revision: "v1"}, PromptHash: "ph"}, nil
}
func (f *fakeOracle) AnalyzeImage(ctx context.Context, req oracle.ImageRequest) (*schema.ImageAnalysis, oracle.CallMeta, error) {
	f.imageCalls++
	return f.image, oracle.CallMeta{Model: schema.AnalysisModelInfo{Name: "fake", Revision: "v1"}, PromptHash: "ph"}, nil
}
func (f *fakeOracle) ResolveEntityPair(ctx context.Context, req oracle.EntityPairRequest) (*schema.EntityMatchDecision, oracle.CallMeta, error) {
	return nil, oracle.CallMeta{}, nil
}
func (f *fakeOracle) SummarizeCase(ctx context.Context, req oracle.SummarizeRequest) (*schema.ExecutiveSummary, oracle.CallMeta, error) {
	return nil, oracle.CallMeta{}, nil
}
func (f *fakeOracle) DetectPatterns(ctx context.Context, req oracle.PatternsRequest) (*schema.LegalPatterns, oracle.CallMeta, error) {
	return nil, oracle.CallMeta{}, nil
}

func newRunContext(t *testing.T, oc oracle.Client) (*runctx.RunContext, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir())
	cfg := config.Load()
	return runctx.New(st, oc, cfg, nil), st
}

func ingestText(t *testing.T, st *store.Store, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	res, err := st.Ingest(path, "CASE-1", "tester")
	require.NoError(t, err)
	return res.SHA256
}

func TestDocumentAnalyzer_CallsOracleAndPersists(t *testing.T) {
	fo := &fakeOracle{doc: &schema.DocumentAnalysis{Summary: "a letter", DocumentType: "letter", ConfidenceOverall: 0.7}}
	rc, st := newRunContext(t, fo)
	hash := ingestText(t, st, "letter.txt", "Dear Sir, this is a formal letter about the deadline.")

	result, err := analyzer.DocumentAnalyzer{}.Analyze(context.Background(), rc, hash)
	require.NoError(t, err)
	require.Equal(t, 1, fo.docCalls)
	require.True(t, result.OracleHit)
	require.Equal(t, schema.EvidenceTypeDocument, result.Record.EvidenceType)
	require.NotNil(t, result.Record.Document.WordFrequency)
	require.Greater(t, result.Record.Document.WordFrequency.TotalWords, 0)

	analyses, err := st.Analyses(hash)
	require.NoError(t, err)
	require.Len(t, analyses, 1)
}

func TestDocumentAnalyzer_ReusesExistingAnalysis(t *testing.T) {
	fo := &fakeOracle{doc: &schema.DocumentAnalysis{Summary: "a letter"}}
	rc, st := newRunContext(t, fo)
	hash := ingestText(t, st, "letter.txt", "some repeated content")

	a := analyzer.DocumentAnalyzer{}
	_, err := a.Analyze(context.Background(), rc, hash)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), rc, hash)
	require.NoError(t, err)

	require.Equal(t, 1, fo.docCalls, "the second call must reuse the persisted record, not call the oracle again")
	require.False(t, second.OracleHit)
}

func TestEmailAnalyzer_Persists(t *testing.T) {
	fo := &fakeOracle{email: &schema.EmailAnalysis{ThreadSummary: "escalating exchange", ConfidenceOverall: 0.6}}
	rc, st := newRunContext(t, fo)
	hash := ingestText(t, st, "thread.eml", "From: a@example.com\nTo: b@example.com\nSubject: hi\n\nbody text")

	result, err := analyzer.EmailAnalyzer{}.Analyze(context.Background(), rc, hash)
	require.NoError(t, err)
	require.Equal(t, 1, fo.emailCalls)
	require.Equal(t, schema.EvidenceTypeEmail, result.Record.EvidenceType)
	require.Equal(t, "escalating exchange", result.Record.Email.ThreadSummary)
}

func TestForType_SelectsAnalyzerByEvidenceType(t *testing.T) {
	a, err := analyzer.ForType(schema.EvidenceTypeDocument, analyzer.Prompts{})
	require.NoError(t, err)
	require.IsType(t, analyzer.DocumentAnalyzer{}, a)

	_, err = analyzer.ForType(schema.EvidenceTypeOther, analyzer.Prompts{})
	require.Error(t, err)
}
