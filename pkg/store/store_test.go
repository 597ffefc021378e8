package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evidence-toolkit/core/pkg/schema"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	return New(root)
}

func writeSourceFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestIngest_NewEvidenceCreatesLayout(t *testing.T) {
	s := newTestStore(t)
	src := writeSourceFile(t, "notes.txt", "some document text worth keeping")

	res, err := s.Ingest(src, "CASE-1", "tester")
	require.NoError(t, err)
	require.False(t, res.AlreadyExisted)
	require.True(t, res.CaseLinked)
	require.Equal(t, schema.EvidenceTypeDocument, res.EvidenceType)

	require.FileExists(t, s.rawPath(res.SHA256, ".txt"))
	require.FileExists(t, s.metadataPath(res.SHA256))
	require.FileExists(t, s.custodyPath(res.SHA256))
	require.FileExists(t, s.casePath("CASE-1", res.SHA256, ".txt"))
}

func TestIngest_IsIdempotent(t *testing.T) {
	s := newTestStore(t)
	src := writeSourceFile(t, "notes.txt", "identical content")

	r1, err := s.Ingest(src, "", "tester")
	require.NoError(t, err)
	r2, err := s.Ingest(src, "", "tester")
	require.NoError(t, err)
	require.Equal(t, r1.SHA256, r2.SHA256)
	require.True(t, r2.AlreadyExisted)

	custody, err := s.readCustodyLocked(r1.SHA256)
	require.NoError(t, err)
	require.Len(t, custody, 2, "re-ingesting appends a custody entry without duplicating raw bytes")
}

func TestLinkToCase_HashMismatchIsRejected(t *testing.T) {
	s := newTestStore(t)
	src := writeSourceFile(t, "notes.txt", "some content")
	res, err := s.Ingest(src, "", "tester")
	require.NoError(t, err)

	err = s.linkVerified(src, s.casePath("CASE-X", res.SHA256, ".txt"), "0000000000000000000000000000000000000000000000000000000000000000"[:64])
	require.ErrorIs(t, err, ErrHashMismatch)
}

func TestWriteAnalysis_BuildsValidBundleAndLabels(t *testing.T) {
	s := newTestStore(t)
	src := writeSourceFile(t, "letter.txt", "a letter with enough body text to analyze")
	res, err := s.Ingest(src, "CASE-1", "tester")
	require.NoError(t, err)

	rec := schema.AnalysisRecord{
		AnalysisID:   "a1",
		CreatedAt:    time.Now().UTC(),
		EvidenceType: schema.EvidenceTypeDocument,
		Model:        schema.AnalysisModelInfo{Name: "oracle-test", Revision: "r1"},
		Parameters:   schema.AnalysisParameters{Temperature: 0, PromptHash: "deadbeef"},
		Document: &schema.DocumentAnalysis{
			Summary:           "a short letter",
			DocumentType:      "letter",
			Sentiment:         "neutral",
			LegalSignificance: "low",
			RiskFlags:         []schema.RiskFlag{schema.RiskPII},
			ConfidenceOverall: 0.9,
		},
		ConfidenceOverall: 0.9,
	}
	require.NoError(t, s.WriteAnalysis(res.SHA256, rec))

	require.FileExists(t, s.labelPath("letter", res.SHA256, ".txt"))
	require.FileExists(t, s.labelPath(string(schema.RiskPII), res.SHA256, ".txt"))

	bundle, err := s.ReadBundle(res.SHA256)
	require.NoError(t, err)
	require.Len(t, bundle.Analyses, 1)
	require.NotNil(t, bundle.Canonical())
	require.NoError(t, schema.ValidateEvidenceBundle(bundle))
}

func TestList_FiltersByCase(t *testing.T) {
	s := newTestStore(t)
	a := writeSourceFile(t, "a.txt", "file a")
	b := writeSourceFile(t, "b.txt", "file b")

	ra, err := s.Ingest(a, "CASE-1", "tester")
	require.NoError(t, err)
	_, err = s.Ingest(b, "CASE-2", "tester")
	require.NoError(t, err)

	all, err := s.List("")
	require.NoError(t, err)
	require.Len(t, all, 2)

	case1, err := s.List("CASE-1")
	require.NoError(t, err)
	require.Equal(t, []string{ra.SHA256}, case1)
}

func TestReadBundle_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ReadBundle("0000000000000000000000000000000000000000000000000000000000000000"[:64])
	require.ErrorIs(t, err, ErrNotFound)
}
