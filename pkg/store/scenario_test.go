package store

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/evidence-toolkit/core/pkg/hashing"
	"github.com/evidence-toolkit/core/pkg/schema"
	"github.com/stretchr/testify/require"
)

// TestScenario_SingleDocumentNoCase: ingesting a 6-byte UTF-8 text file
// "Hello." without a case produces raw/sha256=<h>/original.txt where <h> is
// the SHA-256 of those bytes, metadata reporting size 6 / ".txt" /
// "text/plain", and exactly one "ingest" custody entry.
func TestScenario_SingleDocumentNoCase(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(src, []byte("Hello."), 0o644))

	want := sha256.Sum256([]byte("Hello."))
	wantHex := hex.EncodeToString(want[:])

	res, err := s.Ingest(src, "", "tester")
	require.NoError(t, err)
	require.Equal(t, wantHex, res.SHA256)
	require.FileExists(t, s.rawPath(wantHex, ".txt"))

	meta, err := s.Metadata(wantHex)
	require.NoError(t, err)
	require.Equal(t, int64(6), meta.Size)
	require.Equal(t, ".txt", meta.Extension)
	require.Equal(t, "text/plain", meta.MIMEType)

	custody, err := s.Custody(wantHex)
	require.NoError(t, err)
	require.Len(t, custody, 1)
	require.Equal(t, schema.CustodyIngest, custody[0].Action)
}

// TestScenario_Deduplication: ingesting identical contents under two
// different filenames stores the bytes once and records two custody
// entries.
func TestScenario_Deduplication(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("X"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("X"), 0o644))

	ra, err := s.Ingest(a, "", "tester")
	require.NoError(t, err)
	rb, err := s.Ingest(b, "", "tester")
	require.NoError(t, err)
	require.Equal(t, ra.SHA256, rb.SHA256)
	require.True(t, rb.AlreadyExisted)

	rawEntries, err := os.ReadDir(filepath.Join(s.root, "raw"))
	require.NoError(t, err)
	require.Len(t, rawEntries, 1, "identical bytes must not duplicate raw storage")

	custody, err := s.Custody(ra.SHA256)
	require.NoError(t, err)
	require.Len(t, custody, 2)
}

// TestScenario_CaseLinking: linking one evidence item into two cases gives
// two case views that both hash identically to the raw file.
func TestScenario_CaseLinking(t *testing.T) {
	s := newTestStore(t)
	src := writeSourceFile(t, "a.txt", "shared evidence")

	res, err := s.Ingest(src, "C1", "tester")
	require.NoError(t, err)
	require.NoError(t, s.LinkToCase(res.SHA256, "C2"))

	for _, caseID := range []string{"C1", "C2"} {
		link := s.casePath(caseID, res.SHA256, ".txt")
		h, err := hashing.SHA256File(link)
		require.NoError(t, err)
		require.Equal(t, res.SHA256, h)
	}
}
