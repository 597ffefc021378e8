//go:build property
// +build property

package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/evidence-toolkit/core/pkg/hashing"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// ingest(b).sha256 == sha256(b), and reading back the raw file re-hashes
// to the same value.
func TestProperty_IngestIdentity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("ingest hash matches sha256 of input bytes", prop.ForAll(
		func(data []byte) bool {
			if len(data) == 0 {
				return true
			}
			dir := t.TempDir()
			src := filepath.Join(dir, "evidence.txt")
			if err := os.WriteFile(src, data, 0o644); err != nil {
				return false
			}
			s := New(t.TempDir())
			res, err := s.Ingest(src, "", "prop-tester")
			if err != nil {
				return false
			}
			want := sha256.Sum256(data)
			if res.SHA256 != hex.EncodeToString(want[:]) {
				return false
			}
			raw, err := s.ReadRaw(res.SHA256)
			if err != nil {
				return false
			}
			got, err := hashing.SHA256Reader(bytes.NewReader(raw))
			if err != nil {
				return false
			}
			return got == res.SHA256
		},
		gen.SliceOf(gen.UInt8Range(0, 255)),
	))

	properties.TestingRun(t)
}

// Re-ingesting identical bytes yields the same stored raw file and exactly
// one extra ingest custody entry.
func TestProperty_IngestIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("re-ingesting identical bytes is idempotent", prop.ForAll(
		func(data []byte, n int) bool {
			if len(data) == 0 {
				return true
			}
			times := 1 + n%4
			dir := t.TempDir()
			src := filepath.Join(dir, "evidence.txt")
			if err := os.WriteFile(src, data, 0o644); err != nil {
				return false
			}
			s := New(t.TempDir())

			var firstHash string
			for i := 0; i < times; i++ {
				res, err := s.Ingest(src, "", "prop-tester")
				if err != nil {
					return false
				}
				if i == 0 {
					firstHash = res.SHA256
				} else if res.SHA256 != firstHash || !res.AlreadyExisted {
					return false
				}
			}
			custody, err := s.readCustodyLocked(firstHash)
			if err != nil {
				return false
			}
			return len(custody) == times
		},
		gen.SliceOf(gen.UInt8Range(0, 255)),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}

// Custody timestamps for a hash never decrease across repeated appends.
func TestProperty_CustodyMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("custody timestamps are non-decreasing", prop.ForAll(
		func(n int) bool {
			dir := t.TempDir()
			src := filepath.Join(dir, "evidence.txt")
			if err := os.WriteFile(src, []byte("fixed content for monotonicity"), 0o644); err != nil {
				return false
			}
			s := New(t.TempDir())
			res, err := s.Ingest(src, "", "prop-tester")
			if err != nil {
				return false
			}
			for i := 0; i < n%5; i++ {
				if _, err := s.Ingest(src, "", "prop-tester"); err != nil {
					return false
				}
			}
			custody, err := s.readCustodyLocked(res.SHA256)
			if err != nil {
				return false
			}
			for i := 1; i < len(custody); i++ {
				if custody[i].Timestamp.Before(custody[i-1].Timestamp) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}

// For every case-link, sha256(link) == sha256(raw(link)).
func TestProperty_CaseLinkIntegrity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("case links hash identically to their raw file", prop.ForAll(
		func(data []byte, caseID string) bool {
			if len(data) == 0 || caseID == "" {
				return true
			}
			dir := t.TempDir()
			src := filepath.Join(dir, "evidence.txt")
			if err := os.WriteFile(src, data, 0o644); err != nil {
				return false
			}
			s := New(t.TempDir())
			res, err := s.Ingest(src, caseID, "prop-tester")
			if err != nil {
				return false
			}
			meta, err := s.readMetadata(res.SHA256)
			if err != nil {
				return false
			}
			linkPath := s.casePath(caseID, res.SHA256, meta.Extension)
			linkHash, err := hashing.SHA256File(linkPath)
			if err != nil {
				return false
			}
			rawHash, err := hashing.SHA256File(s.rawPath(res.SHA256, meta.Extension))
			if err != nil {
				return false
			}
			return linkHash == rawHash && linkHash == res.SHA256
		},
		gen.SliceOf(gen.UInt8Range(0, 255)),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

