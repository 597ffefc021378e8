package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/evidence-toolkit/core/pkg/schema"
)

// Metadata returns the FileMetadata recorded at ingest for hash.
func (s *Store) Metadata(hash string) (schema.FileMetadata, error) {
	if !validDigest(hash) {
		return schema.FileMetadata{}, findingDigestError(hash)
	}
	return s.readMetadata(hash)
}

// RawPath returns the on-disk path to hash's original bytes. Callers read
// through this path directly (the filesystem layout is a documented,
// read-only external interface); writes must still go through
// Store methods.
func (s *Store) RawPath(hash string) (string, error) {
	meta, err := s.Metadata(hash)
	if err != nil {
		return "", err
	}
	return s.rawPath(hash, meta.Extension), nil
}

// ReadRaw reads hash's original bytes in full.
func (s *Store) ReadRaw(hash string) ([]byte, error) {
	path, err := s.RawPath(hash)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read raw %s: %w", hash, err)
	}
	return data, nil
}

// DerivedArtifacts reassembles the DerivedArtifacts side data for hash from
// its on-disk exif.json/phash.txt/metadata, empty fields where not applicable.
func (s *Store) DerivedArtifacts(hash string) (schema.DerivedArtifacts, error) {
	meta, err := s.Metadata(hash)
	if err != nil {
		return schema.DerivedArtifacts{}, err
	}
	out := schema.DerivedArtifacts{SHA256: hash, MIMEType: meta.MIMEType}

	if data, err := os.ReadFile(s.exifPath(hash)); err == nil {
		_ = json.Unmarshal(data, &out.EXIF)
	}
	if data, err := os.ReadFile(s.phashPath(hash)); err == nil {
		out.PerceptualHash = string(data)
	}
	return out, nil
}

// Analyses returns the full analysis history recorded for hash.
func (s *Store) Analyses(hash string) ([]schema.AnalysisRecord, error) {
	if !validDigest(hash) {
		return nil, findingDigestError(hash)
	}
	return s.readAnalyses(hash)
}

// HasAnalysis reports whether an AnalysisRecord with the given analysisID
// is already persisted for hash — the idempotency check analyzers run
// before calling the oracle.
func (s *Store) HasAnalysis(hash, analysisID string) (bool, error) {
	analyses, err := s.Analyses(hash)
	if err != nil {
		return false, err
	}
	for _, a := range analyses {
		if a.AnalysisID == analysisID {
			return true, nil
		}
	}
	return false, nil
}

// Custody returns the full chain-of-custody log for hash.
func (s *Store) Custody(hash string) ([]schema.ChainOfCustodyEntry, error) {
	if !validDigest(hash) {
		return nil, findingDigestError(hash)
	}
	return s.readCustodyLocked(hash)
}
