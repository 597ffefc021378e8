package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evidence-toolkit/core/pkg/schema"
)

func (s *Store) readMetadata(hash string) (schema.FileMetadata, error) {
	data, err := os.ReadFile(s.metadataPath(hash))
	if os.IsNotExist(err) {
		return schema.FileMetadata{}, ErrNotFound
	}
	if err != nil {
		return schema.FileMetadata{}, fmt.Errorf("store: read metadata for %s: %w", hash, err)
	}
	var meta schema.FileMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return schema.FileMetadata{}, fmt.Errorf("store: decode metadata for %s: %w", hash, err)
	}
	return meta, nil
}

func (s *Store) readAnalyses(hash string) ([]schema.AnalysisRecord, error) {
	data, err := os.ReadFile(s.analysisPath(hash))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read analyses for %s: %w", hash, err)
	}
	var records []schema.AnalysisRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("store: decode analyses for %s: %w", hash, err)
	}
	return records, nil
}

// ReadBundle returns the current EvidenceBundle for hash. When an
// evidence_bundle.v1.json has been persisted (i.e. the evidence has been
// analyzed), its bytes are schema-validated before decoding — every read
// validates. Evidence that has only been ingested has no bundle file
// yet; its bundle is assembled from metadata, custody log, and (empty)
// analyses. Returns ErrNotFound if the evidence has never been ingested.
func (s *Store) ReadBundle(hash string) (*schema.EvidenceBundle, error) {
	if !validDigest(hash) {
		return nil, findingDigestError(hash)
	}
	if data, err := os.ReadFile(s.bundlePath(hash)); err == nil {
		if err := schema.ValidateBundleBytes("evidence_bundle", data); err != nil {
			return nil, fmt.Errorf("store: bundle for %s failed validation: %w", hash, err)
		}
		var b schema.EvidenceBundle
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("store: decode bundle for %s: %w", hash, err)
		}
		return &b, nil
	}
	meta, err := s.readMetadata(hash)
	if err != nil {
		return nil, err
	}
	custody, err := s.readCustodyLocked(hash)
	if err != nil {
		return nil, err
	}
	analyses, err := s.readAnalyses(hash)
	if err != nil {
		return nil, err
	}
	if custody == nil {
		custody = []schema.ChainOfCustodyEntry{}
	}
	if analyses == nil {
		analyses = []schema.AnalysisRecord{}
	}
	return &schema.EvidenceBundle{
		SchemaVersion:  schema.BundleSchemaVersion,
		Evidence:       meta,
		ChainOfCustody: custody,
		Analyses:       analyses,
	}, nil
}

// List returns the hashes of all evidence in the store, or of only the
// evidence linked to caseID when it is non-empty.
func (s *Store) List(caseID string) ([]string, error) {
	if caseID != "" {
		return s.listDir(s.caseDir(caseID), true)
	}
	return s.listRawHashes()
}

// listDir lists a labels/<label> or cases/<case> directory's entries,
// stripping each filename's hash prefix back out of "<hash><ext>".
func (s *Store) listDir(dir string, stripExt bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", dir, err)
	}
	hashes := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if stripExt {
			if i := strings.IndexByte(name, '.'); i > 0 {
				name = name[:i]
			}
		}
		if validDigest(name) {
			hashes = append(hashes, name)
		}
	}
	return hashes, nil
}

func (s *Store) listRawHashes() ([]string, error) {
	rawRoot := filepath.Join(s.root, "raw")
	entries, err := os.ReadDir(rawRoot)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", rawRoot, err)
	}
	hashes := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		const prefix = "sha256="
		if strings.HasPrefix(name, prefix) {
			hash := name[len(prefix):]
			if validDigest(hash) {
				hashes = append(hashes, hash)
			}
		}
	}
	return hashes, nil
}
