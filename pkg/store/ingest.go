package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/evidence-toolkit/core/pkg/hashing"
	"github.com/evidence-toolkit/core/pkg/schema"
)

// IngestResult reports what Ingest actually did, distinguishing a fresh
// write from the idempotent "these bytes are already known" path.
type IngestResult struct {
	SHA256         string
	EvidenceType   schema.EvidenceType
	AlreadyExisted bool
	CaseLinked     bool
}

// Ingest hashes the file at path, stores it content-addressed under raw/,
// extracts derived artifacts appropriate to its type, and appends an
// "ingest" custody entry. Re-ingesting bytes already present is a no-op
// beyond possibly adding a case link and a fresh custody entry.
func (s *Store) Ingest(path, caseID, actor string) (*IngestResult, error) {
	hash, err := hashing.SHA256File(path)
	if err != nil {
		return nil, fmt.Errorf("store: hash %s: %w", path, err)
	}
	ext := filepath.Ext(path)

	var result *IngestResult
	err = s.withHashLock(hash, func() error {
		rawDst := s.rawPath(hash, ext)
		alreadyExisted := fileExists(rawDst)

		if !alreadyExisted {
			if err := copyFileAtomic(path, rawDst); err != nil {
				return fmt.Errorf("store: copy into raw store: %w", err)
			}
		}

		evidenceType, err := hashing.Classify(path)
		if err != nil {
			return fmt.Errorf("store: classify %s: %w", path, err)
		}

		if !alreadyExisted {
			if err := s.writeMetadataLocked(hash, path, ext, evidenceType); err != nil {
				return err
			}
			if err := s.writeDerivedArtifactsLocked(hash, path, evidenceType); err != nil {
				return err
			}
		}

		if _, err := s.appendCustodyLocked(hash, schema.ChainOfCustodyEntry{
			Timestamp: s.now().UTC(),
			Actor:     actor,
			Action:    schema.CustodyIngest,
		}); err != nil {
			return err
		}

		result = &IngestResult{SHA256: hash, EvidenceType: evidenceType, AlreadyExisted: alreadyExisted}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if caseID != "" {
		if err := s.LinkToCase(hash, caseID); err != nil {
			return result, fmt.Errorf("store: link %s to case %s: %w", hash, caseID, err)
		}
		result.CaseLinked = true
	}
	return result, nil
}

func (s *Store) writeMetadataLocked(hash, srcPath, ext string, evidenceType schema.EvidenceType) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("store: stat %s: %w", srcPath, err)
	}
	meta := schema.FileMetadata{
		SHA256:           hash,
		Size:             info.Size(),
		MIMEType:         hashing.MIMEGuess(srcPath),
		OriginalFilename: filepath.Base(srcPath),
		Extension:        ext,
		IngestedAt:       s.now().UTC(),
		SourceModifiedAt: info.ModTime().UTC(),
	}
	return writeJSONAtomic(s.metadataPath(hash), meta)
}

// writeDerivedArtifactsLocked computes and persists the type-specific
// derived artifacts named in the store layout: exif.json and phash.txt for
// images, nothing extra for other evidence types.
func (s *Store) writeDerivedArtifactsLocked(hash, srcPath string, evidenceType schema.EvidenceType) error {
	if evidenceType != schema.EvidenceTypeImage {
		return nil
	}
	exif := hashing.ExtractEXIF(srcPath)
	if err := writeJSONAtomic(s.exifPath(hash), exif); err != nil {
		return err
	}
	phash, err := hashing.PerceptualHash(srcPath)
	if err != nil {
		// Perceptual hashing can fail on corrupt or unsupported image codecs;
		// this must never fail ingestion.
		return nil
	}
	return writeFileAtomic(s.phashPath(hash), []byte(phash), 0o644)
}
