package store

import (
	"fmt"
	"path/filepath"
	"regexp"
)

var hexDigest = regexp.MustCompile(`^[a-f0-9]{64}$`)

func validDigest(hash string) bool {
	return hexDigest.MatchString(hash)
}

func (s *Store) rawDir(hash string) string {
	return filepath.Join(s.root, "raw", "sha256="+hash)
}

func (s *Store) rawPath(hash, ext string) string {
	return filepath.Join(s.rawDir(hash), "original"+ext)
}

func (s *Store) derivedDir(hash string) string {
	return filepath.Join(s.root, "derived", "sha256="+hash)
}

func (s *Store) metadataPath(hash string) string { return filepath.Join(s.derivedDir(hash), "metadata.json") }
func (s *Store) exifPath(hash string) string     { return filepath.Join(s.derivedDir(hash), "exif.json") }
func (s *Store) phashPath(hash string) string    { return filepath.Join(s.derivedDir(hash), "phash.txt") }
func (s *Store) analysisPath(hash string) string {
	return filepath.Join(s.derivedDir(hash), "analysis.v1.json")
}
func (s *Store) bundlePath(hash string) string {
	return filepath.Join(s.derivedDir(hash), "evidence_bundle.v1.json")
}
func (s *Store) custodyPath(hash string) string {
	return filepath.Join(s.derivedDir(hash), "chain_of_custody.json")
}

func (s *Store) labelDir(label string) string {
	return filepath.Join(s.root, "labels", label)
}

func (s *Store) labelPath(label, hash, ext string) string {
	return filepath.Join(s.labelDir(label), hash+ext)
}

func (s *Store) caseDir(caseID string) string {
	return filepath.Join(s.root, "cases", caseID)
}

func (s *Store) casePath(caseID, hash, ext string) string {
	return filepath.Join(s.caseDir(caseID), hash+ext)
}

func findingDigestError(hash string) error {
	return fmt.Errorf("%w: %q", ErrInvalidDigest, hash)
}
