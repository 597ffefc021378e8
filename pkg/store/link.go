package store

import (
	"fmt"

	"github.com/evidence-toolkit/core/pkg/hashing"
)

// LinkToCase creates cases/<case_id>/<hash><ext> as a hard link to
// raw/sha256=<hash>/original<ext>, falling back to a copy when hard links
// are unavailable (cross-device or an unsupporting filesystem). The link
// target is re-hashed and compared to hash before returning; a case view
// must hash identically to the raw entry it links.
func (s *Store) LinkToCase(hash, caseID string) error {
	if !validDigest(hash) {
		return findingDigestError(hash)
	}
	meta, err := s.readMetadata(hash)
	if err != nil {
		return err
	}
	src := s.rawPath(hash, meta.Extension)
	dst := s.casePath(caseID, hash, meta.Extension)
	return s.linkVerified(src, dst, hash)
}

// linkLabel creates labels/<label>/<hash><ext> the same way LinkToCase links
// into cases/.
func (s *Store) linkLabel(hash, label, ext string) error {
	src := s.rawPath(hash, ext)
	dst := s.labelPath(label, hash, ext)
	return s.linkVerified(src, dst, hash)
}

func (s *Store) linkVerified(src, dst, wantHash string) error {
	if err := linkOrCopy(src, dst); err != nil {
		return fmt.Errorf("store: link %s -> %s: %w", src, dst, err)
	}
	got, err := hashing.SHA256File(dst)
	if err != nil {
		return fmt.Errorf("store: verify link %s: %w", dst, err)
	}
	if got != wantHash {
		return fmt.Errorf("%w: %s hashes to %s, expected %s", ErrHashMismatch, dst, got, wantHash)
	}
	return nil
}
