package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/evidence-toolkit/core/pkg/schema"
)

func (s *Store) readCustodyLocked(hash string) ([]schema.ChainOfCustodyEntry, error) {
	path := s.custodyPath(hash)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read custody log %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []schema.ChainOfCustodyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("store: decode custody log %s: %w", path, err)
	}
	return entries, nil
}

// appendCustodyLocked appends entry to hash's custody log. The caller must
// already hold hash's lock (withHashLock).
func (s *Store) appendCustodyLocked(hash string, entry schema.ChainOfCustodyEntry) ([]schema.ChainOfCustodyEntry, error) {
	existing, err := s.readCustodyLocked(hash)
	if err != nil {
		return nil, err
	}
	if n := len(existing); n > 0 && entry.Timestamp.Before(existing[n-1].Timestamp) {
		return nil, ErrCustodyOrder
	}
	updated := append(existing, entry)
	if err := writeJSONAtomic(s.custodyPath(hash), updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// AppendCustody appends a single custody entry under the per-hash lock,
// enforcing monotonic timestamps.
func (s *Store) AppendCustody(hash string, entry schema.ChainOfCustodyEntry) error {
	if !validDigest(hash) {
		return findingDigestError(hash)
	}
	return s.withHashLock(hash, func() error {
		_, err := s.appendCustodyLocked(hash, entry)
		return err
	})
}
