//go:build unix

package store

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// lockCustodyFile takes an exclusive OS advisory lock (flock) on a sidecar
// .lock file next to hash's custody log and returns a function that releases
// the lock and closes the file descriptor. The lock lives on a file that is
// never renamed: locking the custody log itself would leave a second process
// holding a lock on the pre-rename inode after an atomic rewrite.
func (s *Store) lockCustodyFile(hash string) (func(), error) {
	path := s.custodyPath(hash) + ".lock"
	if err := os.MkdirAll(s.derivedDir(hash), 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir %s: %w", s.derivedDir(hash), err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open custody lock file %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("store: flock %s: %w", path, err)
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}
