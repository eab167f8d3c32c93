//go:build !unix

package file

import (
	"fmt"
	"os"
)

// lockFile only creates the lock file on platforms without flock. Writers
// are serialised within one process; run a single writer per data dir there.
func lockFile(path string, _ bool) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock %s: %w", path, err)
	}
	return func() { _ = f.Close() }, nil
}
