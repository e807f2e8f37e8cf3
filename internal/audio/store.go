// Package audio persists recorded voice messages on local disk.
package audio

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/comigor/meditranslate-go/internal/errs"
)

// DefaultExt is the extension given to every saved recording.
const DefaultExt = ".wav"

// Store writes recordings under a fixed directory. Files are never deleted.
type Store struct {
	dir string
	ext string
}

// New returns a store rooted at dir. The directory is created on first Save.
func New(dir string) *Store {
	return &Store{dir: dir, ext: DefaultExt}
}

// Dir returns the directory recordings are written to.
func (s *Store) Dir() string { return s.dir }

// Save writes data verbatim to a new uniquely named file and returns its path.
func (s *Store) Save(data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", errs.Storage("mkdir", s.dir, err)
	}
	path := filepath.Join(s.dir, uuid.NewString()+s.ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errs.Storage("write", path, err)
	}
	return path, nil
}

// Resolve maps a bare file name back to a path inside the store. Names that
// try to leave the directory resolve to false.
func (s *Store) Resolve(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", false
	}
	return filepath.Join(s.dir, name), true
}
