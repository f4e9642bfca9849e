// Package storage is the durable key-value store used to persist calibration
// state and other small blobs. Keys are slash-separated paths relative to the
// store root (the mount point of the data volume).
package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store is byte-oriented storage addressed by relative paths.
type Store interface {
	Exists(name string) (bool, error)
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
}

// Entry describes one item returned by List.
type Entry struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	IsDir bool   `json:"isDir"`
}

// HumanSize formats the entry size in decimal units.
func (e Entry) HumanSize() string {
	switch {
	case e.Size < 1000:
		return fmt.Sprintf("%d bytes", e.Size)
	case e.Size < 1000000:
		return fmt.Sprintf("%0.1f KB", float64(e.Size)/1000)
	default:
		return fmt.Sprintf("%0.1f MB", float64(e.Size)/1000000)
	}
}

// String returns the name with a trailing slash for directories.
func (e Entry) String() string {
	if e.IsDir {
		return e.Name + "/"
	}
	return e.Name
}

// FS is a Store backed by an afero filesystem.
type FS struct {
	fs afero.Fs
}

var _ Store = (*FS)(nil)

// New wraps fs. All keys are resolved relative to the root of fs.
func New(fs afero.Fs) *FS {
	return &FS{fs: fs}
}

// Open returns a store rooted at dir on the host filesystem, creating dir
// when it does not exist yet.
func Open(dir string) (*FS, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0755); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to create storage root %s", dir)
	}
	return New(afero.NewBasePathFs(osFs, dir)), nil
}

func clean(name string) string {
	return path.Clean("/" + strings.TrimPrefix(name, "/"))
}

func (s *FS) Exists(name string) (bool, error) {
	ok, err := afero.Exists(s.fs, clean(name))
	if err != nil {
		return false, pkgerrors.Wrapf(err, "failed to stat %s", name)
	}
	return ok, nil
}

func (s *FS) Read(name string) ([]byte, error) {
	b, err := afero.ReadFile(s.fs, clean(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, pkgerrors.Wrapf(err, "failed to read %s", name)
	}
	return b, nil
}

// Write replaces the content of name, creating parent directories as needed.
func (s *FS) Write(name string, data []byte) error {
	p := clean(name)
	if err := s.fs.MkdirAll(path.Dir(p), 0755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create parent of %s", name)
	}
	if err := afero.WriteFile(s.fs, p, data, 0644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write %s", name)
	}
	return nil
}

// Append adds data to the end of name, creating it if needed.
func (s *FS) Append(name string, data []byte) error {
	p := clean(name)
	if err := s.fs.MkdirAll(path.Dir(p), 0755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create parent of %s", name)
	}
	f, err := s.fs.OpenFile(p, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open %s", name)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return pkgerrors.Wrapf(err, "failed to append to %s", name)
	}
	return f.Close()
}

// Remove deletes name. Removing a missing key is not an error.
func (s *FS) Remove(name string) error {
	err := s.fs.Remove(clean(name))
	if err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "failed to remove %s", name)
	}
	return nil
}

// List returns the entries of dir sorted by name.
func (s *FS) List(dir string) ([]Entry, error) {
	infos, err := afero.ReadDir(s.fs, clean(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory %s: %w", dir, ErrNotFound)
		}
		return nil, pkgerrors.Wrapf(err, "failed to list %s", dir)
	}

	entries := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, Entry{
			Name:  fi.Name(),
			Size:  fi.Size(),
			IsDir: fi.IsDir(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
