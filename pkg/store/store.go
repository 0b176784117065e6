package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	getter "github.com/hashicorp/go-getter"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// ErrUnknownFormat is returned by Extract for an archive format with no
// registered decompressor.
var ErrUnknownFormat = errors.New("unknown archive format")

// Store is the filesystem the scaffolder writes to, rooted at the themes
// directory. Segments are joined under the root; none of the methods
// resolve or reject paths that escape it.
type Store interface {
	// Path returns the filesystem path for the given segments joined under
	// the store root. Does not create or verify the path.
	Path(segments ...string) string
	// Exists reports whether the path at the given segments exists.
	Exists(segments ...string) (bool, error)
	// EnsureDir creates the directory at segments, including parents.
	EnsureDir(segments ...string) error
	// ReadDir returns the sorted entry names of the directory at segments.
	// A missing directory has no entries.
	ReadDir(segments ...string) ([]string, error)
	// IsDir reports whether segments names an existing directory.
	IsDir(segments ...string) bool
	// WriteTemp writes data to a new temporary file outside the store and
	// returns its path. The caller removes it.
	WriteTemp(data []byte, pattern string) (string, error)
	// Extract unpacks the zip archive at path into the directory at
	// segments.
	Extract(path string, segments ...string) error
	// CopyDir copies the tree at src into dst, both relative to the root,
	// overwriting files that already exist.
	CopyDir(src, dst string) error
	// Remove deletes the entire tree at segments.
	Remove(segments ...string) error
	// RemoveFile deletes the file at segments. A missing file is not an
	// error.
	RemoveFile(segments ...string) error
	// WriteFile writes data to the file at segments.
	// Parent directories must already exist.
	WriteFile(data []byte, perm os.FileMode, segments ...string) error
	// ReadFile reads the file at segments.
	ReadFile(segments ...string) ([]byte, error)
}

func New(root string) Store {
	return &store{root: root, format: "zip"}
}

type store struct {
	root   string
	format string
}

var _ Store = &store{}

func (s *store) Path(segments ...string) string {
	return filepath.Join(append([]string{s.root}, segments...)...)
}

func (s *store) Exists(segments ...string) (bool, error) {
	_, err := os.Stat(s.Path(segments...))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *store) EnsureDir(segments ...string) error {
	return os.MkdirAll(s.Path(segments...), dirPerm)
}

func (s *store) ReadDir(segments ...string) ([]string, error) {
	entries, err := os.ReadDir(s.Path(segments...))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *store) IsDir(segments ...string) bool {
	info, err := os.Stat(s.Path(segments...))
	return err == nil && info.IsDir()
}

func (s *store) WriteTemp(data []byte, pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return f.Name(), nil
}

func (s *store) Extract(path string, segments ...string) error {
	dec, ok := getter.Decompressors[s.format]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFormat, s.format)
	}
	return dec.Decompress(s.Path(segments...), path, true, 0)
}

func (s *store) CopyDir(src, dst string) error {
	srcRoot := s.Path(filepath.FromSlash(src))
	dstRoot := s.Path(filepath.FromSlash(dst))

	return filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dstRoot, rel)

		if d.IsDir() {
			return os.MkdirAll(target, dirPerm)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

func (s *store) Remove(segments ...string) error {
	return os.RemoveAll(s.Path(segments...))
}

func (s *store) RemoveFile(segments ...string) error {
	err := os.Remove(s.Path(segments...))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *store) WriteFile(data []byte, perm os.FileMode, segments ...string) error {
	if perm == 0 {
		perm = filePerm
	}
	return os.WriteFile(s.Path(segments...), data, perm)
}

func (s *store) ReadFile(segments ...string) ([]byte, error) {
	return os.ReadFile(s.Path(segments...))
}
