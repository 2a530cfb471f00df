package source

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

var (
	ErrDirectoryNotFound = errors.New("input directory not found")
	ErrIO                = errors.New("input directory unreadable")
	ErrNoInputFrames     = errors.New("no input frames")
)

// FileSystem is the filesystem capability used by the assembler.
// Not-found errors must satisfy errors.Is(err, fs.ErrNotExist).
type FileSystem interface {
	ReadDir(name string) ([]fs.DirEntry, error)
	Open(name string) (io.ReadCloser, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
}

// OSFileSystem реализует FileSystem поверх пакета os.
type OSFileSystem struct{}

func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
func (OSFileSystem) Open(name string) (io.ReadCloser, error)    { return os.Open(name) }
func (OSFileSystem) ReadFile(name string) ([]byte, error)       { return os.ReadFile(name) }
func (OSFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}

// FrameSource is the ordered list of frame paths for one assembly.
type FrameSource struct {
	paths []string
}

// Scan lists dir, keeps regular entries accepted by match and sorts them by
// plain byte-wise name comparison. Numeric names must be zero-padded by the
// caller to sort as expected.
func Scan(fsys FileSystem, dir string, match func(name string) bool) (*FrameSource, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrDirectoryNotFound, dir, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrIO, dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if match(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: nothing matched in %s", ErrNoInputFrames, dir)
	}

	// Go compares strings byte-wise, so sort.Strings is locale-independent.
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return &FrameSource{paths: paths}, nil
}

func (s *FrameSource) Count() int {
	return len(s.paths)
}

func (s *FrameSource) Path(index int) string {
	return s.paths[index]
}

// Paths returns a copy of the ordered frame paths.
func (s *FrameSource) Paths() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// Dimensions decodes only the image header of path.
func Dimensions(fsys FileSystem, path string) (int, int, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
