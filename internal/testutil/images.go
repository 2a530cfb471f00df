// Package testutil holds fixture helpers shared by package tests.
package testutil

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/png2gif/internal/source"
)

// WritePNG writes a solid w×h PNG into dir and returns its path.
func WritePNG(t *testing.T, dir, name string, w, h int, c color.Color) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

// WriteFile writes raw bytes, e.g. a corrupt "png".
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ReversedFS returns directory entries in reverse order and counts calls,
// so tests can check that ordering never depends on the listing.
type ReversedFS struct {
	source.OSFileSystem
	Opens  int
	Reads  int
	Writes int
}

func (r *ReversedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	entries, err := r.OSFileSystem.ReadDir(name)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (r *ReversedFS) Open(name string) (io.ReadCloser, error) {
	r.Opens++
	return r.OSFileSystem.Open(name)
}

func (r *ReversedFS) ReadFile(name string) ([]byte, error) {
	r.Reads++
	return r.OSFileSystem.ReadFile(name)
}

func (r *ReversedFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	r.Writes++
	return r.OSFileSystem.WriteFile(name, data, perm)
}
