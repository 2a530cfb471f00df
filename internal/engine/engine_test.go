package engine

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/png2gif/internal/config"
	"github.com/ivlev/png2gif/internal/encoder"
	"github.com/ivlev/png2gif/internal/testutil"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

// recordingEncoder wraps GIFEncoder and records the call sequence.
type recordingEncoder struct {
	*encoder.GIFEncoder
	calls  *[]string
	frames *[]*image.NRGBA
}

func (r recordingEncoder) Start(w, h int) error {
	*r.calls = append(*r.calls, "start")
	return r.GIFEncoder.Start(w, h)
}

func (r recordingEncoder) SetDelay(ms int) error {
	*r.calls = append(*r.calls, "delay")
	return r.GIFEncoder.SetDelay(ms)
}

func (r recordingEncoder) SetRepeat(n int) error {
	*r.calls = append(*r.calls, "repeat")
	return r.GIFEncoder.SetRepeat(n)
}

func (r recordingEncoder) SetQuality(q int) error {
	*r.calls = append(*r.calls, "quality")
	return r.GIFEncoder.SetQuality(q)
}

func (r recordingEncoder) AddFrame(f *image.NRGBA) error {
	*r.calls = append(*r.calls, "frame")
	cp := image.NewNRGBA(f.Rect)
	copy(cp.Pix, f.Pix)
	*r.frames = append(*r.frames, cp)
	return r.GIFEncoder.AddFrame(f)
}

func (r recordingEncoder) Finish() error {
	*r.calls = append(*r.calls, "finish")
	return r.GIFEncoder.Finish()
}

func newRecording() (*Assembler, *[]string, *[]*image.NRGBA) {
	calls := &[]string{}
	frames := &[]*image.NRGBA{}
	a := New(
		WithFileSystem(&testutil.ReversedFS{}),
		WithEncoder(func() encoder.FrameEncoder {
			return recordingEncoder{GIFEncoder: encoder.NewGIFEncoder(), calls: calls, frames: frames}
		}),
	)
	return a, calls, frames
}

func assemblyConfig(dir string) config.AssemblyConfig {
	cfg := config.DefaultAssembly()
	cfg.InputDir = dir
	return cfg
}

func decode(t *testing.T, data []byte) *gif.GIF {
	t.Helper()
	g, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	return g
}

func rgbAt(img image.Image, x, y int) [3]uint32 {
	r, g, b, _ := img.At(x, y).RGBA()
	return [3]uint32{r >> 8, g >> 8, b >> 8}
}

func TestAssembleAutoSize(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePNG(t, dir, "a.png", 2, 2, red)
	testutil.WritePNG(t, dir, "b.png", 4, 4, blue)

	cfg := assemblyConfig(dir)
	cfg.DelayMs = 100
	cfg.LoopCount = 0

	a, calls, frames := newRecording()
	res, err := a.Assemble(cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Frames)
	assert.Equal(t, 2, res.Width)
	assert.Equal(t, 2, res.Height)
	assert.Empty(t, res.Path)
	assert.Equal(t, []string{"start", "delay", "repeat", "quality", "frame", "frame", "finish"}, *calls)
	for _, f := range *frames {
		assert.Equal(t, image.Rect(0, 0, 2, 2), f.Bounds())
	}

	g := decode(t, res.Data)
	require.Len(t, g.Image, 2)
	assert.Equal(t, 2, g.Config.Width)
	assert.Equal(t, 2, g.Config.Height)
	assert.Equal(t, 0, g.LoopCount)
	assert.Equal(t, []int{10, 10}, g.Delay)
	assert.Equal(t, [3]uint32{255, 0, 0}, rgbAt(g.Image[0], 0, 0))
	assert.Equal(t, [3]uint32{0, 0, 255}, rgbAt(g.Image[1], 1, 1))
}

func TestAssembleOrderIgnoresListing(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePNG(t, dir, "frame_003.png", 2, 2, blue)
	testutil.WritePNG(t, dir, "frame_001.png", 2, 2, red)
	testutil.WritePNG(t, dir, "frame_002.png", 2, 2, green)
	testutil.WritePNG(t, dir, "cover.jpg", 2, 2, green)

	a, _, _ := newRecording()
	res, err := a.Assemble(assemblyConfig(dir))
	require.NoError(t, err)

	g := decode(t, res.Data)
	require.Len(t, g.Image, 3)
	assert.Equal(t, [3]uint32{255, 0, 0}, rgbAt(g.Image[0], 0, 0))
	assert.Equal(t, [3]uint32{0, 255, 0}, rgbAt(g.Image[1], 0, 0))
	assert.Equal(t, [3]uint32{0, 0, 255}, rgbAt(g.Image[2], 0, 0))
}

func TestAssembleExplicitSize(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePNG(t, dir, "01.png", 3, 7, red)
	testutil.WritePNG(t, dir, "02.png", 10, 2, blue)

	cfg := assemblyConfig(dir)
	cfg.Width, cfg.Height = 6, 6

	fsys := &testutil.ReversedFS{}
	a, _, frames := newRecording()
	a.FS = fsys
	res, err := a.Assemble(cfg)
	require.NoError(t, err)

	assert.Equal(t, 6, res.Width)
	assert.Equal(t, 6, res.Height)
	assert.Equal(t, 0, fsys.Opens, "explicit size must not read metadata")
	assert.Equal(t, 2, fsys.Reads)
	require.Len(t, *frames, 2)
	for _, f := range *frames {
		assert.Equal(t, image.Rect(0, 0, 6, 6), f.Bounds())
	}
	// Второй кадр 10x2 -> 6x1, поля прозрачные.
	assert.Equal(t, uint8(0), (*frames)[1].NRGBAAt(0, 0).A)

	g := decode(t, res.Data)
	for _, img := range g.Image {
		assert.Equal(t, image.Rect(0, 0, 6, 6), img.Bounds())
	}
}

func TestAssembleAutoSizeReadsMetadataOnce(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePNG(t, dir, "a.png", 5, 3, red)
	testutil.WritePNG(t, dir, "b.png", 5, 3, red)

	fsys := &testutil.ReversedFS{}
	a := New(WithFileSystem(fsys))
	cfg := assemblyConfig(dir)
	cfg.Width = 8 // высота 0 -> оба размера берутся из первого кадра

	res, err := a.Assemble(cfg)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Width)
	assert.Equal(t, 3, res.Height)
	assert.Equal(t, 1, fsys.Opens)
	assert.Equal(t, 2, fsys.Reads)
}

func TestAssembleNoFrames(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePNG(t, dir, "a.jpeg", 2, 2, red)

	a, calls, _ := newRecording()
	_, err := a.Assemble(assemblyConfig(dir))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoInputFrames))
	assert.Empty(t, *calls, "encoder must not be initialised")
}

func TestAssembleMissingDirectory(t *testing.T) {
	a, calls, _ := newRecording()
	_, err := a.Assemble(assemblyConfig(filepath.Join(t.TempDir(), "nope")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDirectoryNotFound))
	assert.Empty(t, *calls)
}

func TestAssembleInvalidConfig(t *testing.T) {
	cfg := assemblyConfig(t.TempDir())
	cfg.DelayMs = -10

	a, calls, _ := newRecording()
	_, err := a.Assemble(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Empty(t, *calls)
}

func TestAssembleCorruptFrame(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePNG(t, dir, "a.png", 2, 2, red)
	bad := testutil.WriteFile(t, dir, "b.png", []byte("\x89PNG broken"))
	testutil.WritePNG(t, dir, "c.png", 2, 2, blue)

	out := filepath.Join(t.TempDir(), "out.gif")
	a, calls, _ := newRecording()
	res, err := a.AssembleToFile(assemblyConfig(dir), config.OutputConfig{Path: out})
	require.Error(t, err)
	assert.Nil(t, res)

	var fde *FrameDecodeError
	require.True(t, errors.As(err, &fde))
	assert.Equal(t, bad, fde.File)
	assert.True(t, errors.Is(err, ErrFrameDecode))
	assert.NotContains(t, *calls, "finish")

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no output file on failure")
}

func TestAssembleCorruptFirstFrameWithAutoSize(t *testing.T) {
	dir := t.TempDir()
	bad := testutil.WriteFile(t, dir, "a.png", []byte("nope"))
	testutil.WritePNG(t, dir, "b.png", 2, 2, red)

	a, calls, _ := newRecording()
	_, err := a.Assemble(assemblyConfig(dir))

	var fde *FrameDecodeError
	require.True(t, errors.As(err, &fde))
	assert.Equal(t, bad, fde.File)
	assert.Empty(t, *calls)
}

func TestAssembleDeterministic(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePNG(t, dir, "a.png", 9, 5, red)
	testutil.WritePNG(t, dir, "b.png", 4, 8, blue)
	testutil.WritePNG(t, dir, "c.png", 3, 3, green)

	a := New()
	first, err := a.Assemble(assemblyConfig(dir))
	require.NoError(t, err)
	second, err := a.Assemble(assemblyConfig(dir))
	require.NoError(t, err)

	assert.Equal(t, first.Data, second.Data)
}

func TestAssembleDelayOutOfRange(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePNG(t, dir, "a.png", 2, 2, red)
	testutil.WritePNG(t, dir, "b.png", 2, 2, blue)

	cfg := assemblyConfig(dir)
	cfg.DelayMs = 700000

	res, err := New().Assemble(cfg)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrEncode))
}

func TestAssembleConcurrentCallsAreIndependent(t *testing.T) {
	// Разные размеры кадров делят общий пул холстов.
	dirs := make([]string, 4)
	for i := range dirs {
		dirs[i] = t.TempDir()
		for j := 0; j < 5; j++ {
			c := color.NRGBA{R: uint8(40 * i), G: uint8(50 * j), B: uint8(10 * (i + j)), A: 255}
			testutil.WritePNG(t, dirs[i], fmt.Sprintf("%03d.png", j), 6+i+j, 4+i, c)
		}
	}

	a := New()
	want := make([][]byte, len(dirs))
	for i, dir := range dirs {
		res, err := a.Assemble(assemblyConfig(dir))
		require.NoError(t, err)
		want[i] = res.Data
	}

	const rounds = 3
	got := make([][]byte, len(dirs)*rounds)
	errs := make([]error, len(got))
	var wg sync.WaitGroup
	for k := range got {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			res, err := a.Assemble(assemblyConfig(dirs[k%len(dirs)]))
			if err != nil {
				errs[k] = err
				return
			}
			got[k] = res.Data
		}(k)
	}
	wg.Wait()

	for k := range got {
		require.NoError(t, errs[k])
		assert.Equal(t, want[k%len(dirs)], got[k], "call %d", k)
	}
}

func TestAssembleToFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePNG(t, dir, "a.png", 2, 2, red)

	public := t.TempDir()
	out := filepath.Join(public, "gifs", "anim.gif")
	require.NoError(t, os.MkdirAll(filepath.Dir(out), 0755))

	fsys := &testutil.ReversedFS{}
	a := New(WithFileSystem(fsys))
	res, err := a.AssembleToFile(assemblyConfig(dir), config.OutputConfig{Path: out, PublicRoot: public})
	require.NoError(t, err)

	assert.Equal(t, out, res.Path)
	assert.Equal(t, "gifs/anim.gif", res.RelativePath)
	assert.Equal(t, 1, fsys.Writes)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, res.Data, written)
}

func TestAssembleToFileWriteError(t *testing.T) {
	dir := t.TempDir()
	testutil.WritePNG(t, dir, "a.png", 2, 2, red)

	out := filepath.Join(t.TempDir(), "missing-dir", "anim.gif")
	_, err := New().AssembleToFile(assemblyConfig(dir), config.OutputConfig{Path: out})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWrite))

	_, err = New().AssembleToFile(assemblyConfig(dir), config.OutputConfig{})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestRelativeTo(t *testing.T) {
	assert.Equal(t, "output.gif", relativeTo("public", "public/output.gif"))
	assert.Equal(t, "a/b.gif", relativeTo("/srv/public", "/srv/public/a/b.gif"))
	assert.Equal(t, "", relativeTo("/srv/public", "/tmp/out.gif"))
	assert.Equal(t, "", relativeTo("", "public/output.gif"))
}
