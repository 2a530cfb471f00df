package engine

import (
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/png2gif/internal/config"
	"github.com/ivlev/png2gif/internal/encoder"
	"github.com/ivlev/png2gif/internal/renderer"
	"github.com/ivlev/png2gif/internal/source"
	"github.com/ivlev/png2gif/internal/system"
)

// Result is the outcome of one assembly call.
type Result struct {
	Data []byte
	// Path and RelativePath are set by AssembleToFile only.
	Path         string
	RelativePath string
	Frames       int
	Width        int
	Height       int
}

// Assembler turns a directory of images into an animated GIF. It keeps no
// state between calls, so one Assembler may serve concurrent callers.
type Assembler struct {
	FS         source.FileSystem
	NewEncoder func() encoder.FrameEncoder
	Logger     *slog.Logger
	Background color.NRGBA
}

type Option func(*Assembler)

func WithFileSystem(fsys source.FileSystem) Option {
	return func(a *Assembler) { a.FS = fsys }
}

func WithEncoder(newEncoder func() encoder.FrameEncoder) Option {
	return func(a *Assembler) { a.NewEncoder = newEncoder }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) { a.Logger = logger }
}

func WithBackground(bg color.NRGBA) Option {
	return func(a *Assembler) { a.Background = bg }
}

func New(opts ...Option) *Assembler {
	a := &Assembler{
		FS:         source.OSFileSystem{},
		NewEncoder: func() encoder.FrameEncoder { return encoder.NewGIFEncoder() },
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Background: renderer.TransparentWhite,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds the GIF in memory. Frames are taken in byte-wise file
// name order and processed strictly one after another. Output size is not
// capped: many frames or large dimensions give an arbitrarily large buffer.
func (a *Assembler) Assemble(cfg config.AssemblyConfig) (*Result, error) {
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	src, err := source.Scan(a.FS, cfg.InputDir, cfg.Matcher())
	if err != nil {
		return nil, err
	}
	frameCount := src.Count()

	width, height := cfg.Width, cfg.Height
	if cfg.AutoSize() {
		first := src.Path(0)
		width, height, err = source.Dimensions(a.FS, first)
		if err != nil {
			return nil, &FrameDecodeError{File: first, Err: err}
		}
	}
	system.CheckFrameBudget(a.Logger, width, height, frameCount)

	a.Logger.Info("assembling gif",
		"input", cfg.InputDir,
		"frames", frameCount,
		"size", fmt.Sprintf("%dx%d", width, height),
		"delay_ms", cfg.DelayMs,
		"loop", cfg.LoopCount,
	)

	enc := a.NewEncoder()
	if err := enc.Start(width, height); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	// Параметры задаются строго до первого кадра.
	if err := enc.SetDelay(cfg.DelayMs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if err := enc.SetRepeat(cfg.LoopCount); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if err := enc.SetQuality(cfg.Quality); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	for i := 0; i < frameCount; i++ {
		path := src.Path(i)
		a.Logger.Debug("processing image", "index", i+1, "total", frameCount, "file", filepath.Base(path))

		data, err := a.FS.ReadFile(path)
		if err != nil {
			return nil, &FrameDecodeError{File: path, Err: err}
		}
		frame, err := renderer.Normalize(data, width, height, a.Background)
		if err != nil {
			return nil, &FrameDecodeError{File: path, Err: err}
		}

		err = enc.AddFrame(frame)
		system.PutImage(frame)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %s: %w", ErrEncode, path, err)
		}
	}

	if err := enc.Finish(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	data := enc.Bytes()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: encoder returned no data", ErrEncode)
	}

	a.Logger.Info("gif assembled", "frames", frameCount, "bytes", len(data), "elapsed", time.Since(start))

	return &Result{
		Data:   data,
		Frames: frameCount,
		Width:  width,
		Height: height,
	}, nil
}

// AssembleToFile runs Assemble and writes the result to out.Path with a
// single write. Concurrent calls must not share out.Path; a crash during
// the write can leave a partial file.
func (a *Assembler) AssembleToFile(cfg config.AssemblyConfig, out config.OutputConfig) (*Result, error) {
	if out.Path == "" {
		return nil, fmt.Errorf("%w: output path is empty", ErrInvalidConfig)
	}

	res, err := a.Assemble(cfg)
	if err != nil {
		return nil, err
	}

	if err := a.FS.WriteFile(out.Path, res.Data, 0644); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWrite, out.Path, err)
	}

	res.Path = out.Path
	res.RelativePath = relativeTo(out.PublicRoot, out.Path)
	a.Logger.Info("gif written", "path", out.Path, "relative", res.RelativePath)
	return res, nil
}

// relativeTo returns path relative to root, or "" when path is outside it.
func relativeTo(root, path string) string {
	if root == "" {
		return ""
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return ""
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(rel)
}
