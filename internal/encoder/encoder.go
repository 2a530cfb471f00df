package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
)

var (
	ErrNotStarted        = errors.New("encoder not started")
	ErrAlreadyStarted    = errors.New("encoder already started")
	ErrConfigAfterFrames = errors.New("encoder options must be set before the first frame")
	ErrFinished          = errors.New("encoder already finished")
	ErrNoFrames          = errors.New("no frames added")
)

// FrameEncoder is a stateful animated-image encoder. Calls must follow
// Start, options, AddFrame..., Finish. Frames are encoded in submission
// order and a single goroutine must own the encoder.
//
// AddFrame must not retain frame after it returns: the caller reuses the
// buffer for the next frame. Copy or convert the pixels before returning.
type FrameEncoder interface {
	Start(width, height int) error
	SetDelay(ms int) error
	SetRepeat(count int) error
	SetQuality(level int) error
	AddFrame(frame *image.NRGBA) error
	Finish() error
	Bytes() []byte
}

// GIFEncoder implements FrameEncoder with image/gif. Each frame is
// quantised on AddFrame, so the caller may reuse the frame buffer
// afterwards.
type GIFEncoder struct {
	width, height int
	delay         int // сотые доли секунды
	repeat        int
	quality       int

	started  bool
	finished bool
	frames   int
	anim     gif.GIF
	out      []byte
}

func NewGIFEncoder() *GIFEncoder {
	return &GIFEncoder{quality: 10}
}

func (e *GIFEncoder) Start(width, height int) error {
	if e.started {
		return ErrAlreadyStarted
	}
	// Размер логического экрана в GIF хранится в uint16.
	if width <= 0 || height <= 0 || width > 0xffff || height > 0xffff {
		return fmt.Errorf("gif: invalid screen size %dx%d", width, height)
	}
	e.width, e.height = width, height
	e.started = true
	return nil
}

func (e *GIFEncoder) configurable() error {
	switch {
	case !e.started:
		return ErrNotStarted
	case e.finished:
		return ErrFinished
	case e.frames > 0:
		return ErrConfigAfterFrames
	}
	return nil
}

// SetDelay sets the per-frame delay, rounded to centiseconds.
func (e *GIFEncoder) SetDelay(ms int) error {
	if err := e.configurable(); err != nil {
		return err
	}
	if ms < 0 {
		return fmt.Errorf("gif: negative delay %d", ms)
	}
	cs := (ms + 5) / 10
	// Задержка кадра в GIF хранится в uint16.
	if cs > 0xffff {
		return fmt.Errorf("gif: delay %d ms exceeds %d ms", ms, 0xffff*10)
	}
	e.delay = cs
	return nil
}

// SetRepeat sets the NETSCAPE loop count; 0 loops forever.
func (e *GIFEncoder) SetRepeat(count int) error {
	if err := e.configurable(); err != nil {
		return err
	}
	if count < 0 || count > 0xffff {
		return fmt.Errorf("gif: repeat %d out of range", count)
	}
	e.repeat = count
	return nil
}

// SetQuality sets the palette sampling stride: 1 samples every pixel,
// larger values are faster and coarser.
func (e *GIFEncoder) SetQuality(level int) error {
	if err := e.configurable(); err != nil {
		return err
	}
	if level < 1 {
		level = 1
	}
	e.quality = level
	return nil
}

func (e *GIFEncoder) AddFrame(frame *image.NRGBA) error {
	if !e.started {
		return ErrNotStarted
	}
	if e.finished {
		return ErrFinished
	}
	b := frame.Bounds()
	if b.Dx() != e.width || b.Dy() != e.height {
		return fmt.Errorf("gif: frame %dx%d does not match screen %dx%d", b.Dx(), b.Dy(), e.width, e.height)
	}

	e.anim.Image = append(e.anim.Image, Quantize(frame, e.quality))
	e.anim.Delay = append(e.anim.Delay, e.delay)
	e.anim.Disposal = append(e.anim.Disposal, gif.DisposalBackground)
	e.frames++
	return nil
}

func (e *GIFEncoder) Finish() error {
	if !e.started {
		return ErrNotStarted
	}
	if e.finished {
		return ErrFinished
	}
	if e.frames == 0 {
		return ErrNoFrames
	}

	e.anim.LoopCount = e.repeat
	e.anim.Config = image.Config{Width: e.width, Height: e.height}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, &e.anim); err != nil {
		return err
	}
	e.out = buf.Bytes()
	e.finished = true
	e.anim = gif.GIF{}
	return nil
}

// Bytes returns the encoded GIF, or nil before Finish.
func (e *GIFEncoder) Bytes() []byte {
	return e.out
}

// FrameCount returns the number of frames added so far.
func (e *GIFEncoder) FrameCount() int {
	return e.frames
}
