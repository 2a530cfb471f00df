package engine

import (
	"errors"
	"fmt"

	"github.com/ivlev/png2gif/internal/config"
	"github.com/ivlev/png2gif/internal/source"
)

// Ошибки сборки. Все терминальны для вызова и не повторяются внутри.
var (
	ErrInvalidConfig     = config.ErrInvalidConfig
	ErrDirectoryNotFound = source.ErrDirectoryNotFound
	ErrIO                = source.ErrIO
	ErrNoInputFrames     = source.ErrNoInputFrames
	ErrFrameDecode       = errors.New("frame decode failed")
	ErrEncode            = errors.New("encode failed")
	ErrWrite             = errors.New("write failed")
)

// FrameDecodeError names the frame that could not be read or normalised.
type FrameDecodeError struct {
	File string
	Err  error
}

func (e *FrameDecodeError) Error() string {
	return fmt.Sprintf("frame %s: %v", e.File, e.Err)
}

func (e *FrameDecodeError) Unwrap() error {
	return e.Err
}

func (e *FrameDecodeError) Is(target error) bool {
	return target == ErrFrameDecode
}
