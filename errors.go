package termgrid

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrContextClosed is returned when operating on a closed Context.
	ErrContextClosed = errors.New("termgrid: context is closed")

	// ErrCopyUnsupported is returned by Device.CopyTextureRegion when the
	// platform has no native cross-texture copy primitive. The sprite atlas
	// falls back to a CPU round-trip copy in that case.
	ErrCopyUnsupported = errors.New("termgrid: cross-texture copy not supported")

	// ErrNoProgram is returned when a required program slot has not been
	// registered on the context.
	ErrNoProgram = errors.New("termgrid: program not registered")

	// ErrBorderBatchFull is returned when AddBorderRect exceeds the border
	// batch capacity.
	ErrBorderBatchFull = errors.New("termgrid: border rect batch is full")

	// ErrUnknownTexture is returned by device operations on a texture
	// handle that does not name a live texture.
	ErrUnknownTexture = errors.New("termgrid: unknown texture")

	// ErrUnknownVertexArray is returned by device operations on a vertex
	// array handle that does not name a live vertex array.
	ErrUnknownVertexArray = errors.New("termgrid: unknown vertex array")
)

// ConfigError is an unrecoverable configuration error: the shader programs
// and the renderer's buffer layout have diverged, or a requested layout
// exceeds hardware limits. There is no safe way to continue rendering after
// one of these; callers are expected to treat it as an abort signal.
//
// ConfigError replaces the original design's process-fatal control flow: the
// library reports the condition instead of terminating, but the contract is
// unchanged — a ConfigError means the process cannot render correctly.
type ConfigError struct {
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "termgrid: unrecoverable configuration error: " + e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ConfigError) Unwrap() error { return e.Err }

// configErrorf builds a *ConfigError from a format string.
func configErrorf(format string, args ...any) error {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}

// IsUnrecoverable reports whether err (or any error it wraps) is a
// configuration error that the caller must treat as fatal.
func IsUnrecoverable(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
