package playback

import "errors"

// Initialization failures. They abort startup before any frame is presented.
var (
	ErrOpenFailed       = errors.New("open failed")
	ErrNoVideoStream    = errors.New("no video stream found")
	ErrCodecUnsupported = errors.New("codec unsupported")
	ErrConverterInit    = errors.New("converter init failed")
)

var (
	// ErrUnsupportedFormat is returned for pixel formats a component cannot produce or present.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")

	// ErrNoFrames stops the loop when whole passes over the stream produce nothing.
	ErrNoFrames = errors.New("stream produced no frames")

	// ErrAlreadyStarted is returned by Run on a loop that has already run.
	ErrAlreadyStarted = errors.New("playback loop already started")
)
