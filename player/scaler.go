package player

import (
	"errors"
	"fmt"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/njyeung/loopwall/playback"
)

// Scaler converts decoded frames to the presentation size and format with
// FFmpeg's bilinear software scaler.
type Scaler struct {
	swsCtx *astiav.SoftwareScaleContext
	dst    *astiav.Frame

	srcWidth  int
	srcHeight int
	srcFormat astiav.PixelFormat

	dstWidth  int
	dstHeight int
	dstFormat astiav.PixelFormat
	format    playback.PixelFormat

	mu     sync.Mutex
	closed bool
}

// NewScaler creates a scaler. When the source geometry is not known yet the
// sws context is created on the first frame.
func NewScaler(srcWidth, srcHeight int, srcFormat astiav.PixelFormat, dstWidth, dstHeight int, format playback.PixelFormat) (*Scaler, error) {
	dstFormat, err := avPixelFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", playback.ErrConverterInit, err)
	}
	if dstWidth <= 0 || dstHeight <= 0 {
		return nil, fmt.Errorf("%w: invalid target size %dx%d", playback.ErrConverterInit, dstWidth, dstHeight)
	}

	s := &Scaler{
		dstWidth:  dstWidth,
		dstHeight: dstHeight,
		dstFormat: dstFormat,
		format:    format,
	}

	// Setup output frame
	s.dst = astiav.AllocFrame()
	s.dst.SetWidth(dstWidth)
	s.dst.SetHeight(dstHeight)
	s.dst.SetPixelFormat(dstFormat)
	if err := s.dst.AllocBuffer(1); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: failed to allocate output frame buffer: %w", playback.ErrConverterInit, err)
	}

	if srcWidth > 0 && srcHeight > 0 && srcFormat != astiav.PixelFormatNone {
		if err := s.initSwsContext(srcWidth, srcHeight, srcFormat); err != nil {
			s.Close()
			return nil, fmt.Errorf("%w: %w", playback.ErrConverterInit, err)
		}
	}

	return s, nil
}

func (s *Scaler) initSwsContext(width, height int, format astiav.PixelFormat) error {
	if s.swsCtx != nil {
		s.swsCtx.Free()
		s.swsCtx = nil
	}

	// Create scaling context: source format -> target format at target size
	var err error
	s.swsCtx, err = astiav.CreateSoftwareScaleContext(
		width, height, format,
		s.dstWidth, s.dstHeight, s.dstFormat,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
	)
	if err != nil {
		return fmt.Errorf("failed to create sws context (%dx%d %s -> %dx%d %s): %w",
			width, height, format, s.dstWidth, s.dstHeight, s.dstFormat, err)
	}

	s.srcWidth = width
	s.srcHeight = height
	s.srcFormat = format
	return nil
}

// Convert scales frame into dst in place
func (s *Scaler) Convert(frame playback.DecodedFrame, dst *playback.PresentationFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("scaler closed")
	}

	df, ok := frame.(*decodedFrame)
	if !ok {
		return fmt.Errorf("%w: unsupported frame type %T", playback.ErrUnsupportedFormat, frame)
	}
	if dst.Width != s.dstWidth || dst.Height != s.dstHeight || dst.Format != s.format {
		return fmt.Errorf("presentation frame %dx%d %v does not match scaler %dx%d %v",
			dst.Width, dst.Height, dst.Format, s.dstWidth, s.dstHeight, s.format)
	}

	// Source geometry can change mid-stream; rebuild the source side only
	src := df.f
	if s.swsCtx == nil || src.Width() != s.srcWidth || src.Height() != s.srcHeight || src.PixelFormat() != s.srcFormat {
		if err := s.initSwsContext(src.Width(), src.Height(), src.PixelFormat()); err != nil {
			return err
		}
	}

	if err := s.swsCtx.ScaleFrame(src, s.dst); err != nil {
		return fmt.Errorf("failed to scale frame: %w", err)
	}

	// Copy the packed image into the caller's buffer
	if _, err := s.dst.ImageCopyToBuffer(dst.Pix, 1); err != nil {
		return fmt.Errorf("failed to copy scaled frame: %w", err)
	}
	return nil
}

// Close releases all resources
func (s *Scaler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.dst != nil {
		s.dst.Free()
		s.dst = nil
	}
	if s.swsCtx != nil {
		s.swsCtx.Free()
		s.swsCtx = nil
	}
}
