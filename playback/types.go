package playback

import (
	"fmt"
	"image"
	"iter"
	"strings"
)

// PixelFormat identifies the packed layout of a PresentationFrame.
type PixelFormat int

const (
	PixelFormatRGBA PixelFormat = iota
	PixelFormatRGB24
	PixelFormatBGRA
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGBA:
		return "rgba"
	case PixelFormatRGB24:
		return "rgb24"
	case PixelFormatBGRA:
		return "bgra"
	default:
		return "unknown"
	}
}

// BytesPerPixel returns the packed pixel size, or 0 for an unknown format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGBA, PixelFormatBGRA:
		return 4
	case PixelFormatRGB24:
		return 3
	default:
		return 0
	}
}

// ParsePixelFormat parses the names returned by PixelFormat.String.
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch strings.ToLower(s) {
	case "rgba":
		return PixelFormatRGBA, nil
	case "rgb24", "rgb":
		return PixelFormatRGB24, nil
	case "bgra", "rgb32":
		return PixelFormatBGRA, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// MediaType is the kind of data a container stream carries.
type MediaType int

const (
	MediaTypeUnknown MediaType = iota
	MediaTypeVideo
	MediaTypeAudio
	MediaTypeSubtitle
	MediaTypeData
)

func (m MediaType) String() string {
	switch m {
	case MediaTypeVideo:
		return "video"
	case MediaTypeAudio:
		return "audio"
	case MediaTypeSubtitle:
		return "subtitle"
	case MediaTypeData:
		return "data"
	default:
		return "unknown"
	}
}

// Rational is a fraction such as a frame rate (30000/1001) or a time base.
type Rational struct {
	Num int
	Den int
}

// Float64 returns Num/Den, or 0 when the denominator is zero.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// StreamInfo describes one stream of an opened container. For the selected
// video stream it is the immutable descriptor the decoder and converter are
// built from.
type StreamInfo struct {
	Index       int
	MediaType   MediaType
	CodecName   string
	Width       int
	Height      int
	PixelFormat string
	FrameRate   Rational
	TimeBase    Rational
}

// Packet is one unit of compressed data read from a Source. Only one packet is
// live at a time; it must be released before the next ReadPacket.
type Packet interface {
	StreamIndex() int
	Release()
}

// DecodedFrame is a picture in the source pixel format and resolution. It is
// only valid while the Decoder's Drain sequence is yielding it.
type DecodedFrame interface {
	Width() int
	Height() int
}

// ImageFrame is a DecodedFrame backed by a Go image, as produced by synthetic
// sources.
type ImageFrame interface {
	DecodedFrame
	Image() image.Image
}

// Source demuxes a container and hands out packets in container order.
type Source interface {
	// Video returns the selected video stream.
	Video() StreamInfo

	// ReadPacket returns the next packet, or io.EOF at end of stream.
	ReadPacket() (Packet, error)

	// Restart seeks back to the first keyframe at or before position zero.
	Restart() error

	Close()
}

// Decoder turns packets into frames.
type Decoder interface {
	// Submit feeds one packet. A nil packet signals end of stream so that
	// buffered frames can be drained.
	Submit(pkt Packet) error

	// Drain yields every frame that is ready without waiting for more input.
	Drain() iter.Seq[DecodedFrame]

	// Err reports the error that ended the last Drain, if any.
	Err() error

	// Flush discards reference frames and buffered output.
	Flush()

	Close()
}

// Converter resamples decoded frames into the fixed presentation format.
type Converter interface {
	Convert(frame DecodedFrame, dst *PresentationFrame) error
	Close()
}

// Presenter draws a full frame at offset (0,0) of its surface.
type Presenter interface {
	Present(pix []byte, width, height int, format PixelFormat) error
}

// PresentationFrame is the reusable output buffer of a Loop.
type PresentationFrame struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
	Format PixelFormat
}

// NewPresentationFrame allocates a packed buffer of the given size and format.
func NewPresentationFrame(width, height int, format PixelFormat) (*PresentationFrame, error) {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid presentation size %dx%d", width, height)
	}
	return &PresentationFrame{
		Pix:    make([]byte, width*height*bpp),
		Width:  width,
		Height: height,
		Stride: width * bpp,
		Format: format,
	}, nil
}
