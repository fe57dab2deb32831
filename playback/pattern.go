package playback

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"iter"

	"golang.org/x/image/draw"
)

// PatternSource is a synthetic clip: a white bar sweeps left to right over a
// background that brightens from frame to frame. Paired with PatternDecoder and
// ImageConverter it runs a Loop without FFmpeg.
type PatternSource struct {
	info   StreamInfo
	frames int
	pos    int
	pkt    patternPacket
	closed bool
}

type patternPacket struct {
	index int
}

func (p *patternPacket) StreamIndex() int { return 0 }

func (p *patternPacket) Release() {}

// NewPattern creates a pattern clip of frames pictures of width x height at fps.
func NewPattern(width, height, frames int, fps Rational) (*PatternSource, *PatternDecoder, error) {
	if width <= 0 || height <= 0 {
		return nil, nil, fmt.Errorf("%w: invalid pattern size %dx%d", ErrOpenFailed, width, height)
	}
	if frames <= 0 {
		return nil, nil, fmt.Errorf("%w: pattern needs at least one frame", ErrOpenFailed)
	}

	src := &PatternSource{
		info: StreamInfo{
			Index:       0,
			MediaType:   MediaTypeVideo,
			CodecName:   "pattern",
			Width:       width,
			Height:      height,
			PixelFormat: PixelFormatRGBA.String(),
			FrameRate:   fps,
			TimeBase:    Rational{Num: fps.Den, Den: fps.Num},
		},
		frames: frames,
	}
	dec := &PatternDecoder{
		frames: frames,
		frame:  patternFrame{img: image.NewRGBA(image.Rect(0, 0, width, height))},
	}
	return src, dec, nil
}

func (s *PatternSource) Video() StreamInfo { return s.info }

func (s *PatternSource) ReadPacket() (Packet, error) {
	if s.closed {
		return nil, errors.New("pattern source closed")
	}
	if s.pos >= s.frames {
		return nil, io.EOF
	}
	s.pkt.index = s.pos
	s.pos++
	return &s.pkt, nil
}

func (s *PatternSource) Restart() error {
	if s.closed {
		return errors.New("pattern source closed")
	}
	s.pos = 0
	return nil
}

func (s *PatternSource) Close() { s.closed = true }

// PatternDecoder renders one picture per PatternSource packet.
type PatternDecoder struct {
	frames int
	ready  []int
	frame  patternFrame
}

func (d *PatternDecoder) Submit(pkt Packet) error {
	if pkt == nil {
		return nil
	}
	p, ok := pkt.(*patternPacket)
	if !ok {
		return fmt.Errorf("unsupported packet type %T", pkt)
	}
	d.ready = append(d.ready, p.index)
	return nil
}

func (d *PatternDecoder) Drain() iter.Seq[DecodedFrame] {
	return func(yield func(DecodedFrame) bool) {
		for len(d.ready) > 0 {
			n := d.ready[0]
			d.ready = d.ready[1:]
			drawPattern(d.frame.img, n, d.frames)
			if !yield(&d.frame) {
				return
			}
		}
	}
}

func (d *PatternDecoder) Err() error { return nil }

func (d *PatternDecoder) Flush() { d.ready = d.ready[:0] }

func (d *PatternDecoder) Close() {}

type patternFrame struct {
	img *image.RGBA
}

func (f *patternFrame) Width() int         { return f.img.Rect.Dx() }
func (f *patternFrame) Height() int        { return f.img.Rect.Dy() }
func (f *patternFrame) Image() image.Image { return f.img }

// drawPattern paints picture n of frames into img.
func drawPattern(img *image.RGBA, n, frames int) {
	b := img.Bounds()
	gray := uint8(40 + n*160/frames)
	draw.Draw(img, b, &image.Uniform{C: color.RGBA{R: gray, G: gray, B: gray, A: 255}}, image.Point{}, draw.Src)

	barWidth := max(b.Dx()/frames, 1)
	x := b.Min.X + n*b.Dx()/frames
	bar := image.Rect(x, b.Min.Y, min(x+barWidth, b.Max.X), b.Max.Y)
	draw.Draw(img, bar, image.White, image.Point{}, draw.Src)
}
