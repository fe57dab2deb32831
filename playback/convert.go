package playback

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ImageConverter scales ImageFrames into a PresentationFrame with bilinear
// filtering. It needs no cgo and backs synthetic sources.
type ImageConverter struct {
	width  int
	height int
	format PixelFormat

	// scratch holds the RGBA result for formats that need repacking.
	scratch *image.RGBA
}

// NewImageConverter creates a converter for a fixed target size and format.
func NewImageConverter(width, height int, format PixelFormat) (*ImageConverter, error) {
	if format.BytesPerPixel() == 0 {
		return nil, fmt.Errorf("%w: %w: %v", ErrConverterInit, ErrUnsupportedFormat, format)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid target size %dx%d", ErrConverterInit, width, height)
	}

	c := &ImageConverter{width: width, height: height, format: format}
	if format != PixelFormatRGBA {
		c.scratch = image.NewRGBA(image.Rect(0, 0, width, height))
	}
	return c, nil
}

// Convert writes frame into dst, which must match the converter's target.
func (c *ImageConverter) Convert(frame DecodedFrame, dst *PresentationFrame) error {
	f, ok := frame.(ImageFrame)
	if !ok {
		return fmt.Errorf("%w: %T carries no image", ErrUnsupportedFormat, frame)
	}
	if dst.Width != c.width || dst.Height != c.height || dst.Format != c.format {
		return fmt.Errorf("presentation frame %dx%d %v does not match converter %dx%d %v",
			dst.Width, dst.Height, dst.Format, c.width, c.height, c.format)
	}

	src := f.Image()
	rect := image.Rect(0, 0, c.width, c.height)

	if c.format == PixelFormatRGBA {
		out := &image.RGBA{Pix: dst.Pix, Stride: dst.Stride, Rect: rect}
		draw.BiLinear.Scale(out, rect, src, src.Bounds(), draw.Src, nil)
		return nil
	}

	draw.BiLinear.Scale(c.scratch, rect, src, src.Bounds(), draw.Src, nil)
	pack(c.scratch, dst)
	return nil
}

// Close is a no-op; the converter holds no external resources.
func (c *ImageConverter) Close() {}

// pack copies RGBA pixels into dst's layout.
func pack(src *image.RGBA, dst *PresentationFrame) {
	for y := 0; y < dst.Height; y++ {
		s := src.Pix[y*src.Stride : y*src.Stride+dst.Width*4]
		d := dst.Pix[y*dst.Stride : y*dst.Stride+dst.Width*dst.Format.BytesPerPixel()]

		switch dst.Format {
		case PixelFormatRGB24:
			for x := 0; x < dst.Width; x++ {
				d[x*3] = s[x*4]
				d[x*3+1] = s[x*4+1]
				d[x*3+2] = s[x*4+2]
			}
		case PixelFormatBGRA:
			for x := 0; x < dst.Width; x++ {
				d[x*4] = s[x*4+2]
				d[x*4+1] = s[x*4+1]
				d[x*4+2] = s[x*4]
				d[x*4+3] = s[x*4+3]
			}
		}
	}
}
