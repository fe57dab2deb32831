package playback

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds the tunables of a Loop. Start from DefaultConfig.
type Config struct {
	// Target surface size and format, captured once at startup.
	Width  int
	Height int
	Format PixelFormat

	// Overhead is subtracted from each frame interval by the pacer.
	Overhead time.Duration

	// MaxReadErrors consecutive read failures are treated as end of stream.
	MaxReadErrors int

	// MaxEmptyPasses consecutive passes without a decoded frame stop the loop.
	MaxEmptyPasses int

	Logger logrus.FieldLogger
	Clock  Clock
}

// DefaultConfig returns a 960x540 RGBA configuration.
func DefaultConfig() Config {
	return Config{
		Width:          960,
		Height:         540,
		Format:         PixelFormatRGBA,
		Overhead:       DefaultOverhead,
		MaxReadErrors:  32,
		MaxEmptyPasses: 3,
		Logger:         logrus.StandardLogger(),
		Clock:          SystemClock{},
	}
}

// Validate checks the target surface and limits.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid target size %dx%d", c.Width, c.Height)
	}
	if c.Format.BytesPerPixel() == 0 {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, c.Format)
	}
	if c.MaxReadErrors < 1 {
		return fmt.Errorf("max read errors must be at least 1, got %d", c.MaxReadErrors)
	}
	if c.MaxEmptyPasses < 1 {
		return fmt.Errorf("max empty passes must be at least 1, got %d", c.MaxEmptyPasses)
	}
	return nil
}
