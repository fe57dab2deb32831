package render

import (
	"sync/atomic"

	"github.com/njyeung/loopwall/playback"
)

// NullPresenter accepts frames without drawing them.
type NullPresenter struct {
	frames atomic.Uint64
	bytes  atomic.Uint64
}

var _ playback.Presenter = (*NullPresenter)(nil)

func (p *NullPresenter) Present(pix []byte, width, height int, format playback.PixelFormat) error {
	p.frames.Add(1)
	p.bytes.Add(uint64(len(pix)))
	return nil
}

// Frames returns how many frames were presented.
func (p *NullPresenter) Frames() uint64 { return p.frames.Load() }

// Bytes returns the total size of presented frames.
func (p *NullPresenter) Bytes() uint64 { return p.bytes.Load() }
