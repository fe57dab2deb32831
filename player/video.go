package player

import (
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/njyeung/loopwall/playback"
)

// VideoDecoder turns compressed video packets into frames
type VideoDecoder struct {
	codecCtx *astiav.CodecContext
	frame    *astiav.Frame
	current  decodedFrame

	// err is the failure that ended the last Drain
	err error

	mu     sync.Mutex
	closed bool
}

// NewVideoDecoder creates a video decoder from codec parameters
func NewVideoDecoder(codecParams *astiav.CodecParameters) (*VideoDecoder, error) {
	if codecParams == nil {
		return nil, fmt.Errorf("%w: missing codec parameters", playback.ErrOpenFailed)
	}

	v := &VideoDecoder{}

	// Find decoder
	codec := astiav.FindDecoder(codecParams.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("%w: %s", playback.ErrCodecUnsupported, codecParams.CodecID())
	}

	// Allocate codec context
	v.codecCtx = astiav.AllocCodecContext(codec)
	if v.codecCtx == nil {
		return nil, fmt.Errorf("%w: failed to allocate video codec context", playback.ErrOpenFailed)
	}

	// Copy parameters
	if err := codecParams.ToCodecContext(v.codecCtx); err != nil {
		v.Close()
		return nil, fmt.Errorf("%w: failed to copy video codec params: %w", playback.ErrOpenFailed, err)
	}

	// Open codec
	if err := v.codecCtx.Open(codec, nil); err != nil {
		v.Close()
		return nil, fmt.Errorf("%w: failed to open video codec: %w", playback.ErrOpenFailed, err)
	}

	v.frame = astiav.AllocFrame()
	v.current.f = v.frame

	return v, nil
}

// SourceFormat returns the decoded picture geometry and pixel format
func (v *VideoDecoder) SourceFormat() (width, height int, format astiav.PixelFormat) {
	return v.codecCtx.Width(), v.codecCtx.Height(), v.codecCtx.PixelFormat()
}

// Submit sends a packet to the codec. A nil packet starts draining.
func (v *VideoDecoder) Submit(pkt playback.Packet) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return errors.New("video decoder closed")
	}
	v.err = nil

	var p *astiav.Packet
	if pkt != nil {
		vp, ok := pkt.(*packet)
		if !ok {
			return fmt.Errorf("unsupported packet type %T", pkt)
		}
		p = vp.pkt
	}

	if err := v.codecCtx.SendPacket(p); err != nil {
		return fmt.Errorf("failed to send video packet: %w", err)
	}
	return nil
}

// Drain yields every frame the codec has ready. The frame is unreferenced
// as soon as the consumer returns.
func (v *VideoDecoder) Drain() iter.Seq[playback.DecodedFrame] {
	return func(yield func(playback.DecodedFrame) bool) {
		v.mu.Lock()
		defer v.mu.Unlock()

		if v.closed {
			return
		}

		for {
			if err := v.codecCtx.ReceiveFrame(v.frame); err != nil {
				if !errors.Is(err, astiav.ErrEof) && !errors.Is(err, astiav.ErrEagain) {
					v.err = fmt.Errorf("failed to receive video frame: %w", err)
				}
				return
			}

			more := yield(&v.current)
			v.frame.Unref()
			if !more {
				return
			}
		}
	}
}

// Err returns the error that ended the last Drain
func (v *VideoDecoder) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Flush drops reference frames and leaves draining mode
func (v *VideoDecoder) Flush() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.codecCtx.FlushBuffers()
	v.err = nil
}

// Close releases all resources
func (v *VideoDecoder) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.closed = true

	if v.frame != nil {
		v.frame.Free()
		v.frame = nil
	}
	if v.codecCtx != nil {
		v.codecCtx.Free()
		v.codecCtx = nil
	}
}
