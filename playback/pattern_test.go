package playback

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyingPresenter keeps a copy of every presented frame.
type copyingPresenter struct {
	frames [][]byte
	onFull func()
	limit  int
}

func (p *copyingPresenter) Present(pix []byte, width, height int, format PixelFormat) error {
	p.frames = append(p.frames, append([]byte(nil), pix...))
	if len(p.frames) == p.limit {
		p.onFull()
	}
	return nil
}

func TestNewPattern_Validation(t *testing.T) {
	_, _, err := NewPattern(0, 10, 5, Rational{Num: 30, Den: 1})
	assert.ErrorIs(t, err, ErrOpenFailed)

	_, _, err = NewPattern(10, 10, 0, Rational{Num: 30, Den: 1})
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestPatternSource_ReadAndRestart(t *testing.T) {
	src, _, err := NewPattern(16, 8, 3, Rational{Num: 25, Den: 1})
	require.NoError(t, err)

	info := src.Video()
	assert.Equal(t, MediaTypeVideo, info.MediaType)
	assert.Equal(t, 16, info.Width)
	assert.Equal(t, Rational{Num: 1, Den: 25}, info.TimeBase)

	for i := 0; i < 3; i++ {
		pkt, err := src.ReadPacket()
		require.NoError(t, err)
		assert.Equal(t, 0, pkt.StreamIndex())
		pkt.Release()
	}
	_, err = src.ReadPacket()
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, src.Restart())
	_, err = src.ReadPacket()
	assert.NoError(t, err)

	src.Close()
	_, err = src.ReadPacket()
	assert.Error(t, err)
}

func TestPatternDecoder_RejectsForeignPackets(t *testing.T) {
	_, dec, err := NewPattern(16, 8, 3, Rational{Num: 25, Den: 1})
	require.NoError(t, err)

	assert.Error(t, dec.Submit(&fakePacket{}))
	assert.NoError(t, dec.Submit(nil))
}

func TestLoop_PatternThroughImageConverter(t *testing.T) {
	const frames = 4

	src, dec, err := NewPattern(32, 16, frames, Rational{Num: 25, Den: 1})
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	cfg := DefaultConfig()
	cfg.Width = 16
	cfg.Height = 8
	cfg.Format = PixelFormatRGB24
	cfg.Clock = newManualClock()
	cfg.Logger = logger

	conv, err := NewImageConverter(cfg.Width, cfg.Height, cfg.Format)
	require.NoError(t, err)

	lifecycle := NewLifecycle()
	presenter := &copyingPresenter{limit: 2 * frames, onFull: lifecycle.RequestStop}

	loop, err := NewLoop(cfg, Components{
		Source:    src,
		Decoder:   dec,
		Converter: conv,
		Presenter: presenter,
		Lifecycle: lifecycle,
	})
	require.NoError(t, err)
	require.NoError(t, loop.Run())

	require.Len(t, presenter.frames, 2*frames)
	assert.Equal(t, uint64(1), loop.Stats().Loops)
	for i := 0; i < frames; i++ {
		assert.Equal(t, presenter.frames[i], presenter.frames[i+frames], "frame %d differs across the restart", i)
		if i > 0 {
			assert.NotEqual(t, presenter.frames[i-1], presenter.frames[i], "frames %d and %d are identical", i-1, i)
		}
	}

	// Frame 0: bar over the left quarter, dark background elsewhere
	first := presenter.frames[0]
	assert.Equal(t, []byte{255, 255, 255}, first[0:3])
	last := first[(cfg.Width-1)*3 : cfg.Width*3]
	assert.Equal(t, []byte{40, 40, 40}, last)
}
