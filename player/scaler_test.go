package player

import (
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/njyeung/loopwall/playback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// BT.601 limited range: Y=81 Cb=90 Cr=240 is pure red, Y=126 neutral chroma is mid grey.
var (
	red  = [3]byte{81, 90, 240}
	grey = [3]byte{126, 128, 128}
)

func TestScaler_SolidColor(t *testing.T) {
	requireFFmpeg(t)

	tests := []struct {
		format playback.PixelFormat
		want   []byte
	}{
		{playback.PixelFormatRGBA, []byte{255, 0, 0, 255}},
		{playback.PixelFormatRGB24, []byte{255, 0, 0}},
		{playback.PixelFormatBGRA, []byte{0, 0, 255, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			src := yuvFrame(t, 64, 48, red[0], red[1], red[2])

			s, err := NewScaler(64, 48, astiav.PixelFormatYuv420P, 32, 16, tt.format)
			require.NoError(t, err)
			defer s.Close()

			dst, err := playback.NewPresentationFrame(32, 16, tt.format)
			require.NoError(t, err)

			require.NoError(t, s.Convert(&decodedFrame{f: src}, dst))
			assertUniform(t, dst, tt.want, 6)
		})
	}
}

func TestScaler_RebuildsOnGeometryChange(t *testing.T) {
	requireFFmpeg(t)

	s, err := NewScaler(64, 48, astiav.PixelFormatYuv420P, 32, 16, playback.PixelFormatRGBA)
	require.NoError(t, err)
	defer s.Close()

	dst, err := playback.NewPresentationFrame(32, 16, playback.PixelFormatRGBA)
	require.NoError(t, err)
	pix := &dst.Pix[0]

	require.NoError(t, s.Convert(&decodedFrame{f: yuvFrame(t, 64, 48, red[0], red[1], red[2])}, dst))
	assertUniform(t, dst, []byte{255, 0, 0, 255}, 6)

	require.NoError(t, s.Convert(&decodedFrame{f: yuvFrame(t, 20, 10, grey[0], grey[1], grey[2])}, dst))
	assertUniform(t, dst, []byte{128, 128, 128, 255}, 6)

	assert.Equal(t, 20, s.srcWidth)
	assert.Equal(t, 10, s.srcHeight)
	assert.Same(t, pix, &dst.Pix[0])
}

func TestScaler_LazySourceSetup(t *testing.T) {
	requireFFmpeg(t)

	s, err := NewScaler(0, 0, astiav.PixelFormatNone, 16, 8, playback.PixelFormatRGB24)
	require.NoError(t, err)
	defer s.Close()
	assert.Nil(t, s.swsCtx)

	dst, err := playback.NewPresentationFrame(16, 8, playback.PixelFormatRGB24)
	require.NoError(t, err)

	require.NoError(t, s.Convert(&decodedFrame{f: yuvFrame(t, 32, 32, grey[0], grey[1], grey[2])}, dst))
	assertUniform(t, dst, []byte{128, 128, 128}, 6)
}

func TestScaler_Errors(t *testing.T) {
	requireFFmpeg(t)

	_, err := NewScaler(64, 48, astiav.PixelFormatYuv420P, 0, 16, playback.PixelFormatRGBA)
	assert.ErrorIs(t, err, playback.ErrConverterInit)

	_, err = NewScaler(64, 48, astiav.PixelFormatYuv420P, 32, 16, playback.PixelFormat(42))
	assert.ErrorIs(t, err, playback.ErrConverterInit)
	assert.ErrorIs(t, err, playback.ErrUnsupportedFormat)

	s, err := NewScaler(64, 48, astiav.PixelFormatYuv420P, 32, 16, playback.PixelFormatRGBA)
	require.NoError(t, err)

	wrongSize, err := playback.NewPresentationFrame(16, 16, playback.PixelFormatRGBA)
	require.NoError(t, err)
	assert.Error(t, s.Convert(&decodedFrame{f: yuvFrame(t, 64, 48, 16, 128, 128)}, wrongSize))

	dst, err := playback.NewPresentationFrame(32, 16, playback.PixelFormatRGBA)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Convert(otherFrame{}, dst), playback.ErrUnsupportedFormat)

	s.Close()
	s.Close()
	assert.Error(t, s.Convert(&decodedFrame{f: yuvFrame(t, 64, 48, 16, 128, 128)}, dst))
}

type otherFrame struct{}

func (otherFrame) Width() int  { return 1 }
func (otherFrame) Height() int { return 1 }
