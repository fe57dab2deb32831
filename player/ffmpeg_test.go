package player

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/njyeung/loopwall/playback"
	"github.com/stretchr/testify/require"
)

// requireFFmpeg skips tests when the linked FFmpeg cannot decode raw video.
func requireFFmpeg(t *testing.T) {
	t.Helper()
	if astiav.FindDecoder(astiav.CodecIDRawvideo) == nil {
		t.Skip("FFmpeg built without the rawvideo decoder")
	}
}

// planarYUV returns a packed yuv420p picture filled with one colour.
func planarYUV(width, height int, y, u, v byte) []byte {
	luma := width * height
	chroma := (width / 2) * (height / 2)
	b := make([]byte, 0, luma+2*chroma)
	b = append(b, bytes.Repeat([]byte{y}, luma)...)
	b = append(b, bytes.Repeat([]byte{u}, chroma)...)
	b = append(b, bytes.Repeat([]byte{v}, chroma)...)
	return b
}

// yuvFrame allocates a solid yuv420p frame freed at the end of the test.
func yuvFrame(t *testing.T, width, height int, y, u, v byte) *astiav.Frame {
	t.Helper()

	f := astiav.AllocFrame()
	require.NotNil(t, f)
	t.Cleanup(f.Free)

	f.SetWidth(width)
	f.SetHeight(height)
	f.SetPixelFormat(astiav.PixelFormatYuv420P)
	require.NoError(t, f.AllocBuffer(0))
	require.NoError(t, f.Data().SetBytes(planarYUV(width, height, y, u, v), 1))
	return f
}

// writeClip writes a yuv4mpeg clip with one solid grey frame per luma value.
func writeClip(t *testing.T, width, height int, lumas ...byte) string {
	t.Helper()

	var b bytes.Buffer
	fmt.Fprintf(&b, "YUV4MPEG2 W%d H%d F25:1 Ip A1:1 C420jpeg\n", width, height)
	for _, y := range lumas {
		b.WriteString("FRAME\n")
		b.Write(planarYUV(width, height, y, 128, 128))
	}

	path := filepath.Join(t.TempDir(), "clip.y4m")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0644))
	return path
}

func assertUniform(t *testing.T, f *playback.PresentationFrame, want []byte, delta int) {
	t.Helper()
	bpp := f.Format.BytesPerPixel()
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			px := f.Pix[y*f.Stride+x*bpp : y*f.Stride+x*bpp+bpp]
			for i := range want {
				diff := int(px[i]) - int(want[i])
				if diff < -delta || diff > delta {
					t.Fatalf("pixel (%d,%d) = %v, want %v (±%d)", x, y, px, want, delta)
				}
			}
		}
	}
}
