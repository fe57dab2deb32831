package player

import (
	"fmt"
	"strings"

	"github.com/asticode/go-astiav"
	"github.com/njyeung/loopwall/playback"
	"github.com/sirupsen/logrus"
)

func init() {
	// Suppress FFmpeg log messages until a logger is attached
	astiav.SetLogLevel(astiav.LogLevelQuiet)
}

// SetLogger routes FFmpeg's own log output into log, filtered to match its level.
func SetLogger(log *logrus.Logger) {
	switch {
	case log.IsLevelEnabled(logrus.DebugLevel):
		astiav.SetLogLevel(astiav.LogLevelInfo)
	case log.IsLevelEnabled(logrus.WarnLevel):
		astiav.SetLogLevel(astiav.LogLevelWarning)
	default:
		astiav.SetLogLevel(astiav.LogLevelError)
	}

	astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, format, msg string) {
		entry := log.WithField("function", "ffmpeg")
		if c != nil {
			if cl := c.Class(); cl != nil {
				entry = entry.WithField("class", cl.String())
			}
		}
		msg = strings.TrimSpace(msg)

		switch {
		case l <= astiav.LogLevelError:
			entry.Error(msg)
		case l <= astiav.LogLevelWarning:
			entry.Warn(msg)
		case l <= astiav.LogLevelInfo:
			entry.Info(msg)
		default:
			entry.Debug(msg)
		}
	})
}

// packet is the single reusable packet handed out by a Demuxer
type packet struct {
	pkt *astiav.Packet
}

func (p *packet) StreamIndex() int { return p.pkt.StreamIndex() }

// Release drops the packet's payload so the buffer can be refilled
func (p *packet) Release() { p.pkt.Unref() }

// decodedFrame wraps the decoder's reusable frame while it is being yielded
type decodedFrame struct {
	f *astiav.Frame
}

func (d *decodedFrame) Width() int  { return d.f.Width() }
func (d *decodedFrame) Height() int { return d.f.Height() }

func mediaType(t astiav.MediaType) playback.MediaType {
	switch t {
	case astiav.MediaTypeVideo:
		return playback.MediaTypeVideo
	case astiav.MediaTypeAudio:
		return playback.MediaTypeAudio
	case astiav.MediaTypeSubtitle:
		return playback.MediaTypeSubtitle
	case astiav.MediaTypeData:
		return playback.MediaTypeData
	default:
		return playback.MediaTypeUnknown
	}
}

func avPixelFormat(f playback.PixelFormat) (astiav.PixelFormat, error) {
	switch f {
	case playback.PixelFormatRGBA:
		return astiav.PixelFormatRgba, nil
	case playback.PixelFormatRGB24:
		return astiav.PixelFormatRgb24, nil
	case playback.PixelFormatBGRA:
		return astiav.PixelFormatBgra, nil
	default:
		return astiav.PixelFormatNone, fmt.Errorf("%w: %v", playback.ErrUnsupportedFormat, f)
	}
}

func rational(r astiav.Rational) playback.Rational {
	return playback.Rational{Num: r.Num(), Den: r.Den()}
}

// streamInfo describes s. The frame rate prefers r_frame_rate and falls back to avg_frame_rate.
func streamInfo(s *astiav.Stream) playback.StreamInfo {
	cp := s.CodecParameters()
	info := playback.StreamInfo{
		Index:     s.Index(),
		MediaType: mediaType(cp.MediaType()),
		CodecName: cp.CodecID().String(),
		TimeBase:  rational(s.TimeBase()),
	}

	if info.MediaType == playback.MediaTypeVideo {
		info.Width = cp.Width()
		info.Height = cp.Height()
		info.PixelFormat = cp.PixelFormat().String()

		rate := s.RFrameRate()
		if rate.Num() <= 0 || rate.Den() <= 0 {
			rate = s.AvgFrameRate()
		}
		info.FrameRate = rational(rate)
	}
	return info
}
