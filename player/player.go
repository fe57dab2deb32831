package player

import (
	"github.com/njyeung/loopwall/playback"
	"github.com/sirupsen/logrus"
)

// Open builds a playback loop for url. Every failure here is an
// initialization error: nothing has been presented yet and all partially
// created resources are released before returning.
func Open(url string, cfg playback.Config, presenter playback.Presenter, lifecycle *playback.Lifecycle) (*playback.Loop, error) {
	demuxer, err := NewDemuxer(url)
	if err != nil {
		return nil, err
	}

	video, err := NewVideoDecoder(demuxer.VideoCodecParameters())
	if err != nil {
		demuxer.Close()
		return nil, err
	}

	srcW, srcH, srcFmt := video.SourceFormat()
	scaler, err := NewScaler(srcW, srcH, srcFmt, cfg.Width, cfg.Height, cfg.Format)
	if err != nil {
		video.Close()
		demuxer.Close()
		return nil, err
	}

	loop, err := playback.NewLoop(cfg, playback.Components{
		Source:    demuxer,
		Decoder:   video,
		Converter: scaler,
		Presenter: presenter,
		Lifecycle: lifecycle,
	})
	if err != nil {
		scaler.Close()
		video.Close()
		demuxer.Close()
		return nil, err
	}

	if cfg.Logger != nil {
		v := demuxer.Video()
		cfg.Logger.WithFields(logrus.Fields{
			"function": "Open",
			"url":      url,
			"streams":  len(demuxer.Streams()),
			"stream":   v.Index,
			"codec":    v.CodecName,
			"size":     [2]int{v.Width, v.Height},
			"pix_fmt":  v.PixelFormat,
			"target":   [2]int{cfg.Width, cfg.Height},
		}).Info("Opened video source")
	}

	return loop, nil
}
