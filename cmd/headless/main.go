// Command headless plays a video, or a synthetic test pattern, into a
// discarding presenter and prints loop statistics. It exercises decoding and
// scaling without a Kitty terminal.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/njyeung/loopwall/playback"
	"github.com/njyeung/loopwall/player"
	"github.com/njyeung/loopwall/render"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "headless",
		Usage:     "decode a video on a loop without displaying it",
		UsageText: "headless [--duration D] [--format F] (--pattern | <video>)",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "duration",
				Value: 10 * time.Second,
				Usage: "how long to play before stopping",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: "rgba",
				Usage: "target pixel format (rgba, rgb24, bgra)",
			},
			&cli.BoolFlag{
				Name:  "pattern",
				Usage: "play a synthetic test pattern instead of a video, without FFmpeg",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "log level (debug, info, warn, error)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	pattern := c.Bool("pattern")
	if !pattern && c.NArg() != 1 {
		return errors.New("expected exactly one video argument")
	}
	format, err := playback.ParsePixelFormat(c.String("format"))
	if err != nil {
		return err
	}

	lvl, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	log := logrus.New()
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	player.SetLogger(log)

	cfg := playback.DefaultConfig()
	cfg.Width = 320
	cfg.Height = 180
	cfg.Format = format
	cfg.Logger = log

	presenter := &render.NullPresenter{}
	var loop *playback.Loop
	if pattern {
		loop, err = openPattern(cfg, presenter)
	} else {
		loop, err = player.Open(c.Args().First(), cfg, presenter, nil)
	}
	if err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	start := time.Now()
	handle := loop.Start()

	select {
	case <-time.After(c.Duration("duration")):
	case <-sigs:
	case <-handle.Done():
	}
	handle.RequestStop()
	runErr := handle.Wait()

	elapsed := time.Since(start)
	s := loop.Stats()
	stream := loop.Stream()

	fmt.Printf("stream:    #%d %s %dx%d @ %s fps (delay %v)\n",
		stream.Index, stream.CodecName, stream.Width, stream.Height, stream.FrameRate, loop.FrameDelay())
	fmt.Printf("elapsed:   %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("frames:    %d (%.1f/s)\n", s.FramesPresented, float64(s.FramesPresented)/elapsed.Seconds())
	fmt.Printf("loops:     %d\n", s.Loops)
	fmt.Printf("bytes:     %d\n", presenter.Bytes())
	fmt.Printf("discarded: %d packets\n", s.PacketsDiscarded)
	fmt.Printf("errors:    read %d, decode %d, convert %d, present %d\n",
		s.ReadErrors, s.DecodeErrors, s.ConvertErrors, s.PresentErrors)

	return runErr
}

// openPattern builds a loop over the synthetic test pattern, scaled by the
// pure-Go converter.
func openPattern(cfg playback.Config, presenter playback.Presenter) (*playback.Loop, error) {
	src, dec, err := playback.NewPattern(640, 360, 90, playback.Rational{Num: 30, Den: 1})
	if err != nil {
		return nil, err
	}
	conv, err := playback.NewImageConverter(cfg.Width, cfg.Height, cfg.Format)
	if err != nil {
		return nil, err
	}
	return playback.NewLoop(cfg, playback.Components{
		Source:    src,
		Decoder:   dec,
		Converter: conv,
		Presenter: presenter,
	})
}
