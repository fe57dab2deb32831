package playback

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the lifecycle state of a Loop.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Components are the collaborators a Loop takes ownership of.
type Components struct {
	Source    Source
	Decoder   Decoder
	Converter Converter
	Presenter Presenter

	// Lifecycle is optional; NewLoop creates one when nil.
	Lifecycle *Lifecycle
}

// Stats are cumulative counters of a Loop.
type Stats struct {
	FramesPresented  uint64
	Loops            uint64
	PacketsDiscarded uint64
	ReadErrors       uint64
	DecodeErrors     uint64
	ConvertErrors    uint64
	PresentErrors    uint64
}

type counters struct {
	framesPresented  atomic.Uint64
	loops            atomic.Uint64
	packetsDiscarded atomic.Uint64
	readErrors       atomic.Uint64
	decodeErrors     atomic.Uint64
	convertErrors    atomic.Uint64
	presentErrors    atomic.Uint64
}

// Loop pumps packets from a Source through a Decoder and Converter into a
// Presenter, one frame at a time, restarting the stream when it ends.
type Loop struct {
	source    Source
	decoder   Decoder
	converter Converter
	presenter Presenter
	lifecycle *Lifecycle
	pacer     *Pacer
	log       logrus.FieldLogger

	stream StreamInfo
	delay  time.Duration
	frame  *PresentationFrame

	maxReadErrors  int
	maxEmptyPasses int

	state     atomic.Int32
	stats     counters
	closeOnce sync.Once
}

// NewLoop validates cfg and takes ownership of the components. The single
// presentation buffer is allocated here and reused for every frame.
func NewLoop(cfg Config, c Components) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c.Source == nil || c.Decoder == nil || c.Converter == nil || c.Presenter == nil {
		return nil, errors.New("playback loop requires a source, decoder, converter and presenter")
	}

	frame, err := NewPresentationFrame(cfg.Width, cfg.Height, cfg.Format)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	lifecycle := c.Lifecycle
	if lifecycle == nil {
		lifecycle = NewLifecycle()
	}

	pacer := NewPacer(cfg.Overhead, cfg.Clock)
	stream := c.Source.Video()

	return &Loop{
		source:         c.Source,
		decoder:        c.Decoder,
		converter:      c.Converter,
		presenter:      c.Presenter,
		lifecycle:      lifecycle,
		pacer:          pacer,
		log:            log,
		stream:         stream,
		delay:          pacer.DelayFor(stream.FrameRate.Float64()),
		frame:          frame,
		maxReadErrors:  cfg.MaxReadErrors,
		maxEmptyPasses: cfg.MaxEmptyPasses,
	}, nil
}

// Lifecycle returns the running flag observed by the loop.
func (l *Loop) Lifecycle() *Lifecycle {
	return l.lifecycle
}

// State returns the current state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Stream returns the video stream being played.
func (l *Loop) Stream() StreamInfo {
	return l.stream
}

// FrameDelay returns the pacing delay applied after each frame.
func (l *Loop) FrameDelay() time.Duration {
	return l.delay
}

// Stats returns a snapshot of the counters.
func (l *Loop) Stats() Stats {
	return Stats{
		FramesPresented:  l.stats.framesPresented.Load(),
		Loops:            l.stats.loops.Load(),
		PacketsDiscarded: l.stats.packetsDiscarded.Load(),
		ReadErrors:       l.stats.readErrors.Load(),
		DecodeErrors:     l.stats.decodeErrors.Load(),
		ConvertErrors:    l.stats.convertErrors.Load(),
		PresentErrors:    l.stats.presentErrors.Load(),
	}
}

// Run plays until stop is requested or a fatal error occurs. Owned resources
// are released before Run returns.
func (l *Loop) Run() error {
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrAlreadyStarted
	}
	defer l.release()

	l.log.WithFields(logrus.Fields{
		"function": "Run",
		"stream":   l.stream.Index,
		"codec":    l.stream.CodecName,
		"fps":      l.stream.FrameRate.String(),
		"delay":    l.delay,
	}).Info("Playback started")

	var (
		readErrors  int
		emptyPasses int
		decoded     int
	)

	for l.lifecycle.IsRunning() {
		pkt, err := l.source.ReadPacket()
		if err != nil && !errors.Is(err, io.EOF) {
			readErrors++
			l.stats.readErrors.Add(1)
			l.log.WithFields(logrus.Fields{
				"function":    "Run",
				"consecutive": readErrors,
				"error":       err.Error(),
			}).Warn("Failed to read packet")
			if readErrors < l.maxReadErrors {
				continue
			}
			err = io.EOF
		}

		if err != nil {
			readErrors = 0
			decoded += l.finishPass()
			if !l.lifecycle.IsRunning() {
				break
			}
			if err := l.restart(); err != nil {
				return err
			}

			if decoded > 0 {
				emptyPasses = 0
			} else {
				emptyPasses++
				if emptyPasses >= l.maxEmptyPasses {
					return fmt.Errorf("%w after %d passes", ErrNoFrames, emptyPasses)
				}
			}
			decoded = 0
			continue
		}
		readErrors = 0

		if pkt.StreamIndex() != l.stream.Index {
			pkt.Release()
			l.stats.packetsDiscarded.Add(1)
			continue
		}

		err = l.decoder.Submit(pkt)
		pkt.Release()
		if err != nil {
			l.stats.decodeErrors.Add(1)
			l.log.WithFields(logrus.Fields{
				"function": "Run",
				"error":    err.Error(),
			}).Warn("Failed to submit packet")
			continue
		}

		decoded += l.drain()
	}

	return nil
}

// Start runs the loop on its own goroutine.
func (l *Loop) Start() *Handle {
	h := &Handle{
		lifecycle: l.lifecycle,
		done:      make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		h.err = l.Run()
	}()
	return h
}

// Close releases the components of a loop that was never run.
func (l *Loop) Close() {
	if l.state.CompareAndSwap(int32(StateIdle), int32(StateStopped)) {
		l.release()
	}
}

// drain presents every frame the decoder has ready and returns how many
// frames it yielded.
func (l *Loop) drain() int {
	n := 0
	for frame := range l.decoder.Drain() {
		if !l.lifecycle.IsRunning() {
			break
		}
		n++
		l.present(frame)
		l.pacer.Wait(l.delay, l.lifecycle.Done())
	}

	if err := l.decoder.Err(); err != nil {
		l.stats.decodeErrors.Add(1)
		l.log.WithFields(logrus.Fields{
			"function": "drain",
			"error":    err.Error(),
		}).Warn("Failed to decode frame")
	}
	return n
}

func (l *Loop) present(frame DecodedFrame) {
	if err := l.converter.Convert(frame, l.frame); err != nil {
		l.stats.convertErrors.Add(1)
		l.log.WithFields(logrus.Fields{
			"function": "present",
			"width":    frame.Width(),
			"height":   frame.Height(),
			"error":    err.Error(),
		}).Warn("Failed to convert frame")
		return
	}

	if err := l.presenter.Present(l.frame.Pix, l.frame.Width, l.frame.Height, l.frame.Format); err != nil {
		l.stats.presentErrors.Add(1)
		l.log.WithFields(logrus.Fields{
			"function": "present",
			"error":    err.Error(),
		}).Warn("Failed to present frame")
		return
	}
	l.stats.framesPresented.Add(1)
}

// finishPass drains frames still buffered in the decoder at end of stream.
func (l *Loop) finishPass() int {
	if err := l.decoder.Submit(nil); err != nil {
		l.log.WithFields(logrus.Fields{
			"function": "finishPass",
			"error":    err.Error(),
		}).Debug("Decoder rejected end of stream")
		return 0
	}
	return l.drain()
}

func (l *Loop) restart() error {
	if err := l.source.Restart(); err != nil {
		l.log.WithFields(logrus.Fields{
			"function": "restart",
			"error":    err.Error(),
		}).Error("Failed to rewind stream")
		return fmt.Errorf("restart stream: %w", err)
	}
	l.decoder.Flush()

	loops := l.stats.loops.Add(1)
	l.log.WithFields(logrus.Fields{
		"function": "restart",
		"loops":    loops,
	}).Debug("Stream restarted")
	return nil
}

func (l *Loop) release() {
	l.closeOnce.Do(func() {
		l.converter.Close()
		l.decoder.Close()
		l.source.Close()
		l.state.Store(int32(StateStopped))

		s := l.Stats()
		l.log.WithFields(logrus.Fields{
			"function": "release",
			"frames":   s.FramesPresented,
			"loops":    s.Loops,
		}).Info("Playback stopped")
	})
}

// Handle is the host's view of a started loop.
type Handle struct {
	lifecycle *Lifecycle
	done      chan struct{}
	err       error
}

// RequestStop asks the loop to finish its current iteration and exit.
func (h *Handle) RequestStop() {
	h.lifecycle.RequestStop()
}

// Wait blocks until the loop has exited and released its resources.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Done is closed when the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
