package playback

import (
	"math"
	"time"
)

const (
	// DefaultOverhead is subtracted from every frame interval to account for
	// conversion and presentation time.
	DefaultOverhead = 10 * time.Millisecond

	// DefaultFrameRate is used when a stream reports no usable frame rate.
	DefaultFrameRate = 30.0
)

// Clock abstracts time so pacing can be tested without sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Pacer turns a nominal frame rate into a per-frame sleep.
type Pacer struct {
	overhead time.Duration
	clock    Clock
}

// NewPacer creates a pacer. A nil clock means SystemClock.
func NewPacer(overhead time.Duration, clock Clock) *Pacer {
	if clock == nil {
		clock = SystemClock{}
	}
	if overhead < 0 {
		overhead = 0
	}
	return &Pacer{overhead: overhead, clock: clock}
}

// DelayFor returns floor(1000/fps) milliseconds minus the overhead, never negative.
func (p *Pacer) DelayFor(fps float64) time.Duration {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		fps = DefaultFrameRate
	}

	interval := time.Duration(math.Floor(1000/fps)) * time.Millisecond
	delay := interval - p.overhead
	if delay < 0 {
		return 0
	}
	return delay
}

// Wait sleeps for d. It returns false if stop was closed first.
func (p *Pacer) Wait(d time.Duration, stop <-chan struct{}) bool {
	if d <= 0 {
		return true
	}

	select {
	case <-p.clock.After(d):
		return true
	case <-stop:
		return false
	}
}
