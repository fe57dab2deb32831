package playback

import (
	"image"
	"image/color"
	"io"
	"iter"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakePacket struct {
	stream int
	id     int
	src    *fakeSource
}

func (p *fakePacket) StreamIndex() int { return p.stream }

func (p *fakePacket) Release() { p.src.released++ }

// fakeSource replays a fixed packet list per pass.
type fakeSource struct {
	info    StreamInfo
	packets []fakePacket
	pos     int

	reads    int
	restarts int
	closes   int
	released int

	readErrs   map[int]error
	restartErr error
}

func newFakeSource(fps int, packets ...fakePacket) *fakeSource {
	return &fakeSource{
		info: StreamInfo{
			Index:     0,
			MediaType: MediaTypeVideo,
			CodecName: "fake",
			Width:     8,
			Height:    8,
			FrameRate: Rational{Num: fps, Den: 1},
		},
		packets: packets,
	}
}

// videoPackets returns n packets on stream 0 with ids 0..n-1.
func videoPackets(n int) []fakePacket {
	pkts := make([]fakePacket, n)
	for i := range pkts {
		pkts[i] = fakePacket{stream: 0, id: i}
	}
	return pkts
}

func (s *fakeSource) Video() StreamInfo { return s.info }

func (s *fakeSource) ReadPacket() (Packet, error) {
	s.reads++
	if err, ok := s.readErrs[s.reads]; ok {
		return nil, err
	}
	if s.pos >= len(s.packets) {
		return nil, io.EOF
	}
	p := s.packets[s.pos]
	s.pos++
	return &fakePacket{stream: p.stream, id: p.id, src: s}, nil
}

func (s *fakeSource) Restart() error {
	s.restarts++
	if s.restartErr != nil {
		return s.restartErr
	}
	s.pos = 0
	return nil
}

func (s *fakeSource) Close() { s.closes++ }

type testFrame struct {
	id  int
	img image.Image
}

func (f *testFrame) Width() int  { return 8 }
func (f *testFrame) Height() int { return 8 }

func (f *testFrame) Image() image.Image { return f.img }

// fakeDecoder emits perPacket frames per packet and holds back delay frames
// the way a decoder with B-frame reordering does.
type fakeDecoder struct {
	delay     int
	perPacket int

	buffered []int
	ready    []int

	submits   int
	eofs      int
	flushes   int
	closes    int
	submitErr func(id int) error
	err       error
}

func (d *fakeDecoder) Submit(pkt Packet) error {
	if pkt == nil {
		d.eofs++
		d.ready = append(d.ready, d.buffered...)
		d.buffered = nil
		return nil
	}

	d.submits++
	fp := pkt.(*fakePacket)
	if d.submitErr != nil {
		if err := d.submitErr(fp.id); err != nil {
			return err
		}
	}

	per := max(d.perPacket, 1)
	for i := 0; i < per; i++ {
		d.buffered = append(d.buffered, fp.id*per+i)
	}
	for len(d.buffered) > d.delay {
		d.ready = append(d.ready, d.buffered[0])
		d.buffered = d.buffered[1:]
	}
	return nil
}

func (d *fakeDecoder) Drain() iter.Seq[DecodedFrame] {
	return func(yield func(DecodedFrame) bool) {
		for len(d.ready) > 0 {
			id := d.ready[0]
			d.ready = d.ready[1:]
			if !yield(&testFrame{id: id}) {
				return
			}
		}
	}
}

func (d *fakeDecoder) Err() error { return d.err }

func (d *fakeDecoder) Flush() {
	d.flushes++
	d.buffered = nil
	d.ready = nil
}

func (d *fakeDecoder) Close() { d.closes++ }

// idConverter stamps the frame id into the first byte of the output.
type idConverter struct {
	converts int
	closes   int
	fail     func(id int) error
}

func (c *idConverter) Convert(frame DecodedFrame, dst *PresentationFrame) error {
	c.converts++
	id := frame.(*testFrame).id
	if c.fail != nil {
		if err := c.fail(id); err != nil {
			return err
		}
	}
	dst.Pix[0] = byte(id)
	return nil
}

func (c *idConverter) Close() { c.closes++ }

type presentCall struct {
	id     int
	at     time.Time
	width  int
	height int
	format PixelFormat
}

type recordingPresenter struct {
	clock     Clock
	calls     []presentCall
	fail      func(n int) error
	onPresent func(n int)
}

func (p *recordingPresenter) Present(pix []byte, width, height int, format PixelFormat) error {
	n := len(p.calls) + 1
	if p.fail != nil {
		if err := p.fail(n); err != nil {
			return err
		}
	}
	p.calls = append(p.calls, presentCall{
		id:     int(pix[0]),
		at:     p.clock.Now(),
		width:  width,
		height: height,
		format: format,
	})
	if p.onPresent != nil {
		p.onPresent(len(p.calls))
	}
	return nil
}

func (p *recordingPresenter) ids() []int {
	ids := make([]int, len(p.calls))
	for i, c := range p.calls {
		ids[i] = c.id
	}
	return ids
}

// manualClock advances only when the pacer waits on it.
type manualClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *manualClock) waitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waits)
}

// harness wires fakes into a Loop.
type harness struct {
	source    *fakeSource
	decoder   *fakeDecoder
	converter *idConverter
	presenter *recordingPresenter
	clock     *manualClock
	lifecycle *Lifecycle
	logHook   *test.Hook
	cfg       Config
}

func newHarness(source *fakeSource) *harness {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	clock := newManualClock()
	cfg := DefaultConfig()
	cfg.Width = 4
	cfg.Height = 2
	cfg.Clock = clock
	cfg.Logger = logger

	return &harness{
		source:    source,
		decoder:   &fakeDecoder{},
		converter: &idConverter{},
		presenter: &recordingPresenter{clock: clock},
		clock:     clock,
		lifecycle: NewLifecycle(),
		logHook:   hook,
		cfg:       cfg,
	}
}

// stopAfter requests stop once n frames have been presented.
func (h *harness) stopAfter(n int) {
	h.presenter.onPresent = func(count int) {
		if count >= n {
			h.lifecycle.RequestStop()
		}
	}
}

func (h *harness) loop() (*Loop, error) {
	return NewLoop(h.cfg, Components{
		Source:    h.source,
		Decoder:   h.decoder,
		Converter: h.converter,
		Presenter: h.presenter,
		Lifecycle: h.lifecycle,
	})
}

func (h *harness) warnings(msg string) int {
	n := 0
	for _, e := range h.logHook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == msg {
			n++
		}
	}
	return n
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
