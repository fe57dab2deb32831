package player

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/njyeung/loopwall/playback"
)

// Demuxer handles opening media and reading packets
type Demuxer struct {
	formatCtx   *astiav.FormatContext
	videoStream *astiav.Stream
	streams     []playback.StreamInfo
	video       playback.StreamInfo

	// One packet buffer, refilled by every read
	pkt     *astiav.Packet
	current packet

	mu     sync.Mutex
	closed bool
}

// NewDemuxer opens url and selects its first video stream
func NewDemuxer(url string) (*Demuxer, error) {
	d := &Demuxer{}

	// Allocate format context
	d.formatCtx = astiav.AllocFormatContext()
	if d.formatCtx == nil {
		return nil, fmt.Errorf("%w: failed to allocate format context", playback.ErrOpenFailed)
	}

	// Open input (url is filepath)
	if err := d.formatCtx.OpenInput(url, nil, nil); err != nil {
		d.formatCtx.Free()
		return nil, fmt.Errorf("%w: %s: %w", playback.ErrOpenFailed, url, err)
	}

	// Find stream info
	if err := d.formatCtx.FindStreamInfo(nil); err != nil {
		d.Close()
		return nil, fmt.Errorf("%w: failed to find stream info: %w", playback.ErrOpenFailed, err)
	}

	for _, stream := range d.formatCtx.Streams() {
		d.streams = append(d.streams, streamInfo(stream))
	}

	video, err := playback.SelectVideoStream(d.streams)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	d.video = video

	for _, stream := range d.formatCtx.Streams() {
		if stream.Index() == video.Index {
			d.videoStream = stream
			break
		}
	}

	d.pkt = astiav.AllocPacket()
	if d.pkt == nil {
		d.Close()
		return nil, fmt.Errorf("%w: failed to allocate packet", playback.ErrOpenFailed)
	}
	d.current.pkt = d.pkt

	return d, nil
}

// Streams lists every stream in declaration order
func (d *Demuxer) Streams() []playback.StreamInfo {
	return d.streams
}

// Video returns the selected video stream
func (d *Demuxer) Video() playback.StreamInfo {
	return d.video
}

// VideoCodecParameters returns the video codec parameters
func (d *Demuxer) VideoCodecParameters() *astiav.CodecParameters {
	if d.videoStream == nil {
		return nil
	}
	return d.videoStream.CodecParameters()
}

// ReadPacket reads the next packet in container order.
// Returns io.EOF when the stream ends. The previous packet must have been released.
func (d *Demuxer) ReadPacket() (playback.Packet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, errors.New("demuxer closed")
	}

	d.pkt.Unref()
	if err := d.formatCtx.ReadFrame(d.pkt); err != nil {
		if errors.Is(err, astiav.ErrEof) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read packet: %w", err)
	}

	return &d.current, nil
}

// Restart seeks the video stream back to the keyframe at or before zero
func (d *Demuxer) Restart() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return errors.New("demuxer closed")
	}

	d.pkt.Unref()
	flags := astiav.NewSeekFlags(astiav.SeekFlagBackward)
	if err := d.formatCtx.SeekFrame(d.video.Index, 0, flags); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	return nil
}

// Close releases all resources
func (d *Demuxer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true

	if d.pkt != nil {
		d.pkt.Free()
		d.pkt = nil
	}
	if d.formatCtx != nil {
		d.formatCtx.CloseInput()
		d.formatCtx.Free()
		d.formatCtx = nil
	}
}
