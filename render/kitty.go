package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/njyeung/loopwall/playback"
)

// VideoImageID is the Kitty image id every frame is transmitted under.
const VideoImageID = 1

// chunkSize is the largest base64 payload allowed in one escape sequence.
const chunkSize = 4096

// KittyRenderer presents frames on the terminal with Kitty's graphics
// protocol. Frames are placed at the top-left cell, stretched over the
// configured cell grid and drawn below the text layer.
type KittyRenderer struct {
	mu sync.Mutex

	out     io.Writer
	imageID int

	// Cell grid the image is stretched over; zero means native pixel size
	cols int
	rows int

	useShm bool
	shmSeq uint64

	// Reused between frames
	buf     bytes.Buffer
	encoded []byte
}

var _ playback.Presenter = (*KittyRenderer)(nil)

// NewKittyRenderer creates a new Kitty graphics renderer
func NewKittyRenderer(out io.Writer) *KittyRenderer {
	return &KittyRenderer{
		out:     out,
		imageID: VideoImageID,
	}
}

// SetOutput changes the output writer
func (r *KittyRenderer) SetOutput(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = w
}

// SetCellGrid stretches the image over cols x rows terminal cells
func (r *KittyRenderer) SetCellGrid(cols, rows int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cols = cols
	r.rows = rows
}

// SetUseShm switches between shared-memory and inline transmission
func (r *KittyRenderer) SetUseShm(use bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.useShm = use
}

// Present transmits and displays one frame
func (r *KittyRenderer) Present(pix []byte, width, height int, format playback.PixelFormat) error {
	f, err := kittyFormat(format)
	if err != nil {
		return err
	}
	if need := width * height * format.BytesPerPixel(); len(pix) < need {
		return fmt.Errorf("frame buffer holds %d bytes, %dx%d %v needs %d", len(pix), width, height, format, need)
	}
	pix = pix[:width*height*format.BytesPerPixel()]

	r.mu.Lock()
	defer r.mu.Unlock()

	buf := &r.buf
	buf.Reset()

	// Begin synchronized update
	buf.WriteString("\x1b[?2026h")

	// Save cursor position and move to the top-left cell
	buf.WriteString("\x1b7")
	buf.WriteString("\x1b[1;1H")

	// Kitty graphics protocol:
	// ESC_G<key>=<value>,...;<payload>ESC\
	//
	// Keys:
	//   a=T - action: transmit and display
	//   f=24|32 - format: RGB or RGBA
	//   s=W, v=H - size in pixels
	//   i=ID, p=1 - image and placement ids, so every frame replaces the last
	//   z=-1 - draw below text
	//   C=1 - do not move the cursor
	//   c=, r= - columns and rows to stretch over
	//   q=2 - quiet mode (suppress responses)
	header := fmt.Sprintf("a=T,f=%d,s=%d,v=%d,i=%d,p=1,z=-1,C=1,q=2", f, width, height, r.imageID)
	if r.cols > 0 && r.rows > 0 {
		header += fmt.Sprintf(",c=%d,r=%d", r.cols, r.rows)
	}

	if !r.useShm || !r.writeShm(buf, header, pix) {
		r.writeInline(buf, header, pix)
	}

	// Restore cursor position
	buf.WriteString("\x1b8")

	// End synchronized update
	buf.WriteString("\x1b[?2026l")

	// Write entire frame atomically
	_, err = r.out.Write(buf.Bytes())
	return err
}

// writeShm places pix in a shared memory object the terminal reads and unlinks.
// It returns false when the object could not be written; shm is then disabled.
func (r *KittyRenderer) writeShm(buf *bytes.Buffer, header string, pix []byte) bool {
	r.shmSeq++
	name := fmt.Sprintf("/loopwall-%d-%d", os.Getpid(), r.shmSeq)
	if err := writeShm(name, pix); err != nil {
		r.useShm = false
		return false
	}

	encodedName := base64.StdEncoding.EncodeToString([]byte(name))
	fmt.Fprintf(buf, "\x1b_G%s,t=s,S=%d;%s\x1b\\", header, len(pix), encodedName)
	return true
}

// writeInline base64 encodes pix and splits it into chunks
func (r *KittyRenderer) writeInline(buf *bytes.Buffer, header string, pix []byte) {
	n := base64.StdEncoding.EncodedLen(len(pix))
	if cap(r.encoded) < n {
		r.encoded = make([]byte, n)
	}
	encoded := r.encoded[:n]
	base64.StdEncoding.Encode(encoded, pix)

	first := true
	for len(encoded) > 0 {
		chunk := encoded
		more := 0

		if len(chunk) > chunkSize {
			chunk = encoded[:chunkSize]
			more = 1
		}
		encoded = encoded[len(chunk):]

		if first {
			// First chunk: include all parameters
			// m=1 means more chunks follow, m=0 means last chunk
			fmt.Fprintf(buf, "\x1b_G%s,m=%d;", header, more)
			first = false
		} else {
			// Continuation chunks
			fmt.Fprintf(buf, "\x1b_Gm=%d;", more)
		}
		buf.Write(chunk)
		buf.WriteString("\x1b\\")
	}
}

// Clear deletes the video image and frees its data
func (r *KittyRenderer) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := fmt.Fprintf(r.out, "\x1b_Ga=d,d=I,i=%d,q=2\x1b\\", r.imageID)
	return err
}

func kittyFormat(f playback.PixelFormat) (int, error) {
	switch f {
	case playback.PixelFormatRGB24:
		return 24, nil
	case playback.PixelFormatRGBA:
		return 32, nil
	default:
		return 0, fmt.Errorf("%w: kitty cannot display %v", playback.ErrUnsupportedFormat, f)
	}
}
