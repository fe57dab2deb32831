//go:build linux

package render

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// shmDir is where POSIX shared memory objects live on Linux
const shmDir = "/dev/shm"

const probeImageID = 999

// ShmSupported returns true if /dev/shm is available and the terminal answers
// a shared memory (t=s) transmission with OK.
//
// IMPORTANT: MUST BE CALLED BEFORE BUBBLETEA STARTS
func ShmSupported() bool {
	info, err := os.Stat(shmDir)
	if err != nil || !info.IsDir() {
		return false
	}

	var reply string
	err = withRawStdin(func() error {
		// Create a tiny 1x1 RGB object for the terminal to read
		const probeName = "/loopwall-probe"
		if err := writeShm(probeName, []byte{0, 0, 0}); err != nil {
			return err
		}
		defer os.Remove(shmDir + probeName)

		// No q= so the terminal responds with \x1b_Gi=999;OK\x1b\\
		encodedName := base64.StdEncoding.EncodeToString([]byte(probeName))
		fmt.Fprintf(os.Stdout, "\x1b_Ga=T,f=24,s=1,v=1,i=%d,t=s;%s\x1b\\", probeImageID, encodedName)

		buf := make([]byte, 256)
		n, _ := os.Stdin.Read(buf)
		reply = string(buf[:n])

		// Remove the probe image from the terminal
		fmt.Fprintf(os.Stdout, "\x1b_Ga=d,d=I,i=%d,q=2\x1b\\", probeImageID)
		return nil
	})

	return err == nil && strings.Contains(reply, "OK")
}

// withRawStdin runs fn with stdin in non-canonical mode and a 200ms read
// timeout, restoring the previous settings afterwards.
func withRawStdin(fn func() error) error {
	fd := int(os.Stdin.Fd())

	old, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}

	raw := *old
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG
	raw.Iflag &^= unix.IXON | unix.ICRNL
	raw.Cc[unix.VMIN] = 0
	raw.Cc[unix.VTIME] = 2
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return err
	}
	defer unix.IoctlSetTermios(fd, unix.TCSETS, old)

	// Drain any pending input
	drain := make([]byte, 256)
	os.Stdin.Read(drain)

	return fn()
}

// writeShm creates the shared memory object name holding data. The terminal
// unlinks it after reading.
func writeShm(name string, data []byte) error {
	return os.WriteFile(shmDir+name, data, 0600)
}
