//go:build !linux

package render

import "errors"

// ShmSupported is always false outside Linux
func ShmSupported() bool {
	return false
}

func writeShm(name string, data []byte) error {
	return errors.New("shared memory transmission requires linux")
}
