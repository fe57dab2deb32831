package playback

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycle_StartsRunning(t *testing.T) {
	l := NewLifecycle()
	assert.True(t, l.IsRunning())

	select {
	case <-l.Done():
		t.Fatal("done closed before stop")
	default:
	}
}

func TestLifecycle_RequestStopIsIdempotent(t *testing.T) {
	l := NewLifecycle()

	l.RequestStop()
	l.RequestStop()

	assert.False(t, l.IsRunning())
	_, open := <-l.Done()
	assert.False(t, open)
}

func TestLifecycle_ConcurrentStop(t *testing.T) {
	l := NewLifecycle()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.RequestStop()
			_ = l.IsRunning()
		}()
	}
	wg.Wait()

	assert.False(t, l.IsRunning())
}
