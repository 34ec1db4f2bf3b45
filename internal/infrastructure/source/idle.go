package source

import (
	"errors"
	"io"
	"sync/atomic"
	"time"
)

var ErrIdleTimeout = errors.New("source: no data received within idle timeout")

// IdleTimeoutReader closes the underlying stream when no bytes arrive for the
// configured duration, which unblocks a Read stuck on a dead connection.
type IdleTimeoutReader struct {
	rc    io.ReadCloser
	d     time.Duration
	timer *time.Timer
	fired atomic.Bool
}

func NewIdleTimeoutReader(rc io.ReadCloser, d time.Duration) *IdleTimeoutReader {
	r := &IdleTimeoutReader{rc: rc, d: d}
	if d > 0 {
		r.timer = time.AfterFunc(d, func() {
			r.fired.Store(true)
			rc.Close()
		})
	}
	return r
}

func (r *IdleTimeoutReader) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if r.fired.Load() {
		return n, ErrIdleTimeout
	}
	if n > 0 && r.timer != nil {
		r.timer.Reset(r.d)
	}
	return n, err
}

func (r *IdleTimeoutReader) Close() error {
	if r.timer != nil {
		r.timer.Stop()
	}
	if r.fired.Load() {
		return nil
	}
	return r.rc.Close()
}
