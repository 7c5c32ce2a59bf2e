package session

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrReadTimeout is returned by a Shell read that saw no data within its
// deadline. It ends a drain normally.
var ErrReadTimeout = errors.New("read timeout")

// errDrainExceeded marks a drain cut off by its MaxDrain cap.
var errDrainExceeded = errors.New("output still arriving")

// TimedReader is a reader whose every read is bounded in time.
type TimedReader interface {
	ReadTimeout(p []byte, timeout time.Duration) (int, error)
}

// Drain reads until the remote side goes quiet: a read returns fewer bytes
// than size, a read times out, or the channel reaches EOF (closed is then
// true). Any other read error is returned with the bytes gathered so far.
// maxWait > 0 caps the total drain time.
func Drain(r TimedReader, size int, readTimeout, maxWait time.Duration) (out []byte, closed bool, err error) {
	if size < 1 {
		size = 1024
	}
	buf := make([]byte, size)
	start := time.Now()

	for {
		n, rerr := r.ReadTimeout(buf, readTimeout)
		out = append(out, buf[:n]...)

		switch {
		case rerr == nil:
		case errors.Is(rerr, ErrReadTimeout):
			return out, false, nil
		case errors.Is(rerr, io.EOF):
			return out, true, nil
		default:
			return out, false, rerr
		}

		if n < size {
			return out, false, nil
		}
		if maxWait > 0 && time.Since(start) > maxWait {
			return out, false, fmt.Errorf("%w after %s", errDrainExceeded, maxWait)
		}
	}
}
