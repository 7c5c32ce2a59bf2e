package session

import (
	"io"
	"sync"
	"time"
)

// Shell is one interactive remote shell channel.
type Shell interface {
	io.Writer
	TimedReader
	Close() error
}

// stream turns a blocking reader into bounded-time reads. A pump goroutine
// forwards chunks; ReadTimeout returns whatever is already buffered, up to
// len(p), the way a socket recv does.
type stream struct {
	chunks  chan []byte
	done    chan struct{}
	once    sync.Once
	err     error // set by pump before chunks is closed
	pending []byte
}

func newStream(r io.Reader) *stream {
	s := &stream{
		chunks: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
	go s.pump(r)
	return s
}

func (s *stream) pump(r io.Reader) {
	defer close(s.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			c := append([]byte(nil), buf[:n]...)
			select {
			case s.chunks <- c:
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.err = err
			return
		}
	}
}

// ReadTimeout waits up to timeout for the first byte, then fills p with
// anything else already received without waiting further.
func (s *stream) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	if len(s.pending) > 0 {
		n = copy(p, s.pending)
		s.pending = s.pending[n:]
	} else {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case c, ok := <-s.chunks:
			if !ok {
				return 0, s.closedErr()
			}
			n = copy(p, c)
			s.pending = c[n:]
		case <-timer.C:
			return 0, ErrReadTimeout
		}
	}

	for n < len(p) {
		select {
		case c, ok := <-s.chunks:
			if !ok {
				return n, nil
			}
			m := copy(p[n:], c)
			n += m
			s.pending = c[m:]
		default:
			return n, nil
		}
	}
	return n, nil
}

func (s *stream) closedErr() error {
	if s.err == nil {
		return io.EOF
	}
	return s.err
}

func (s *stream) close() {
	s.once.Do(func() { close(s.done) })
}
