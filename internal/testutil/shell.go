package testutil

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/newtron-network/addrbatch/pkg/session"
)

// FakeShell is a scripted interactive shell. Every written line is recorded
// and answered with Respond's output, which becomes readable immediately.
// Reads never block: an empty buffer is a read timeout, or EOF once the
// shell has been closed by the remote.
type FakeShell struct {
	mu sync.Mutex

	// Banner is readable before any command is written.
	Banner string
	// Respond produces the output for one written line (line ending
	// stripped). Nil echoes the line back.
	Respond func(line string) string
	// CloseAfter closes the channel from the remote side after that many
	// writes. Zero never closes.
	CloseAfter int
	// WriteErrAt fails the Nth write (1-based). Zero never fails.
	WriteErrAt int
	WriteErr   error
	// ReadErrAfter makes the first read following the Nth write fail with
	// ReadErr (1-based). Zero never fails.
	ReadErrAfter int
	ReadErr      error

	writes     []string
	buf        []byte
	remoteDone bool
	readErrDue bool
	closed     int
	started    bool
}

// Write records one line and queues its response.
func (f *FakeShell) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.start()

	if f.remoteDone {
		return 0, io.ErrClosedPipe
	}
	n := len(f.writes) + 1
	if f.WriteErrAt == n {
		err := f.WriteErr
		if err == nil {
			err = errors.New("broken pipe")
		}
		return 0, err
	}

	line := strings.TrimRight(string(p), "\r\n")
	f.writes = append(f.writes, line)
	if f.Respond != nil {
		f.buf = append(f.buf, f.Respond(line)...)
	} else {
		f.buf = append(f.buf, line+"\r\n"...)
	}
	if f.ReadErrAfter == n {
		f.readErrDue = true
	}
	if f.CloseAfter == n {
		f.remoteDone = true
	}
	return len(p), nil
}

// ReadTimeout returns buffered output without waiting.
func (f *FakeShell) ReadTimeout(p []byte, _ time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.start()

	if f.readErrDue {
		f.readErrDue = false
		err := f.ReadErr
		if err == nil {
			err = errors.New("connection reset")
		}
		return 0, err
	}
	if len(f.buf) == 0 {
		if f.remoteDone {
			return 0, io.EOF
		}
		return 0, session.ErrReadTimeout
	}
	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

// Close records the local close.
func (f *FakeShell) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// Emit queues unsolicited output, as a device does after a slow commit.
func (f *FakeShell) Emit(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.start()
	f.buf = append(f.buf, s...)
}

// Writes returns the lines written so far.
func (f *FakeShell) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

// Closed returns how many times Close was called.
func (f *FakeShell) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeShell) start() {
	if !f.started {
		f.started = true
		f.buf = append(f.buf, f.Banner...)
	}
}

// FakeDialer hands out one FakeShell and records the connection lifecycle.
type FakeDialer struct {
	Shell *FakeShell
	// ConnectErr fails Connect. OpenErr fails OpenShell; use a
	// *util.AuthError to model a rejected login.
	ConnectErr error
	OpenErr    error

	mu         sync.Mutex
	connects   int
	opens      int
	connCloses int
	targets    []session.Target
}

// Connect returns a fake transport unless ConnectErr is set.
func (d *FakeDialer) Connect(_ context.Context, target session.Target) (session.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connects++
	d.targets = append(d.targets, target)
	if d.ConnectErr != nil {
		return nil, d.ConnectErr
	}
	return &fakeConn{d: d}, nil
}

// Connects returns how many times Connect was called.
func (d *FakeDialer) Connects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connects
}

// Opens returns how many shells were opened successfully.
func (d *FakeDialer) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// ConnCloses returns how many transports were closed.
func (d *FakeDialer) ConnCloses() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connCloses
}

// Targets returns the targets passed to Connect.
func (d *FakeDialer) Targets() []session.Target {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]session.Target(nil), d.targets...)
}

type fakeConn struct {
	d *FakeDialer
}

func (c *fakeConn) OpenShell(_ context.Context, _ session.Target) (session.Shell, error) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	if c.d.OpenErr != nil {
		return nil, c.d.OpenErr
	}
	c.d.opens++
	if c.d.Shell == nil {
		c.d.Shell = &FakeShell{}
	}
	return c.d.Shell, nil
}

func (c *fakeConn) Close() error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	c.d.connCloses++
	return nil
}
