// Package session drives ordered command sequences through a remote
// interactive shell whose output has no framing. Command completion is
// inferred by draining output until the shell goes quiet.
package session

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/newtron-network/addrbatch/pkg/util"
)

// Target identifies the device and login of one run.
type Target struct {
	Host   string
	Port   int
	User   string
	Secret string
}

// Addr returns host:port, defaulting the port to 22.
func (t Target) Addr() string {
	port := t.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

// Dialer establishes the transport to a target.
type Dialer interface {
	Connect(ctx context.Context, target Target) (Conn, error)
}

// Conn is an established, not yet authenticated, transport.
type Conn interface {
	// OpenShell authenticates and starts the interactive shell. A rejected
	// login must be reported as a *util.AuthError.
	OpenShell(ctx context.Context, target Target) (Shell, error)
	Close() error
}

// Option configures a Driver.
type Option func(*Driver)

// WithSleep replaces the settle-delay sleep, for tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(d *Driver) { d.sleep = sleep }
}

// WithStateObserver registers a callback invoked on every state transition.
func WithStateObserver(fn func(State)) Option {
	return func(d *Driver) { d.observe = fn }
}

// Driver executes one command sequence over one shell channel. A Driver is
// single-use: the channel it opens belongs to exactly one run.
type Driver struct {
	profile Profile
	dialer  Dialer
	sleep   func(time.Duration)
	observe func(State)

	mu    sync.Mutex
	state State
	used  bool

	log *logrus.Entry
}

// NewDriver creates a driver for the given shell profile.
func NewDriver(profile Profile, dialer Dialer, opts ...Option) *Driver {
	d := &Driver{
		profile: profile,
		dialer:  dialer,
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Profile returns the shell profile the driver runs with.
func (d *Driver) Profile() Profile { return d.profile }

// State returns the current lifecycle state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Run connects, authenticates, and writes commands in order, bracketed by
// the profile's prologue and epilogue. A command whose drain fails gets a
// trouble note and the sequence continues; write failures and a channel the
// remote has closed are fatal. The context bounds connect and
// authentication; once commands are streaming the sequence runs to the end.
//
// The returned report is non-nil whenever the driver was not reused.
func (d *Driver) Run(ctx context.Context, target Target, commands []string) (*Report, error) {
	d.mu.Lock()
	if d.used {
		d.mu.Unlock()
		return nil, util.ErrDriverReused
	}
	d.used = true
	d.mu.Unlock()

	report := newReport(d.profile.Name, target.Host)
	d.log = util.WithRun(report.ID, target.Host, d.profile.Name)

	var (
		conn Conn
		sh   Shell
	)
	defer func() {
		if sh != nil {
			if err := sh.Close(); err != nil {
				d.log.Debugf("closing shell: %v", err)
			}
		}
		if conn != nil {
			if err := conn.Close(); err != nil {
				d.log.Debugf("closing transport: %v", err)
			}
		}
		if d.State() != Failed {
			d.transition(report, Closed)
		}
		report.State = d.State()
		report.Finished = time.Now()
	}()

	d.transition(report, Connecting)
	conn, err := d.dialer.Connect(ctx, target)
	if err != nil {
		conn = nil
		return report, d.fail(report, asTransport("connect", err))
	}

	d.transition(report, Authenticating)
	sh, err = conn.OpenShell(ctx, target)
	if err != nil {
		sh = nil
		if errors.Is(err, util.ErrAuthenticationFailure) {
			return report, d.fail(report, err)
		}
		return report, d.fail(report, asTransport("open shell", err))
	}

	d.transition(report, Ready)
	d.sleep(d.profile.ShellSettle)

	seq := d.bracket(commands)
	closed := false
	last := ""
	for i, step := range seq {
		d.transition(report, Streaming)
		if closed {
			return report, d.fail(report, util.NewTransportError("write", i, step.cmd,
				errors.New("channel closed by remote")))
		}
		line := strings.TrimRight(step.cmd, " \t\r\n") + d.profile.LineEnding
		if _, err := io.WriteString(sh, line); err != nil {
			return report, d.fail(report, util.NewTransportError("write", i, step.cmd, err))
		}

		d.sleep(d.profile.Timing.Delay(step.cmd))

		d.transition(report, Draining)
		out, eof, derr := Drain(sh, d.profile.ReadSize, d.profile.ReadTimeout, d.profile.MaxDrain)
		entry := Entry{
			Index:   i,
			Command: step.cmd,
			Output:  string(out),
			Class:   d.profile.Timing.Classify(step.cmd),
			Framing: step.framing,
		}
		if derr != nil {
			entry.Trouble = &util.DrainError{Index: i, Command: step.cmd, Err: derr}
			d.log.Warnf("%v", entry.Trouble)
		}
		report.Entries = append(report.Entries, entry)
		last = entry.Output
		closed = closed || eof
	}

	if !closed {
		d.sleep(d.profile.FinalSettle)
		out, _, derr := Drain(sh, d.profile.ReadSize, d.profile.ReadTimeout, d.profile.MaxDrain)
		trailer := string(out)
		if last != "" {
			trailer = strings.Replace(trailer, last, "", 1)
		}
		report.Trailer = trailer
		if derr != nil {
			report.TrailerTrouble = &util.DrainError{Index: len(seq), Command: "(trailing output)", Err: derr}
			d.log.Warnf("%v", report.TrailerTrouble)
		}
	}

	d.transition(report, Closing)
	return report, nil
}

type step struct {
	cmd     string
	framing bool
}

func (d *Driver) bracket(commands []string) []step {
	seq := make([]step, 0, len(d.profile.Prologue)+len(commands)+len(d.profile.Epilogue))
	for _, c := range d.profile.Prologue {
		seq = append(seq, step{cmd: c, framing: true})
	}
	for _, c := range commands {
		seq = append(seq, step{cmd: c})
	}
	for _, c := range d.profile.Epilogue {
		seq = append(seq, step{cmd: c, framing: true})
	}
	return seq
}

func (d *Driver) transition(r *Report, s State) {
	d.mu.Lock()
	prev := d.state
	if prev == Failed || prev == s {
		d.mu.Unlock()
		return
	}
	d.state = s
	d.mu.Unlock()

	r.Transitions = append(r.Transitions, s)
	if d.log != nil {
		d.log.Debugf("state %s -> %s", prev, s)
	}
	if d.observe != nil {
		d.observe(s)
	}
}

func (d *Driver) fail(r *Report, err error) error {
	d.transition(r, Failed)
	r.Err = err
	d.log.Errorf("run failed: %v", err)
	return err
}

// asTransport wraps err as a TransportError unless it already classifies
// itself as a transport or authentication failure.
func asTransport(op string, err error) error {
	if errors.Is(err, util.ErrTransportFailure) || errors.Is(err, util.ErrAuthenticationFailure) {
		return err
	}
	return util.NewTransportError(op, -1, "", err)
}
