package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/crypto/ssh"

	"github.com/newtron-network/addrbatch/pkg/util"
	"github.com/newtron-network/addrbatch/pkg/version"
)

// SSHDialer opens password-authenticated interactive SSH shells.
type SSHDialer struct {
	// Timeout bounds each TCP dial and the SSH handshake.
	Timeout time.Duration
	// Retries is the number of extra TCP dial attempts. Authentication
	// failures are never retried.
	Retries uint64
	// HostKeyCallback verifies the device key. Nil accepts any key.
	HostKeyCallback ssh.HostKeyCallback

	Term          string
	Width, Height int
}

// NewSSHDialer creates a dialer with a wide PTY so long commands are not
// wrapped by the device.
func NewSSHDialer(timeout time.Duration, retries uint64) *SSHDialer {
	return &SSHDialer{
		Timeout: timeout,
		Retries: retries,
		Term:    "vt100",
		Width:   511,
		Height:  24,
	}
}

// Connect dials TCP with exponential backoff between attempts.
func (d *SSHDialer) Connect(ctx context.Context, target Target) (Conn, error) {
	addr := target.Addr()
	var raw net.Conn
	op := func() error {
		nd := &net.Dialer{Timeout: d.Timeout}
		c, err := nd.DialContext(ctx, "tcp", addr)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		raw = c
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.Retries), ctx)
	notify := func(err error, wait time.Duration) {
		util.WithHost(target.Host).Warnf("dial %s failed, retrying in %s: %v", addr, wait.Round(time.Millisecond), err)
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, util.NewTransportError("connect", -1, "", fmt.Errorf("dial %s: %w", addr, err))
	}
	return &sshConn{raw: raw, addr: addr, dialer: d}, nil
}

type sshConn struct {
	raw    net.Conn
	addr   string
	dialer *SSHDialer
	client *ssh.Client
}

// OpenShell runs the SSH handshake, then requests a PTY and a shell with
// stdout and stderr combined into one stream.
func (c *sshConn) OpenShell(ctx context.Context, target Target) (Shell, error) {
	hostKey := c.dialer.HostKeyCallback
	if hostKey == nil {
		util.WithHost(target.Host).Warnf("SSH to %s: host key verification disabled (InsecureIgnoreHostKey)", c.addr)
		hostKey = ssh.InsecureIgnoreHostKey()
	}
	secret := target.Secret
	config := &ssh.ClientConfig{
		User: target.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(secret),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = secret
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKey,
		ClientVersion:   version.SSHClientVersion(),
		Timeout:         c.dialer.Timeout,
	}

	deadline := time.Now().Add(c.dialer.Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if c.dialer.Timeout > 0 {
		c.raw.SetDeadline(deadline)
	}
	cc, chans, reqs, err := ssh.NewClientConn(c.raw, c.addr, config)
	if err != nil {
		if isAuthError(err) {
			return nil, &util.AuthError{Host: target.Host, User: target.User, Err: err}
		}
		return nil, util.NewTransportError("ssh handshake", -1, "", err)
	}
	c.raw.SetDeadline(time.Time{})
	c.client = ssh.NewClient(cc, chans, reqs)

	sess, err := c.client.NewSession()
	if err != nil {
		return nil, util.NewTransportError("open session", -1, "", err)
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty(c.dialer.Term, c.dialer.Height, c.dialer.Width, modes); err != nil {
		sess.Close()
		return nil, util.NewTransportError("request pty", -1, "", err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, util.NewTransportError("stdin pipe", -1, "", err)
	}
	pr, pw := io.Pipe()
	sess.Stdout = pw
	sess.Stderr = pw
	if err := sess.Shell(); err != nil {
		sess.Close()
		return nil, util.NewTransportError("start shell", -1, "", err)
	}
	go func() {
		pw.CloseWithError(shellEnd(sess.Wait()))
	}()

	return &sshShell{sess: sess, stdin: stdin, stream: newStream(pr)}, nil
}

func (c *sshConn) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return c.raw.Close()
}

type sshShell struct {
	sess  *ssh.Session
	stdin io.WriteCloser
	*stream
}

func (s *sshShell) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

func (s *sshShell) Close() error {
	s.stream.close()
	s.stdin.Close()
	err := s.sess.Close()
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// shellEnd maps a finished shell to io.EOF. Network devices rarely send an
// exit status, so a missing or non-zero one is still a normal end.
func shellEnd(err error) error {
	var exitErr *ssh.ExitError
	var missing *ssh.ExitMissingError
	if err == nil || errors.As(err, &exitErr) || errors.As(err, &missing) {
		return io.EOF
	}
	return err
}

// isAuthError recognises a rejected login. x/crypto/ssh has no typed error
// for it; the client handshake fails with
//
//	ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password], no supported methods remain
//
// so both phrases of that message are matched.
func isAuthError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain")
}
