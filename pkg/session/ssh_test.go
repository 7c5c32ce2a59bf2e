package session

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/newtron-network/addrbatch/pkg/util"
)

// startEchoServer runs an SSH server that accepts one password and answers
// every shell line with the line and a prompt.
func startEchoServer(t *testing.T, user, password string) Target {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pw []byte) (*ssh.Permissions, error) {
			if c.User() == user && string(pw) == password {
				return nil, nil
			}
			return nil, errors.New("denied")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			go serveEcho(nc, cfg)
		}
	}()

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return Target{Host: host, Port: p, User: user, Secret: password}
}

func serveEcho(nc net.Conn, cfg *ssh.ServerConfig) {
	conn, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		nc.Close()
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(reqs)

	for nch := range chans {
		if nch.ChannelType() != "session" {
			nch.Reject(ssh.UnknownChannelType, "session only")
			continue
		}
		ch, creqs, err := nch.Accept()
		if err != nil {
			return
		}
		go func() {
			for req := range creqs {
				req.Reply(req.Type == "pty-req" || req.Type == "shell", nil)
			}
		}()
		go func() {
			defer ch.Close()
			fmt.Fprint(ch, "fw> ")
			sc := bufio.NewScanner(ch)
			for sc.Scan() {
				line := strings.TrimRight(sc.Text(), "\r")
				if line == "exit" {
					ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{0}))
					return
				}
				fmt.Fprintf(ch, "%s\r\nfw> ", line)
			}
		}()
	}
}

func contextFor(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func testProfile() Profile {
	p := ScreenOSProfile()
	p.ShellSettle = 50 * time.Millisecond
	p.ReadTimeout = 300 * time.Millisecond
	p.FinalSettle = 50 * time.Millisecond
	return p
}

func TestSSHDialerRun(t *testing.T) {
	target := startEchoServer(t, "netscreen", "s3cret")

	d := NewDriver(testProfile(), NewSSHDialer(5*time.Second, 0))
	report, err := d.Run(contextFor(t), target, []string{"set address one", "set address two"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(report.Entries))
	}
	transcript := report.Transcript()
	for _, want := range []string{"set address one", "set address two"} {
		if !strings.Contains(transcript, want) {
			t.Errorf("Transcript() = %q, missing %q", transcript, want)
		}
	}
	if report.State != Closed {
		t.Errorf("State = %s, want closed", report.State)
	}
}

func TestSSHDialerRemoteExit(t *testing.T) {
	target := startEchoServer(t, "netscreen", "s3cret")

	d := NewDriver(testProfile(), NewSSHDialer(5*time.Second, 0))
	report, err := d.Run(contextFor(t), target, []string{"set address one", "exit"})
	if err != nil {
		t.Fatalf("Run() error = %v, remote exit after the last command is normal", err)
	}
	if len(report.Entries) != 2 {
		t.Errorf("len(Entries) = %d, want 2", len(report.Entries))
	}
}

func TestSSHDialerAuthFailure(t *testing.T) {
	target := startEchoServer(t, "netscreen", "s3cret")
	target.Secret = "wrong"

	d := NewDriver(testProfile(), NewSSHDialer(5*time.Second, 0))
	report, err := d.Run(contextFor(t), target, []string{"set a"})
	if !errors.Is(err, util.ErrAuthenticationFailure) {
		t.Fatalf("Run() error = %v, want ErrAuthenticationFailure", err)
	}
	var ae *util.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("Run() error = %T %v, want *util.AuthError", err, err)
	}
	if ae.User != "netscreen" || ae.Host != target.Host {
		t.Errorf("AuthError = %s@%s, want netscreen@%s", ae.User, ae.Host, target.Host)
	}
	if ae.Err == nil || !isAuthError(ae.Err) {
		t.Errorf("AuthError.Err = %v, want the x/crypto authentication failure", ae.Err)
	}
	if len(report.Entries) != 0 || report.State != Failed {
		t.Errorf("Entries = %d, State = %s; want 0, failed", len(report.Entries), report.State)
	}
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password], no supported methods remain"), true},
		{errors.New("ssh: unable to authenticate, attempted methods [none], no supported methods remain"), true},
		{errors.New("ssh: handshake failed: EOF"), false},
		{errors.New("ssh: handshake failed: read tcp 127.0.0.1:22: connection reset by peer"), false},
	}
	for _, tt := range tests {
		if got := isAuthError(tt.err); got != tt.want {
			t.Errorf("isAuthError(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestSSHDialerConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	dialer := NewSSHDialer(time.Second, 1)
	_, err = dialer.Connect(contextFor(t), Target{Host: "127.0.0.1", Port: addr.Port})
	if !errors.Is(err, util.ErrTransportFailure) {
		t.Errorf("Connect() error = %v, want ErrTransportFailure", err)
	}
}

func TestShellEnd(t *testing.T) {
	if err := shellEnd(nil); err == nil || err.Error() != "EOF" {
		t.Errorf("shellEnd(nil) = %v, want EOF", err)
	}
	other := errors.New("reset")
	if err := shellEnd(other); err != other {
		t.Errorf("shellEnd(reset) = %v, want reset", err)
	}
}
