package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// Terminal asks the operator yes/no questions and reads a secret without
// echo. When stdin carries the address list, the controlling terminal is
// used instead.
type Terminal struct {
	In  *os.File
	Out io.Writer

	tty bool // In was opened from /dev/tty and must be closed
}

// NewTerminal binds prompts to stdin, or to /dev/tty when stdin is not a
// terminal.
func NewTerminal() (*Terminal, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return &Terminal{In: os.Stdin, Out: os.Stderr}, nil
	}
	tty, err := os.Open("/dev/tty")
	if err != nil {
		return nil, fmt.Errorf("no terminal available for prompts: %w", err)
	}
	return &Terminal{In: tty, Out: os.Stderr, tty: true}, nil
}

// Confirm asks question and returns true only for an explicit yes. The
// default answer is no.
func (t *Terminal) Confirm(question string) (bool, error) {
	p := promptui.Prompt{
		Label:     question,
		IsConfirm: true,
		Stdin:     io.NopCloser(t.In),
		Stdout:    nopWriteCloser{t.Out},
	}
	_, err := p.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	case errors.Is(err, promptui.ErrInterrupt), errors.Is(err, promptui.ErrEOF):
		return false, nil
	default:
		return false, err
	}
}

// Secret reads a line without echo.
func (t *Terminal) Secret(prompt string) (string, error) {
	fmt.Fprintf(t.Out, "%s: ", prompt)
	b, err := term.ReadPassword(int(t.In.Fd()))
	fmt.Fprintln(t.Out)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return string(b), nil
}

// Close releases the controlling terminal if it was opened.
func (t *Terminal) Close() error {
	if t.tty {
		return t.In.Close()
	}
	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
