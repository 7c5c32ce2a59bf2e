// Package source loads ordered address lists: one textual address per line
// from a file or standard input, or one address per element of a Redis list.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source yields an ordered address list.
type Source interface {
	Load(ctx context.Context) ([]string, error)
	// Name describes the source for logs and audit records.
	Name() string
}

// ReadLines returns the non-blank lines of r, trimmed, in order. Lines
// starting with '#' are comments.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading address list: %w", err)
	}
	return out, nil
}

// File reads an address list from a path; "-" is standard input.
type File struct {
	Path  string
	Stdin io.Reader
}

// NewFile creates a file source. "-" or "" reads from os.Stdin.
func NewFile(path string) *File {
	return &File{Path: path, Stdin: os.Stdin}
}

func (f *File) Name() string {
	if f.Path == "" || f.Path == "-" {
		return "stdin"
	}
	return f.Path
}

func (f *File) Load(_ context.Context) ([]string, error) {
	if f.Path == "" || f.Path == "-" {
		return ReadLines(f.Stdin)
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening address list: %w", err)
	}
	defer fh.Close()
	return ReadLines(fh)
}
