package session

import (
	"strings"
	"time"
)

// CommandClass groups commands by how long the remote shell takes to
// produce their output.
type CommandClass int

const (
	ClassNormal CommandClass = iota
	// ClassMode commands enter or leave a configuration mode.
	ClassMode
	// ClassCommit commands commit configuration and trigger long remote work
	// with no intermediate output.
	ClassCommit
)

func (c CommandClass) String() string {
	switch c {
	case ClassMode:
		return "mode"
	case ClassCommit:
		return "commit"
	default:
		return "normal"
	}
}

// TimingPolicy maps commands to the settle delay inserted between writing a
// command and draining its output. Keywords match the whole command or its
// leading words ("commit" matches "commit check").
type TimingPolicy struct {
	Commit time.Duration
	Mode   time.Duration
	Normal time.Duration

	CommitKeywords []string
	ModeKeywords   []string
}

// Classify returns the class of cmd. Commit keywords win over mode keywords.
func (t TimingPolicy) Classify(cmd string) CommandClass {
	cmd = strings.TrimSpace(cmd)
	if matchesKeyword(cmd, t.CommitKeywords) {
		return ClassCommit
	}
	if matchesKeyword(cmd, t.ModeKeywords) {
		return ClassMode
	}
	return ClassNormal
}

// Delay returns the settle delay for cmd.
func (t TimingPolicy) Delay(cmd string) time.Duration {
	switch t.Classify(cmd) {
	case ClassCommit:
		return t.Commit
	case ClassMode:
		return t.Mode
	default:
		return t.Normal
	}
}

func matchesKeyword(cmd string, keywords []string) bool {
	for _, kw := range keywords {
		if cmd == kw || strings.HasPrefix(cmd, kw+" ") {
			return true
		}
	}
	return false
}

// Profile describes how one dialect's interactive shell must be driven.
type Profile struct {
	Name       string
	LineEnding string

	// Prologue and Epilogue bracket every submitted sequence.
	Prologue []string
	Epilogue []string

	Timing TimingPolicy

	// ReadSize is the drain buffer capacity; a read returning fewer bytes
	// ends the drain.
	ReadSize    int
	ReadTimeout time.Duration
	// MaxDrain caps one drain loop so a chatty shell cannot block forever.
	MaxDrain time.Duration

	// ShellSettle is waited once after the shell opens, FinalSettle once
	// before the trailing flush.
	ShellSettle time.Duration
	FinalSettle time.Duration
}

// ScreenOSProfile drives an SSG/NetScreen shell. Commands take effect
// immediately; only "save" writes flash and needs a long settle. Other
// commands get a short pause so a burst of writes cannot overrun the shell's
// input buffer.
func ScreenOSProfile() Profile {
	return Profile{
		Name:       "screenos",
		LineEnding: "\r\n",
		Timing: TimingPolicy{
			Commit:         5 * time.Second,
			Normal:         10 * time.Millisecond,
			CommitKeywords: []string{"save"},
		},
		ReadSize:    1024,
		ReadTimeout: 500 * time.Millisecond,
		MaxDrain:    30 * time.Second,
		ShellSettle: 400 * time.Millisecond,
	}
}

// JunosProfile drives an SRX CLI. The sequence runs inside configuration
// mode, starting from a rolled-back candidate and ending with a checked
// commit.
func JunosProfile() Profile {
	return Profile{
		Name:       "junos",
		LineEnding: "\n",
		Prologue:   []string{"configure", "rollback"},
		Epilogue:   []string{"commit check", "commit", "exit"},
		Timing: TimingPolicy{
			Commit:         5 * time.Second,
			Mode:           1 * time.Second,
			Normal:         50 * time.Millisecond,
			CommitKeywords: []string{"commit"},
			ModeKeywords:   []string{"configure", "rollback", "exit"},
		},
		ReadSize:    1024,
		ReadTimeout: 700 * time.Millisecond,
		MaxDrain:    60 * time.Second,
		FinalSettle: 5 * time.Second,
	}
}
