package session

import (
	"testing"
	"time"
)

func TestTimingPolicyClassify(t *testing.T) {
	junos := JunosProfile().Timing
	screenos := ScreenOSProfile().Timing

	tests := []struct {
		policy TimingPolicy
		cmd    string
		want   CommandClass
		delay  time.Duration
	}{
		{junos, "commit", ClassCommit, 5 * time.Second},
		{junos, "commit check", ClassCommit, 5 * time.Second},
		{junos, "configure", ClassMode, time.Second},
		{junos, "rollback", ClassMode, time.Second},
		{junos, "exit", ClassMode, time.Second},
		{junos, "set security zones security-zone untrust address-book address 10.0.0.1 10.0.0.1/32", ClassNormal, 50 * time.Millisecond},
		{junos, "committed", ClassNormal, 50 * time.Millisecond},
		{screenos, "save", ClassCommit, 5 * time.Second},
		{screenos, `set address "V1-Untrust" "10.0.0.1" 10.0.0.1 255.255.255.255 "x"`, ClassNormal, 10 * time.Millisecond},
		{screenos, "exit", ClassNormal, 10 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			if got := tt.policy.Classify(tt.cmd); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.cmd, got, tt.want)
			}
			if got := tt.policy.Delay(tt.cmd); got != tt.delay {
				t.Errorf("Delay(%q) = %s, want %s", tt.cmd, got, tt.delay)
			}
		})
	}
}

func TestProfiles(t *testing.T) {
	j := JunosProfile()
	if len(j.Prologue) != 2 || j.Prologue[0] != "configure" || j.Prologue[1] != "rollback" {
		t.Errorf("junos Prologue = %v", j.Prologue)
	}
	if len(j.Epilogue) != 3 || j.Epilogue[0] != "commit check" || j.Epilogue[1] != "commit" || j.Epilogue[2] != "exit" {
		t.Errorf("junos Epilogue = %v", j.Epilogue)
	}
	if j.LineEnding != "\n" {
		t.Errorf("junos LineEnding = %q", j.LineEnding)
	}

	s := ScreenOSProfile()
	if len(s.Prologue) != 0 || len(s.Epilogue) != 0 {
		t.Errorf("screenos should not bracket commands: %v %v", s.Prologue, s.Epilogue)
	}
	if s.LineEnding != "\r\n" {
		t.Errorf("screenos LineEnding = %q", s.LineEnding)
	}
}

func TestProfilesPaceNormalCommands(t *testing.T) {
	for _, p := range []Profile{ScreenOSProfile(), JunosProfile()} {
		if p.Timing.Normal <= 0 {
			t.Errorf("%s: Timing.Normal = %s, want a positive delay", p.Name, p.Timing.Normal)
		}
		if p.Timing.Normal >= p.Timing.Commit {
			t.Errorf("%s: Timing.Normal = %s, should be shorter than Commit %s", p.Name, p.Timing.Normal, p.Timing.Commit)
		}
	}
}

func TestStateString(t *testing.T) {
	if Draining.String() != "draining" {
		t.Errorf("Draining.String() = %q", Draining.String())
	}
	if State(99).String() != "unknown" {
		t.Errorf("State(99).String() = %q", State(99).String())
	}
	for _, s := range []State{Closed, Failed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if Ready.Terminal() {
		t.Error("ready should not be terminal")
	}
}
