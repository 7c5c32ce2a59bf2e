package batch_test

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/newtron-network/addrbatch/internal/testutil"
	"github.com/newtron-network/addrbatch/pkg/batch"
	"github.com/newtron-network/addrbatch/pkg/session"
	"github.com/newtron-network/addrbatch/pkg/util"
)

// recordingRunner captures what Execute hands to the session layer.
type recordingRunner struct {
	calls    int
	target   session.Target
	commands []string
	err      error
}

func (r *recordingRunner) Run(_ context.Context, target session.Target, commands []string) (*session.Report, error) {
	r.calls++
	r.target = target
	r.commands = commands
	return &session.Report{State: session.Closed}, r.err
}

func addrs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "192.0.2." + strconv.Itoa(i+1)
	}
	return out
}

func TestRoundTripAgainstModel(t *testing.T) {
	for _, d := range []batch.Dialect{batch.ScreenOS, batch.Junos} {
		for _, tc := range []struct{ n, g int }{{0, 3}, {1, 3}, {3, 3}, {4, 3}, {10, 3}, {7, 1}} {
			desc, err := batch.New(d, addrs(tc.n), batch.Params{GroupLimit: tc.g, Description: "2024-01-01"})
			if err != nil {
				t.Fatalf("%s n=%d g=%d: New() error = %v", d, tc.n, tc.g, err)
			}
			apply, _ := desc.Preview(batch.Apply)
			revert, _ := desc.Preview(batch.Revert)

			m := testutil.NewModelDevice()
			if err := m.ExecAll(apply); err != nil {
				t.Fatalf("%s n=%d g=%d: apply rejected: %v", d, tc.n, tc.g, err)
			}
			if got := len(m.GroupNames(batch.DefaultZone)); got != desc.Groups() {
				t.Errorf("%s n=%d g=%d: %d groups on device, want %d", d, tc.n, tc.g, got, desc.Groups())
			}
			if err := m.ExecAll(revert); err != nil {
				t.Fatalf("%s n=%d g=%d: revert rejected: %v", d, tc.n, tc.g, err)
			}
			if !m.Empty() {
				t.Errorf("%s n=%d g=%d: model not empty after revert: %+v", d, tc.n, tc.g, m)
			}
		}
	}
}

func TestScenarioMembership(t *testing.T) {
	desc, err := batch.New(batch.ScreenOS, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"},
		batch.Params{GroupLimit: 2, Description: "2024-01-01"})
	testutil.AssertNoError(t, err, "New")

	m := testutil.NewModelDevice()
	apply, _ := desc.Preview(batch.Apply)
	testutil.AssertNoError(t, m.ExecAll(apply), "apply")

	if got := m.Members("V1-Untrust", "Deny_addr_2024-01-01_1"); !reflect.DeepEqual(got, []string{"10.0.0.1", "10.0.0.2"}) {
		t.Errorf("group 1 = %v", got)
	}
	if got := m.Members("V1-Untrust", "Deny_addr_2024-01-01_2"); !reflect.DeepEqual(got, []string{"10.0.0.3"}) {
		t.Errorf("group 2 = %v", got)
	}
}

func TestNewDefaults(t *testing.T) {
	desc, err := batch.New(batch.Junos, addrs(2), batch.Params{GroupLimit: batch.DefaultGroupLimit})
	testutil.AssertNoError(t, err, "New")

	p := desc.Params()
	if p.Zone != batch.DefaultZone || p.Netmask != batch.DefaultNetmask || p.Prefix != batch.DefaultPrefix {
		t.Errorf("Params() = %+v, want defaults", p)
	}
	if p.GroupLimit != batch.DefaultGroupLimit || p.Port != batch.DefaultPort || p.User != "root" {
		t.Errorf("Params() = %+v, want defaults", p)
	}
	if p.Description != time.Now().Format("2006-01-02") {
		t.Errorf("Description = %q, want today's date", p.Description)
	}
}

func TestNewInvalid(t *testing.T) {
	tests := []struct {
		name    string
		dialect batch.Dialect
		params  batch.Params
	}{
		{"unknown dialect", batch.Dialect("asa"), batch.Params{GroupLimit: 4}},
		{"zero limit", batch.ScreenOS, batch.Params{GroupLimit: 0}},
		{"zero limit junos", batch.Junos, batch.Params{}},
		{"negative limit", batch.ScreenOS, batch.Params{GroupLimit: -1}},
		{"bad netmask", batch.ScreenOS, batch.Params{Netmask: "255.0.255.0", GroupLimit: 4}},
		{"quoted zone", batch.ScreenOS, batch.Params{Zone: `bad"zone`, GroupLimit: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := batch.New(tt.dialect, addrs(2), tt.params); !errors.Is(err, util.ErrInvalidArgument) {
				t.Errorf("New() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestNewCopiesInput(t *testing.T) {
	in := []string{"10.0.0.1", "10.0.0.2"}
	desc, err := batch.New(batch.ScreenOS, in, batch.Params{Description: "x", GroupLimit: 4})
	testutil.AssertNoError(t, err, "New")

	in[0] = "10.9.9.9"
	apply, _ := desc.Preview(batch.Apply)
	if apply[0] != `set address "V1-Untrust" "10.0.0.1" 10.0.0.1 255.255.255.255 "x"` {
		t.Errorf("caller mutation leaked into descriptor: %q", apply[0])
	}
}

func TestPreviewReturnsCopy(t *testing.T) {
	desc, err := batch.New(batch.ScreenOS, addrs(3), batch.Params{GroupLimit: 2})
	testutil.AssertNoError(t, err, "New")

	first, _ := desc.Preview(batch.Revert)
	want := append([]string(nil), first...)
	first[0] = "tampered"

	again, _ := desc.Preview(batch.Revert)
	if !reflect.DeepEqual(again, want) {
		t.Error("Preview() must not expose the stored sequence")
	}

	if _, err := desc.Preview(batch.Direction("sideways")); !errors.Is(err, util.ErrInvalidArgument) {
		t.Errorf("Preview(unknown) error = %v, want ErrInvalidArgument", err)
	}
}

func TestExecuteMissingCredential(t *testing.T) {
	desc, err := batch.New(batch.ScreenOS, addrs(1), batch.Params{Host: "fw1", GroupLimit: 4})
	testutil.AssertNoError(t, err, "New")

	r := &recordingRunner{}
	if _, err := desc.Execute(context.Background(), batch.Apply, r); !errors.Is(err, util.ErrMissingCredential) {
		t.Errorf("Execute() error = %v, want ErrMissingCredential", err)
	}
	if r.calls != 0 {
		t.Error("runner must not be invoked without a secret")
	}
}

func TestExecuteMissingHost(t *testing.T) {
	desc, err := batch.New(batch.ScreenOS, addrs(1), batch.Params{GroupLimit: 4})
	testutil.AssertNoError(t, err, "New")
	desc.SetSecret("pw")

	r := &recordingRunner{}
	if _, err := desc.Execute(context.Background(), batch.Apply, r); !errors.Is(err, util.ErrInvalidArgument) {
		t.Errorf("Execute() error = %v, want ErrInvalidArgument", err)
	}
	if r.calls != 0 {
		t.Error("runner must not be invoked without a host")
	}
}

func TestExecuteHandsOffSequence(t *testing.T) {
	desc, err := batch.New(batch.ScreenOS, addrs(3), batch.Params{Host: "fw1", Port: 2222, GroupLimit: 2})
	testutil.AssertNoError(t, err, "New")
	desc.SetSecret("pw")
	if !desc.HasSecret() || desc.Params().Secret != "" {
		t.Error("secret should be held but not exposed through Params()")
	}

	r := &recordingRunner{}
	report, err := desc.Execute(context.Background(), batch.Revert, r)
	testutil.AssertNoError(t, err, "Execute")

	want, _ := desc.Preview(batch.Revert)
	if !reflect.DeepEqual(r.commands, want) {
		t.Errorf("runner got %v, want revert sequence", r.commands)
	}
	wantTarget := session.Target{Host: "fw1", Port: 2222, User: "netscreen", Secret: "pw"}
	if r.target != wantTarget {
		t.Errorf("target = %+v, want %+v", r.target, wantTarget)
	}
	if report.Direction != "revert" {
		t.Errorf("Direction = %q, want revert", report.Direction)
	}

	r.commands[0] = "tampered"
	if again, _ := desc.Preview(batch.Revert); again[0] == "tampered" {
		t.Error("Execute must not hand out the stored sequence")
	}
}

func TestExecuteWithDriver(t *testing.T) {
	desc, err := batch.New(batch.Junos, []string{"10.0.0.1", "10.0.0.2"}, batch.Params{Host: "srx1", Description: "2024-01-01", GroupLimit: 4})
	testutil.AssertNoError(t, err, "New")
	desc.SetSecret("pw")

	model := testutil.NewModelDevice()
	shell := &testutil.FakeShell{Respond: model.Respond}
	dialer := &testutil.FakeDialer{Shell: shell}
	driver := session.NewDriver(desc.Profile(), dialer, session.WithSleep(testutil.NoSleep))

	report, err := desc.Execute(testutil.Context(t), batch.Apply, driver)
	testutil.AssertNoError(t, err, "Execute")
	if len(report.Submitted()) != 4 {
		t.Errorf("Submitted() = %d entries, want 4", len(report.Submitted()))
	}
	if got := model.Members("V1-Untrust", "Deny_addr_2024-01-01"); !reflect.DeepEqual(got, []string{"10.0.0.1", "10.0.0.2"}) {
		t.Errorf("address-set members = %v", got)
	}
	if dialer.Targets()[0].User != "root" {
		t.Errorf("user = %q, want root", dialer.Targets()[0].User)
	}
}
