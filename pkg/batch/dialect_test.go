package batch

import (
	"errors"
	"testing"
	"time"

	"github.com/newtron-network/addrbatch/pkg/util"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{"ssg", ScreenOS, false},
		{"SSG", ScreenOS, false},
		{"screenos", ScreenOS, false},
		{" netscreen ", ScreenOS, false},
		{"srx", Junos, false},
		{"junos", Junos, false},
		{"asa", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDialect(tt.in)
			if tt.wantErr {
				if !errors.Is(err, util.ErrInvalidArgument) {
					t.Errorf("ParseDialect(%q) error = %v, want ErrInvalidArgument", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseDialect(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestDefaultUser(t *testing.T) {
	if ScreenOS.DefaultUser() != "netscreen" {
		t.Errorf("ScreenOS.DefaultUser() = %q", ScreenOS.DefaultUser())
	}
	if Junos.DefaultUser() != "root" {
		t.Errorf("Junos.DefaultUser() = %q", Junos.DefaultUser())
	}
}

func TestApplyDefaultsKeepsSetFields(t *testing.T) {
	p := Params{Zone: "trust", GroupLimit: 8, User: "admin", Description: "block-list"}
	p.ApplyDefaults(ScreenOS, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	if p.Zone != "trust" || p.GroupLimit != 8 || p.User != "admin" || p.Description != "block-list" {
		t.Errorf("ApplyDefaults() overwrote set fields: %+v", p)
	}
	if p.Prefix != DefaultPrefix || p.Netmask != DefaultNetmask || p.Port != DefaultPort {
		t.Errorf("ApplyDefaults() = %+v, want defaults for unset fields", p)
	}

	q := Params{}
	q.ApplyDefaults(ScreenOS, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	if q.Description != "2024-01-01" || q.User != "netscreen" || q.GroupLimit != 0 {
		t.Errorf("ApplyDefaults() = %+v", q)
	}
}

func TestValidate(t *testing.T) {
	base := func() Params {
		p := Params{GroupLimit: DefaultGroupLimit}
		p.ApplyDefaults(ScreenOS, time.Now())
		return p
	}
	if err := (&Params{}).Validate(); err == nil {
		t.Error("Validate() on empty params should fail")
	}
	p := base()
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
	p.GroupLimit = 0
	if err := p.Validate(); !errors.Is(err, util.ErrInvalidArgument) {
		t.Errorf("Validate() group limit 0 = %v, want ErrInvalidArgument", err)
	}
	p = base()
	p.Port = 70000
	if err := p.Validate(); !errors.Is(err, util.ErrInvalidArgument) {
		t.Errorf("Validate() port 70000 = %v, want ErrInvalidArgument", err)
	}
	p = base()
	p.Prefix = `a"b`
	if err := p.Validate(); !errors.Is(err, util.ErrInvalidArgument) {
		t.Errorf("Validate() quoted prefix = %v, want ErrInvalidArgument", err)
	}
}
