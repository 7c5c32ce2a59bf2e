package batch

import (
	"strings"
	"time"

	"github.com/newtron-network/addrbatch/pkg/util"
)

// Built-in parameter defaults.
const (
	DefaultZone       = "V1-Untrust"
	DefaultNetmask    = "255.255.255.255"
	DefaultPrefix     = "Deny_addr"
	DefaultGroupLimit = 256
	DefaultPort       = 22
)

// Params holds the naming, zone and connection parameters of one batch.
// Secret is filled in lazily, only when an execution is confirmed.
type Params struct {
	Zone        string `yaml:"zone" json:"zone"`
	Netmask     string `yaml:"netmask" json:"netmask"`
	Prefix      string `yaml:"prefix" json:"prefix"`
	Description string `yaml:"description" json:"description"`
	GroupLimit  int    `yaml:"group_limit" json:"group_limit"`

	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	User   string `yaml:"user" json:"user"`
	Secret string `yaml:"-" json:"-"`
}

// ApplyDefaults fills every unset field except GroupLimit, which callers must
// set explicitly; zero is rejected by Validate. The description defaults to
// the ISO date of now.
func (p *Params) ApplyDefaults(d Dialect, now time.Time) {
	if p.Zone == "" {
		p.Zone = DefaultZone
	}
	if p.Netmask == "" {
		p.Netmask = DefaultNetmask
	}
	if p.Prefix == "" {
		p.Prefix = DefaultPrefix
	}
	if p.Description == "" {
		p.Description = now.Format("2006-01-02")
	}
	if p.Port == 0 {
		p.Port = DefaultPort
	}
	if p.User == "" {
		p.User = d.DefaultUser()
	}
}

// Validate checks fields shared by both dialects.
func (p *Params) Validate() error {
	v := &util.ValidationBuilder{}
	v.Add(p.GroupLimit >= 1, "group limit must be at least 1")
	v.Add(p.Zone != "", "zone is required")
	v.Add(p.Prefix != "", "group-name prefix is required")
	v.Add(p.Description != "", "description is required")
	v.Add(p.Port >= 0 && p.Port <= 65535, "port must be 0-65535")
	for name, val := range map[string]string{"zone": p.Zone, "prefix": p.Prefix, "description": p.Description} {
		if strings.Contains(val, `"`) {
			v.AddErrorf("%s %q must not contain double quotes", name, val)
		}
	}
	if _, err := util.MaskLength(p.Netmask); err != nil {
		v.AddErrorf("netmask %q is not a valid IPv4 mask", p.Netmask)
	}
	return v.Build()
}
