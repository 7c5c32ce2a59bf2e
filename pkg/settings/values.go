package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/addrbatch/pkg/batch"
)

// Values is one configuration layer. Zero fields are unset and leave the
// value of lower layers in place; GroupLimit is a pointer so an explicit 0
// survives to validation. A YAML batch profile decodes directly into Values.
type Values struct {
	DeviceType  string `yaml:"device_type"`
	Zone        string `yaml:"zone"`
	Netmask     string `yaml:"netmask"`
	Prefix      string `yaml:"prefix"`
	Description string `yaml:"description"`
	GroupLimit  *int   `yaml:"group_limit"`
	User        string `yaml:"user"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
}

// LoadProfile reads a YAML batch profile.
func LoadProfile(path string) (Values, error) {
	var v Values
	data, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("reading profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return v, nil
}

// Merge overlays layers in increasing precedence: each later layer's set
// fields win.
func Merge(layers ...Values) Values {
	var out Values
	for _, l := range layers {
		overlay(&out.DeviceType, l.DeviceType)
		overlay(&out.Zone, l.Zone)
		overlay(&out.Netmask, l.Netmask)
		overlay(&out.Prefix, l.Prefix)
		overlay(&out.Description, l.Description)
		overlay(&out.User, l.User)
		overlay(&out.Host, l.Host)
		if l.GroupLimit != nil {
			limit := *l.GroupLimit
			out.GroupLimit = &limit
		}
		if l.Port != 0 {
			out.Port = l.Port
		}
	}
	return out
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Dialect parses the device type, defaulting to ScreenOS.
func (v Values) Dialect() (batch.Dialect, error) {
	if v.DeviceType == "" {
		return batch.ScreenOS, nil
	}
	return batch.ParseDialect(v.DeviceType)
}

// Params converts the merged layers into batch parameters. Unset fields
// stay zero so batch.New applies its built-in defaults; an unset group
// limit becomes batch.DefaultGroupLimit.
func (v Values) Params() batch.Params {
	limit := batch.DefaultGroupLimit
	if v.GroupLimit != nil {
		limit = *v.GroupLimit
	}
	return batch.Params{
		Zone:        v.Zone,
		Netmask:     v.Netmask,
		Prefix:      v.Prefix,
		Description: v.Description,
		GroupLimit:  limit,
		Host:        v.Host,
		Port:        v.Port,
		User:        v.User,
	}
}

// Limit returns a group limit layer value.
func Limit(n int) *int { return &n }
