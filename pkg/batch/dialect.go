package batch

import (
	"fmt"
	"strings"

	"github.com/newtron-network/addrbatch/pkg/util"
)

// Dialect identifies a device family's command syntax.
type Dialect string

const (
	// ScreenOS is the "set/unset" dialect of SSG/NetScreen devices.
	ScreenOS Dialect = "ssg"
	// Junos is the zone address-book dialect of SRX devices.
	Junos Dialect = "srx"
)

// ParseDialect maps a device-type name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ssg", "screenos", "netscreen":
		return ScreenOS, nil
	case "srx", "junos":
		return Junos, nil
	default:
		return "", fmt.Errorf("%w: device type %q not recognized (valid: ssg, srx)", util.ErrInvalidArgument, name)
	}
}

// String returns the short device-type name.
func (d Dialect) String() string {
	return string(d)
}

// DefaultUser is the login used when no user is configured.
func (d Dialect) DefaultUser() string {
	if d == Junos {
		return "root"
	}
	return "netscreen"
}

// Synthesizer generates the apply and revert command sequences for a batch.
type Synthesizer interface {
	Synthesize(addrs []string, p *Params) (apply, revert []string, err error)
}

// Synthesizer returns the command generator for the dialect.
func (d Dialect) Synthesizer() Synthesizer {
	if d == Junos {
		return junosSynth{}
	}
	return screenOSSynth{}
}
