// Package batch partitions address lists into capacity-bounded groups and
// synthesizes the dialect-specific apply and revert command sequences.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/newtron-network/addrbatch/pkg/session"
	"github.com/newtron-network/addrbatch/pkg/util"
)

// Direction selects the apply or revert sequence of a batch.
type Direction string

const (
	Apply  Direction = "apply"
	Revert Direction = "revert"
)

// Runner executes an ordered command sequence against one target.
// *session.Driver implements it.
type Runner interface {
	Run(ctx context.Context, target session.Target, commands []string) (*session.Report, error)
}

// Descriptor owns one address list, its parameters, and the two command
// sequences derived from them once at construction. Only the secret may
// change afterwards.
type Descriptor struct {
	dialect Dialect
	addrs   []string
	params  Params
	apply   []string
	revert  []string
}

// New builds a descriptor, filling unset parameters with defaults and
// synthesizing both sequences.
func New(d Dialect, addrs []string, p Params) (*Descriptor, error) {
	if d != ScreenOS && d != Junos {
		return nil, fmt.Errorf("%w: unknown dialect %q", util.ErrInvalidArgument, d)
	}
	p.ApplyDefaults(d, time.Now())

	own := append([]string(nil), addrs...)
	apply, revert, err := d.Synthesizer().Synthesize(own, &p)
	if err != nil {
		return nil, err
	}
	return &Descriptor{
		dialect: d,
		addrs:   own,
		params:  p,
		apply:   apply,
		revert:  revert,
	}, nil
}

// Dialect returns the device dialect.
func (d *Descriptor) Dialect() Dialect { return d.dialect }

// Params returns a copy of the batch parameters with the secret cleared.
func (d *Descriptor) Params() Params {
	p := d.params
	p.Secret = ""
	return p
}

// Len returns the number of addresses in the batch.
func (d *Descriptor) Len() int { return len(d.addrs) }

// Groups returns the number of address groups the batch spans.
func (d *Descriptor) Groups() int {
	return (len(d.addrs) + d.params.GroupLimit - 1) / d.params.GroupLimit
}

// HasSecret reports whether a secret has been supplied.
func (d *Descriptor) HasSecret() bool { return d.params.Secret != "" }

// SetSecret supplies the login secret.
func (d *Descriptor) SetSecret(secret string) { d.params.Secret = secret }

// Preview returns a copy of the sequence for dir.
func (d *Descriptor) Preview(dir Direction) ([]string, error) {
	seq, err := d.sequence(dir)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), seq...), nil
}

// Target returns the connection target of the batch.
func (d *Descriptor) Target() session.Target {
	return session.Target{
		Host:   d.params.Host,
		Port:   d.params.Port,
		User:   d.params.User,
		Secret: d.params.Secret,
	}
}

// Profile returns the session profile matching the dialect's shell.
func (d *Descriptor) Profile() session.Profile {
	if d.dialect == Junos {
		return session.JunosProfile()
	}
	return session.ScreenOSProfile()
}

// Execute hands the sequence for dir to r, bound to this batch's target.
// No connection is attempted without a host and a secret.
func (d *Descriptor) Execute(ctx context.Context, dir Direction, r Runner) (*session.Report, error) {
	seq, err := d.Preview(dir)
	if err != nil {
		return nil, err
	}
	if d.params.Host == "" {
		return nil, fmt.Errorf("%w: target host is required", util.ErrInvalidArgument)
	}
	if d.params.Secret == "" {
		return nil, fmt.Errorf("%w: no secret supplied for %s@%s", util.ErrMissingCredential, d.params.User, d.params.Host)
	}

	report, err := r.Run(ctx, d.Target(), seq)
	if report != nil {
		report.Direction = string(dir)
	}
	return report, err
}

func (d *Descriptor) sequence(dir Direction) ([]string, error) {
	switch dir {
	case Apply:
		return d.apply, nil
	case Revert:
		return d.revert, nil
	default:
		return nil, fmt.Errorf("%w: unknown direction %q", util.ErrInvalidArgument, dir)
	}
}
