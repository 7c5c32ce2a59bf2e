// Package orchestrator runs a batch in two independently confirmed phases:
// preview and apply, then preview and revert. The secret is requested only
// once a phase has been confirmed, and reused for the other phase.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/newtron-network/addrbatch/pkg/audit"
	"github.com/newtron-network/addrbatch/pkg/batch"
	"github.com/newtron-network/addrbatch/pkg/cli"
	"github.com/newtron-network/addrbatch/pkg/session"
	"github.com/newtron-network/addrbatch/pkg/util"
)

// Prompter asks the operator for confirmation and the login secret.
type Prompter interface {
	Confirm(question string) (bool, error)
	Secret(prompt string) (string, error)
}

// RunnerFactory creates a fresh single-use runner for one phase.
type RunnerFactory func(profile session.Profile) batch.Runner

// Orchestrator sequences the two phases of one batch.
type Orchestrator struct {
	Out       io.Writer
	Prompt    Prompter
	NewRunner RunnerFactory

	// Audit, when set, receives one event per executed phase.
	Audit audit.Logger
	// Source names the address list origin in audit events.
	Source string
}

// Phase is the outcome of one direction.
type Phase struct {
	Direction batch.Direction
	Confirmed bool
	Report    *session.Report
	Err       error
}

// Result collects both phases of a run.
type Result struct {
	Apply  Phase
	Revert Phase
}

// Heading returns the preview title for dir.
func Heading(dir batch.Direction) string {
	if dir == batch.Revert {
		return "REMOVE SETTINGS COMMANDS"
	}
	return "ADD SETTINGS COMMANDS"
}

func question(dir batch.Direction, host string) string {
	verb := "set"
	if dir == batch.Revert {
		verb = "unset"
	}
	return fmt.Sprintf("Run these %s commands on %s ?", verb, host)
}

// Preview prints the headed command sequence for dir.
func (o *Orchestrator) Preview(d *batch.Descriptor, dir batch.Direction) error {
	cmds, err := d.Preview(dir)
	if err != nil {
		return err
	}
	fmt.Fprintln(o.Out, cli.Heading(Heading(dir)))
	if len(cmds) == 0 {
		fmt.Fprintln(o.Out, cli.Dim("(no commands)"))
	}
	for _, c := range cmds {
		fmt.Fprintln(o.Out, c)
	}
	fmt.Fprintln(o.Out)
	return nil
}

// DryRun prints both sequences without prompting or connecting.
func (o *Orchestrator) DryRun(d *batch.Descriptor) error {
	o.summary(d)
	for _, dir := range []batch.Direction{batch.Apply, batch.Revert} {
		if err := o.Preview(d, dir); err != nil {
			return err
		}
	}
	fmt.Fprintln(o.Out, cli.Yellow("Dry run: no commands sent. Re-run with -x to execute."))
	return nil
}

// Run offers the apply phase, then the revert phase. A rejected login or a
// missing secret ends the run; a transport failure during apply is reported
// and the revert phase is still offered. The first error is returned.
func (o *Orchestrator) Run(ctx context.Context, d *batch.Descriptor) (*Result, error) {
	o.summary(d)
	res := &Result{
		Apply:  o.phase(ctx, d, batch.Apply),
		Revert: Phase{Direction: batch.Revert},
	}
	if err := res.Apply.Err; err != nil && abortsRun(err) {
		return res, err
	}

	res.Revert = o.phase(ctx, d, batch.Revert)
	if res.Apply.Err != nil {
		return res, res.Apply.Err
	}
	return res, res.Revert.Err
}

func abortsRun(err error) bool {
	return errors.Is(err, util.ErrAuthenticationFailure) ||
		errors.Is(err, util.ErrMissingCredential) ||
		errors.Is(err, util.ErrInvalidArgument)
}

func (o *Orchestrator) phase(ctx context.Context, d *batch.Descriptor, dir batch.Direction) Phase {
	ph := Phase{Direction: dir}
	if ph.Err = o.Preview(d, dir); ph.Err != nil {
		return ph
	}
	if d.Len() == 0 {
		fmt.Fprintln(o.Out, cli.Dim("Empty address list, nothing to "+string(dir)+"."))
		return ph
	}

	p := d.Params()
	ok, err := o.Prompt.Confirm(question(dir, p.Host))
	if err != nil {
		ph.Err = fmt.Errorf("confirmation: %w", err)
		return ph
	}
	if !ok {
		fmt.Fprintln(o.Out, cli.Dim("Skipped "+string(dir)+"."))
		fmt.Fprintln(o.Out)
		return ph
	}
	ph.Confirmed = true

	if !d.HasSecret() {
		secret, err := o.Prompt.Secret(fmt.Sprintf("Password for %s@%s", p.User, p.Host))
		if err != nil {
			ph.Err = fmt.Errorf("%w: %v", util.ErrMissingCredential, err)
			return ph
		}
		d.SetSecret(secret)
	}

	ph.Report, ph.Err = d.Execute(ctx, dir, o.NewRunner(d.Profile()))
	o.print(ph)
	o.record(d, ph)
	return ph
}

func (o *Orchestrator) summary(d *batch.Descriptor) {
	p := d.Params()
	fmt.Fprintf(o.Out, "%s %s, %d address%s in %d group%s, zone %s, target %s@%s\n\n",
		cli.Bold("Batch:"), d.Dialect(), d.Len(), esPlural(d.Len()), d.Groups(), util.Plural(d.Groups()),
		p.Zone, p.User, hostOrNone(p.Host))
}

func (o *Orchestrator) print(ph Phase) {
	if r := ph.Report; r != nil {
		if t := r.Transcript(); t != "" {
			fmt.Fprint(o.Out, t)
			if !strings.HasSuffix(t, "\n") {
				fmt.Fprintln(o.Out)
			}
		}
		for _, trouble := range r.Troubles() {
			fmt.Fprintln(o.Out, cli.Yellow(trouble.Error()))
		}
	}

	status := cli.Green("done")
	switch {
	case ph.Err != nil:
		status = cli.Red("FAILED: " + ph.Err.Error())
	case ph.Report != nil && len(ph.Report.Troubles()) > 0:
		n := len(ph.Report.Troubles())
		status = cli.Yellow(fmt.Sprintf("done with %d trouble note%s", n, util.Plural(n)))
	}
	fmt.Fprintf(o.Out, "%s %s\n\n", cli.DotPad(string(ph.Direction), 12), status)
}

func (o *Orchestrator) record(d *batch.Descriptor, ph Phase) {
	if o.Audit == nil {
		return
	}
	p := d.Params()
	event := audit.NewEvent(p.User, p.Host, string(ph.Direction)).
		WithBatch(d.Profile().Name, o.Source, d.Len(), d.Groups()).
		WithReport(ph.Report).
		WithError(ph.Err)
	if err := o.Audit.Log(event); err != nil {
		util.Warnf("audit: %v", err)
	}
}

func hostOrNone(h string) string {
	if h == "" {
		return "(no host)"
	}
	return h
}

func esPlural(n int) string {
	if n == 1 {
		return ""
	}
	return "es"
}
