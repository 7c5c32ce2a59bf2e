package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is the transcript record of one command.
type Entry struct {
	Index   int
	Command string
	Output  string
	Class   CommandClass
	// Framing marks prologue/epilogue commands inserted by the driver.
	Framing bool
	// Trouble is the non-fatal drain failure of this command, if any.
	Trouble error
}

// Report is the outcome of one driver run. It is returned on every path,
// including failed ones, so partial application stays visible.
type Report struct {
	ID        string
	Host      string
	Dialect   string
	Direction string

	Entries []Entry
	// Trailer is output that arrived after the last command's drain.
	Trailer string
	// TrailerTrouble is the drain failure of the trailing flush, if any.
	TrailerTrouble error

	State       State
	Transitions []State
	Err         error

	Started  time.Time
	Finished time.Time
}

func newReport(dialect, host string) *Report {
	return &Report{
		ID:      uuid.NewString(),
		Host:    host,
		Dialect: dialect,
		State:   Idle,
		Started: time.Now(),
	}
}

// Submitted returns the entries of caller-supplied commands, in order.
func (r *Report) Submitted() []Entry {
	out := make([]Entry, 0, len(r.Entries))
	for _, e := range r.Entries {
		if !e.Framing {
			out = append(out, e)
		}
	}
	return out
}

// Troubles returns every trouble note in sequence order.
func (r *Report) Troubles() []error {
	var out []error
	for _, e := range r.Entries {
		if e.Trouble != nil {
			out = append(out, e.Trouble)
		}
	}
	if r.TrailerTrouble != nil {
		out = append(out, r.TrailerTrouble)
	}
	return out
}

// Transcript concatenates all device output, trailer included.
func (r *Report) Transcript() string {
	var sb strings.Builder
	for _, e := range r.Entries {
		sb.WriteString(e.Output)
	}
	sb.WriteString(r.Trailer)
	return sb.String()
}

// Succeeded reports a clean run: closed normally with no trouble notes.
func (r *Report) Succeeded() bool {
	return r.State == Closed && r.Err == nil && len(r.Troubles()) == 0
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}
