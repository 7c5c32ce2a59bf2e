// Package audit records executed batch phases as a JSON-lines trail.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/newtron-network/addrbatch/pkg/session"
)

// Event is one executed apply or revert phase against one device.
type Event struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Host      string    `json:"host"`
	Dialect   string    `json:"dialect"`
	Direction string    `json:"direction"`
	Source    string    `json:"source,omitempty"`
	Addresses int       `json:"addresses"`
	Groups    int       `json:"groups"`
	Commands  int       `json:"commands"`
	Troubles  []string  `json:"troubles,omitempty"`
	State     string    `json:"state,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Duration  Duration  `json:"duration"`
}

// Duration marshals as a Go duration string ("1.5s").
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Filter defines criteria for querying audit events
type Filter struct {
	Host        string
	User        string
	Direction   string
	Dialect     string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool

	// Newest orders results newest first before Offset and Limit apply.
	Newest bool
	Limit  int
	Offset int
}

// NewEvent creates a new audit event
func NewEvent(user, host, direction string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		User:      user,
		Host:      host,
		Direction: direction,
	}
}

// WithBatch records the batch shape
func (e *Event) WithBatch(dialect, source string, addresses, groups int) *Event {
	e.Dialect = dialect
	e.Source = source
	e.Addresses = addresses
	e.Groups = groups
	return e
}

// WithReport copies the outcome of a driver run. A nil report leaves the
// event as a failure with no commands.
func (e *Event) WithReport(r *session.Report) *Event {
	if r == nil {
		return e
	}
	e.RunID = r.ID
	e.Commands = len(r.Submitted())
	e.State = r.State.String()
	e.Duration = Duration(r.Duration())
	for _, t := range r.Troubles() {
		e.Troubles = append(e.Troubles, t.Error())
	}
	e.Success = r.Succeeded()
	if r.Err != nil {
		e.Error = r.Err.Error()
	}
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	if err != nil {
		e.Success = false
		e.Error = err.Error()
	}
	return e
}
