package session

// State is the lifecycle position of one driver run.
type State int

const (
	Idle State = iota
	Connecting
	Authenticating
	Ready
	Streaming
	Draining
	Closing
	Closed
	// Failed is absorbing: no transition leaves it.
	Failed
)

var stateNames = [...]string{
	Idle:           "idle",
	Connecting:     "connecting",
	Authenticating: "authenticating",
	Ready:          "ready",
	Streaming:      "streaming",
	Draining:       "draining",
	Closing:        "closing",
	Closed:         "closed",
	Failed:         "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Closed || s == Failed
}
