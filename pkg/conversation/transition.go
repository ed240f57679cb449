package conversation

import (
	"github.com/danang/antria/pkg/replies"
	"github.com/danang/antria/pkg/session"
)

// LogEffect describes what a transition does to the session log.
type LogEffect int

const (
	// LogNone leaves the log untouched
	LogNone LogEffect = iota
	// LogReset replaces the log with just the outbound text
	LogReset
	// LogAppend appends the outbound text to the log
	LogAppend
	// LogClear archives and clears the log
	LogClear
)

// Decision is the outcome of applying one inbound text to a state.
// Outbound is empty when the transition is silent; every transition
// that replies also records the outbound text in the session log. Next
// is always a valid state, so the machine is total over its input
// space.
type Decision struct {
	Next     session.State
	Outbound string
	Effect   LogEffect
}

// Transition maps the current state and inbound text to a Decision.
// Control tokens and the menu choice are matched exactly.
func Transition(current session.State, text string, set replies.Set) Decision {
	switch current {
	case session.StateMenu:
		if text == replies.MenuChoiceQueue {
			return Decision{Next: session.StateQueued, Outbound: set.Queue, Effect: LogAppend}
		}
		return Decision{Next: session.StateMenu, Outbound: set.Fallback, Effect: LogAppend}

	case session.StateQueued:
		if text == replies.TokenSelected {
			return Decision{Next: session.StateActive, Outbound: set.Attending, Effect: LogAppend}
		}
		// Waiting senders get no response until an operator selects them
		return Decision{Next: session.StateQueued}

	case session.StateActive:
		if text == replies.TokenDone {
			return Decision{Next: session.StateIdle, Outbound: set.End, Effect: LogClear}
		}
		// The echo doubles as the log entry
		return Decision{Next: session.StateActive, Outbound: text, Effect: LogAppend}

	default:
		// StateIdle, plus any corrupt value, restarts the flow at the
		// menu and begins a fresh log
		return Decision{Next: session.StateMenu, Outbound: set.Menu, Effect: LogReset}
	}
}
