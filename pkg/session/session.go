package session

import "fmt"

// State identifies where a sender is in the triage flow.
type State int

const (
	// StateIdle means no interaction is in progress. Every new session
	// starts here, and a closed-out session returns here.
	StateIdle State = iota
	// StateMenu means the menu was sent and we are waiting for a choice.
	StateMenu
	// StateQueued means the sender chose to join the queue and is waiting
	// for an operator to pick them up.
	StateQueued
	// StateActive means an operator is attending the sender.
	StateActive
)

var stateNames = map[State]string{
	StateIdle:   "idle",
	StateMenu:   "menu",
	StateQueued: "queued",
	StateActive: "active",
}

// String returns the lowercase name of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Valid reports whether s is a member of the state enumeration.
func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// MarshalText renders the state by name so sessions serialize readably.
func (s State) MarshalText() ([]byte, error) {
	name, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid session state %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", string(text))
}

// Session is the per-sender conversation record. There is exactly one
// session per sender identity; it is created lazily on first contact and
// never deleted, only reset back to StateIdle.
type Session struct {
	SenderID    string   `json:"sender_id"`
	DisplayName string   `json:"display_name"`
	State       State    `json:"state"`
	Log         []string `json:"log"`
}

// New creates a session in the starting state with an empty log. The
// display name defaults to the sender ID until something better is known.
func New(senderID string) *Session {
	return &Session{
		SenderID:    senderID,
		DisplayName: senderID,
		State:       StateIdle,
		Log:         []string{},
	}
}

// Clone returns a deep copy so callers can hand sessions across goroutine
// boundaries without sharing the log slice.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Log = make([]string, len(s.Log))
	copy(out.Log, s.Log)
	return &out
}

// Reset returns the session to the starting state and clears the episode
// log. The record itself survives for the lifetime of the process.
func (s *Session) Reset() {
	s.State = StateIdle
	s.Log = []string{}
}
