package alarm

import (
	"encoding/json"
	"time"

	"github.com/oshokin/yale-alarm/yale"
)

// Actor identifies who performed an action.
type Actor struct {
	// Hostname is the machine name where the action was performed.
	Hostname string
	// Username is the system user who triggered the action.
	Username string
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// String formats the actor as username@hostname.
func (a *Actor) String() string {
	if a == nil {
		return "<unknown>"
	}

	return a.Username + "@" + a.Hostname
}

// Snapshot is the panel state observed at a specific point in time.
type Snapshot struct {
	// Timestamp is when the state was observed.
	Timestamp time.Time
	// State is the arming mode reported by the panel.
	State yale.AlarmState
	// Observer is the actor that polled the panel.
	Observer *Actor
}

// Clone returns a copy of the snapshot to avoid leaking internal references.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	return &Snapshot{
		Timestamp: s.Timestamp,
		State:     s.State,
		Observer:  s.Observer.Clone(),
	}
}

// Changed reports whether s carries a different state than prev.
// A nil prev always counts as a change.
func (s *Snapshot) Changed(prev *Snapshot) bool {
	return prev == nil || prev.State != s.State
}

// snapshotPayload is the published form of a Snapshot.
type snapshotPayload struct {
	State     string    `json:"state"`
	Armed     bool      `json:"armed"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	payload := snapshotPayload{
		State:     s.State.String(),
		Armed:     s.State.IsArmed(),
		Timestamp: s.Timestamp.UTC(),
	}

	if s.Observer != nil {
		payload.Actor = s.Observer.String()
	}

	return json.Marshal(payload)
}
