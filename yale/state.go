package yale

import "strings"

// AlarmState is the arming mode of the panel.
type AlarmState int

const (
	// StateUnknown is reported when the panel mode cannot be mapped.
	StateUnknown AlarmState = iota
	// StateArmedFull is the away mode: every zone armed.
	StateArmedFull
	// StateArmedPartial is the home mode: perimeter zones armed.
	StateArmedPartial
	// StateDisarmed means no zone is armed.
	StateDisarmed
)

// Vendor wire values of the panel mode.
const (
	modeArmFull    = "arm"
	modeArmPartial = "home"
	modeDisarm     = "disarm"
)

// String returns a human-readable name of the state.
func (s AlarmState) String() string {
	switch s {
	case StateArmedFull:
		return "armed_full"
	case StateArmedPartial:
		return "armed_partial"
	case StateDisarmed:
		return "disarmed"
	default:
		return "unknown"
	}
}

// IsArmed reports whether any zone is armed.
func (s AlarmState) IsArmed() bool {
	return s == StateArmedFull || s == StateArmedPartial
}

// mode returns the vendor wire value, or false for StateUnknown.
func (s AlarmState) mode() (string, bool) {
	switch s {
	case StateArmedFull:
		return modeArmFull, true
	case StateArmedPartial:
		return modeArmPartial, true
	case StateDisarmed:
		return modeDisarm, true
	default:
		return "", false
	}
}

// ParseMode maps a vendor mode value to an AlarmState.
func ParseMode(mode string) AlarmState {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case modeArmFull:
		return StateArmedFull
	case modeArmPartial:
		return StateArmedPartial
	case modeDisarm:
		return StateDisarmed
	default:
		return StateUnknown
	}
}

// ParseState maps a user-facing name (as printed by String, or a short
// alias such as "full", "partial", "home", "away", "off") to an AlarmState.
func ParseState(name string) (AlarmState, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "armed_full", "full", "away", modeArmFull:
		return StateArmedFull, true
	case "armed_partial", "partial", modeArmPartial:
		return StateArmedPartial, true
	case "disarmed", "off", modeDisarm:
		return StateDisarmed, true
	default:
		return StateUnknown, false
	}
}
