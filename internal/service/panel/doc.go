// Package panel implements the alarm panel commands: status, arm, disarm
// and panic.
//
// Arm and disarm send one mode change and can then poll the panel until it
// reports the requested state.
package panel
