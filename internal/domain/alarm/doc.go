// Package alarm contains core domain types of the CLI.
//
// It defines Actor (who ran a command) and Snapshot (the panel state observed
// at a point in time) with Clone helpers to avoid leaking internal references.
package alarm
