// Package version exposes build metadata for yale-alarm.
//
// Version, Commit and BuildTime are injected through -ldflags at build time.
// Short, Full and UserAgent render them for the CLI, logs and outgoing HTTP
// requests.
package version
