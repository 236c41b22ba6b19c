// Package report prints read-only panel reports: devices, door contacts,
// health indicators and the raw vendor reports.
package report
