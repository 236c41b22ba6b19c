// Package integration holds end-to-end tests that run the services against
// an in-process fake of the Yale API.
package integration
