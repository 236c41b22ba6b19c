// Package locks implements the door lock commands.
package locks
