// Package common holds helpers shared by several services.
//
// It builds a Yale API client from the settings file and detects the current
// system actor (hostname/username) for audit purposes.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
