// Package config defines the settings used by the yale-alarm CLI and helpers
// to load, validate and save them in YAML format.
//
// Config holds the Yale account credentials, the panel area, transport
// tuning (timeout, client-side rate limit) and the optional MQTT sink used
// by the watch command.
package config
