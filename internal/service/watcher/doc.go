// Package watcher polls the panel and publishes every arming state change.
package watcher
