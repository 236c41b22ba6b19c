// Package state implements persistence for the last published alarm Snapshot.
//
// The FileRepository stores and loads the snapshot as JSON on disk and exposes
// a Repository interface that the watcher depends on, so a restarted watcher
// does not publish an unchanged state again.
package state
