// Package watchfs turns fsnotify notifications into cync event
// envelopes for a whole subtree.
//
// fsnotify watches single directories only, so the watcher registers
// the root and every existing subdirectory up front and adds newly
// created directories as they appear. fsnotify also cannot pair the
// two halves of a rename, so moves surface as a Deleted for the old
// name and a Created for the new one; the engine's Moved handling
// remains available to producers that can pair them.
//
// The watcher owns the start/stop lifecycle and delivers envelopes on
// a single channel, which keeps the engine's one-consumer assumption
// intact.
package watchfs
