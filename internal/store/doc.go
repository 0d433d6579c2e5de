// Package store provides the on-disk layout and crash-safe file IO under a
// profile directory.
//
// Paths resolves every per-profile file location (save file, settings,
// history database, lock token, avatar cache) from one base directory.
// WriteFileAtomic stages writes in a synced temp file and renames it into
// place, so an interrupted write never corrupts the previous contents.
// ReadFile keeps missing, empty and unreadable files distinguishable for
// the load path's error classification.
package store
