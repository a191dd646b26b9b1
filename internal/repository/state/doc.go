// Package state persists the synchronization marker of an install root.
//
// The FileRepository stores a small JSON document recording whether the last
// bootstrap pass completed. Reads tolerate a missing or damaged file, and
// writes replace the file atomically so a crash never leaves a torn marker.
package state
