// Package convergence implements the field-level last-writer-wins rule
// every replica of an object converges to.
package convergence

import "time"

// Stamp is the (timestamp, writer) pair a field value is compared by.
type Stamp struct {
	UpdatedAt time.Time
	WriterID  string
}

// Wins reports whether the incoming stamp supersedes the current one.
// Ties are broken by lexicographic order of the writer id, so that every
// replica resolves a dead heat identically without needing a tie-break
// round trip.
func Wins(current, incoming Stamp) bool {
	if incoming.UpdatedAt.After(current.UpdatedAt) {
		return true
	}
	if incoming.UpdatedAt.Before(current.UpdatedAt) {
		return false
	}
	return incoming.WriterID > current.WriterID
}

// Resolve returns whichever of current/incoming wins, plus whether the
// incoming value was applied.
func Resolve[T any](current, incoming T, currentStamp, incomingStamp Stamp) (T, bool) {
	if Wins(currentStamp, incomingStamp) {
		return incoming, true
	}
	return current, false
}
