// Package clock is the sole source of server timestamps and object ids.
package clock

import (
	"time"
	"unicode"

	"github.com/lithammer/shortuuid/v4"
)

// Now returns the current instant truncated to millisecond resolution.
// Every stamped UpdatedAt/LastSeen in the store goes through this
// function so that two writes admitted in the same millisecond still
// compare equal rather than racing on sub-millisecond jitter nobody
// asked for.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NewObjectID mints an opaque, URL-safe identifier with negligible
// collision probability.
func NewObjectID() string {
	return shortuuid.New()
}

// NewBoardID mints an opaque board identifier.
func NewBoardID() string {
	return "b_" + shortuuid.New()
}

const maxIDLen = 64

// ValidObjectID reports whether a client-proposed id is syntactically
// acceptable. The server accepts client ids verbatim when they pass this
// check and are not already in use on the target board.
func ValidObjectID(id string) bool {
	if id == "" || len(id) > maxIDLen {
		return false
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || r == '/' || r == '\\' {
			return false
		}
	}
	return true
}
