package presence

import "github.com/cespare/xxhash/v2"

// palette is a fixed set of high-contrast cursor colors. The mapping from
// userId to a palette entry must be stable across sessions and server
// restarts, so it is a pure hash rather than an assignment stored
// anywhere.
var palette = []string{
	"#e74c3c", "#3498db", "#2ecc71", "#f39c12",
	"#9b59b6", "#1abc9c", "#e67e22", "#34495e",
}

// CursorColorFor deterministically maps a user id to a palette color.
func CursorColorFor(userID string) string {
	h := xxhash.Sum64String(userID)
	return palette[h%uint64(len(palette))]
}
