package zipstream

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsValidID validates that an archive identifier is a single safe path segment.
// It checks that the id:
//   - is not empty, "." or ".."
//   - does not contain a path separator (/ or \)
//   - is valid UTF-8
//   - does not contain null bytes, control characters (< 0x20), DEL (0x7f), or whitespace
//
// Returns true if the id is valid, false otherwise.
func IsValidID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}

	if strings.ContainsAny(id, `/\`) {
		return false
	}

	if !utf8.ValidString(id) {
		return false
	}

	for _, r := range id {
		if r == 0 || r < 0x20 || r == 0x7f || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}
