package processor

import "strings"

// Markers of transient failures worth retrying: platform rate limiting,
// network trouble and 5xx responses. Matched case-insensitively against the
// error message.
var temporaryErrorMarkers = []string{
	"rate limit",
	"timeout",
	"network",
	"500",
	"502",
	"503",
	"504",
	"temporary",
}

// IsTemporary classifies a publish failure. Anything not recognized as
// transient is treated as permanent.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	for _, marker := range temporaryErrorMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}
