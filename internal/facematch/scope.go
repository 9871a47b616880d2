package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/event-faces/internal/constants"
)

// Scope identifies whose event pool a run operates on. It is passed explicitly
// to every engine, store and registry call.
type Scope struct {
	Owner   string `json:"owner"`
	EventID string `json:"event_id"`
}

// Validate checks that the scope can be turned into storage keys.
func (s Scope) Validate() error {
	if strings.TrimSpace(s.Owner) == "" {
		return invalidInput("scope owner is required")
	}
	if strings.TrimSpace(s.EventID) == "" {
		return invalidInput("scope event id is required")
	}
	if strings.Contains(s.EventID, "/") || strings.Contains(s.Owner, "/") {
		return invalidInput("scope must not contain '/'")
	}
	return nil
}

// ImagesPrefix is the object store prefix holding the event's images.
func (s Scope) ImagesPrefix() string {
	return "events/" + s.Owner + "/" + s.EventID + "/images/"
}

// Folder returns the owner normalized for use as a single path segment.
func (s Scope) Folder() string {
	return SanitizeFolder(s.Owner)
}

// SelfieKey returns the key under which a selfie uploaded by this owner is stored.
func (s Scope) SelfieKey(role, name string) string {
	if role == "" {
		role = constants.DefaultSelfieRole
	}
	return role + "/" + s.Folder() + "/selfies/" + name
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// SanitizeFolder maps an identifier (usually an email) to [A-Za-z0-9_].
func SanitizeFolder(identifier string) string {
	identifier = RemoveDiacritics(identifier)
	var b strings.Builder
	b.Grow(len(identifier))
	for _, r := range identifier {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}
