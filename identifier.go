package restquery

import "regexp"

var documentIDPattern = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)

// IsDocumentIdentifier reports whether v looks like a document identifier,
// i.e. a string of exactly 24 hexadecimal characters.
func IsDocumentIdentifier(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return documentIDPattern.MatchString(s)
}
