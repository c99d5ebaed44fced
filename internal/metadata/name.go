package metadata

import "strings"

// Common name suffixes kept with the last name when splitting.
var nameSuffixes = map[string]bool{
	"jr": true, "jr.": true,
	"sr": true, "sr.": true,
	"ii": true, "iii": true, "iv": true,
	"phd": true, "ph.d": true,
	"md": true, "m.d": true,
}

// NormalizeName converts a display name ("Jane Q Smith") to the
// normalized "Last, First" form used in Record.Authors. Names already
// containing a comma are assumed normalized and returned trimmed.
//
// Known limitations: multi-part surnames (van der Waals) split at the
// final token, and middle names stay with the first name.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.Contains(name, ",") {
		return name
	}

	parts := strings.Fields(name)
	if len(parts) == 1 {
		return parts[0]
	}

	var first, last string
	lastPart := strings.ToLower(parts[len(parts)-1])
	if nameSuffixes[lastPart] && len(parts) > 2 {
		last = parts[len(parts)-2] + " " + parts[len(parts)-1]
		first = strings.Join(parts[:len(parts)-2], " ")
	} else {
		last = parts[len(parts)-1]
		first = strings.Join(parts[:len(parts)-1], " ")
	}

	return last + ", " + first
}

// JoinName builds the normalized author form from explicit family and
// given names, tolerating either being empty.
func JoinName(family, given string) string {
	family = strings.TrimSpace(family)
	given = strings.TrimSpace(given)
	switch {
	case family == "":
		return given
	case given == "":
		return family
	default:
		return family + ", " + given
	}
}
