package pdfscan

import (
	"regexp"
	"strings"
)

// ISBN candidates: either explicitly labeled, or a bare 978/979-prefixed
// 13-digit group. Bare 10-digit runs are too ambiguous to match without
// the label; the checksum filters the rest.
var (
	labeledISBNPattern = regexp.MustCompile(`(?i)ISBN(?:-1[03])?[-:]?\s*((?:97[89][-\s]?)?(?:\d[-\s]?){9}[\dXx])`)
	bareISBN13Pattern  = regexp.MustCompile(`\b97[89][-\s]?(?:\d[-\s]?){9}\d\b`)
)

// FindISBNs returns checksum-valid ISBN candidates from text, hyphens
// and spaces stripped, in order of appearance.
func FindISBNs(text string) []string {
	seen := make(map[string]bool)
	var isbns []string

	add := func(raw string) {
		isbn := normalizeISBN(raw)
		if isbn == "" || seen[isbn] {
			return
		}
		seen[isbn] = true
		isbns = append(isbns, isbn)
	}

	for _, m := range labeledISBNPattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range bareISBN13Pattern.FindAllString(text, -1) {
		add(m)
	}

	return isbns
}

// normalizeISBN strips separators and validates the checksum. Returns
// the empty string for invalid candidates.
func normalizeISBN(raw string) string {
	s := strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, raw)
	s = strings.ToUpper(s)

	switch len(s) {
	case 10:
		if validISBN10(s) {
			return s
		}
	case 13:
		if validISBN13(s) {
			return s
		}
	}
	return ""
}

// validISBN10 checks the mod-11 checksum. The final position may be 'X'
// representing ten.
func validISBN10(s string) bool {
	sum := 0
	for i, r := range s {
		var v int
		switch {
		case r >= '0' && r <= '9':
			v = int(r - '0')
		case r == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += (10 - i) * v
	}
	return sum%11 == 0
}

// validISBN13 checks the alternating 1/3-weight mod-10 checksum.
func validISBN13(s string) bool {
	sum := 0
	for i, r := range s {
		if r < '0' || r > '9' {
			return false
		}
		v := int(r - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return sum%10 == 0
}
