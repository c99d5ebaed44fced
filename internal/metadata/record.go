// Package metadata defines the normalized bibliographic record shared by
// all lookup sources and consumers.
package metadata

import "strings"

// Known source names. Every Record carries exactly one of these.
const (
	SourceCrossRef        = "crossref"
	SourceSemanticScholar = "semantic_scholar"
	SourceOpenLibrary     = "open_library"
	SourceGoogleBooks     = "google_books"
	SourceZotero          = "zotero"
	SourceUnknown         = "unknown"
)

// Record is the single internal metadata shape. Provider responses are
// normalized into it at the source boundary; nothing provider-specific
// leaks past that point.
type Record struct {
	Title     string   `json:"title"`
	Authors   []string `json:"authors"` // normalized "Last, First" form
	Year      string   `json:"year"`
	Journal   string   `json:"journal"`
	Publisher string   `json:"publisher"`

	// Identifiers, when the source reported them.
	DOI  string `json:"doi,omitempty"`
	ISBN string `json:"isbn,omitempty"`

	// ZoteroKey is set only by the Zotero source and enables the
	// post-rename attachment update.
	ZoteroKey string `json:"zotero_key,omitempty"`

	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// Unknown returns the sentinel record used when no source produced a
// match. Confidence is zero iff Source is "unknown".
func Unknown() Record {
	return Record{Source: SourceUnknown, Confidence: 0}
}

// IsUnknown reports whether the record is the no-match sentinel.
func (r Record) IsUnknown() bool {
	return r.Source == SourceUnknown
}

// Completeness returns the fraction of the core fields (author, title,
// year) that are present. Journal and publisher are optional per venue
// type and do not count against a record.
func (r Record) Completeness() float64 {
	n := 0
	if len(r.Authors) > 0 {
		n++
	}
	if r.Title != "" {
		n++
	}
	if r.Year != "" {
		n++
	}
	return float64(n) / 3
}

// AuthorLabel formats the author list for filenames: "Last" for one
// author, "Last1 & Last2" for two, "Last1 et al." for more.
func (r Record) AuthorLabel() string {
	if len(r.Authors) == 0 {
		return ""
	}
	lasts := make([]string, len(r.Authors))
	for i, a := range r.Authors {
		lasts[i] = lastName(a)
	}
	switch len(lasts) {
	case 1:
		return lasts[0]
	case 2:
		return lasts[0] + " & " + lasts[1]
	default:
		return lasts[0] + " et al."
	}
}

// lastName extracts the family name from a normalized "Last, First"
// author string. A name without a comma is returned whole.
func lastName(name string) string {
	if i := strings.Index(name, ","); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	return strings.TrimSpace(name)
}
