// Package pdfscan extracts identifier candidates (DOI, ISBN) and a
// title guess from the leading pages of a PDF.
package pdfscan

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	// MaxPages bounds how many leading pages are scanned. Identifiers
	// almost always appear on the first page.
	MaxPages = 3

	// MaxSnippetLen bounds the raw text kept per file.
	MaxSnippetLen = 3000

	maxTitleLen = 200
)

// DOI pattern: 10.XXXX/... where XXXX is 4+ digits
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// Info holds the identifier candidates extracted from one file.
// DOIs are ordered before ISBNs by the consumer: a DOI resolves to a
// specific article while an ISBN only identifies a book edition.
type Info struct {
	DOIs       []string
	ISBNs      []string
	TitleGuess string
	Text       string
}

// Empty reports whether no identifiers and no title guess were found.
func (i Info) Empty() bool {
	return len(i.DOIs) == 0 && len(i.ISBNs) == 0 && i.TitleGuess == ""
}

// ExtractInfo scans the leading pages of the PDF at path for DOI and
// ISBN candidates and guesses a title. An unreadable or corrupt PDF
// yields an Info with empty candidates and a nil error: extraction
// failure degrades the scan for that file, it never aborts it.
func ExtractInfo(path string) Info {
	var info Info

	if text, err := extractText(path, MaxPages); err == nil {
		info = infoFromText(text)
	}

	// The filename itself often carries the DOI for files downloaded
	// from publisher sites.
	if len(info.DOIs) == 0 {
		base := filepath.Base(path)
		base = strings.TrimSuffix(base, filepath.Ext(base))
		info.DOIs = findDOIs(strings.ReplaceAll(base, "_", "/"))
	}

	return info
}

// infoFromText searches the full extracted text for identifiers and a
// title; only the stored snippet is capped.
func infoFromText(text string) Info {
	return Info{
		DOIs:       findDOIs(text),
		ISBNs:      FindISBNs(text),
		TitleGuess: guessTitle(text),
		Text:       cutRuneSafe(text, MaxSnippetLen),
	}
}

// extractText extracts plain text from the first maxPages pages.
func extractText(path string, maxPages int) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if maxPages <= 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// findDOIs finds valid DOI candidates in text, in order of appearance.
func findDOIs(text string) []string {
	matches := doiPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var dois []string
	for _, match := range matches {
		// Remove trailing punctuation picked up by the pattern
		match = strings.TrimRight(match, `.,;:)"'>}]`)
		if !isValidDOI(match) || seen[match] {
			continue
		}
		seen[match] = true
		dois = append(dois, match)
	}

	return dois
}

// isValidDOI performs basic structural validation on a DOI.
func isValidDOI(doi string) bool {
	if len(doi) < 10 {
		return false
	}
	if !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	if slashIdx == -1 || slashIdx >= len(doi)-1 {
		return false
	}
	return true
}

// guessTitle returns the first substantial non-header line of the text.
func guessTitle(text string) string {
	lines := strings.Split(text, "\n")
	checked := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		checked++
		if checked > 10 {
			break
		}
		if len(line) > 10 && !isHeaderLine(line) &&
			!doiPattern.MatchString(line) && !strings.HasPrefix(line, "http") {
			return cutRuneSafe(line, maxTitleLen)
		}
	}
	return ""
}

// cutRuneSafe truncates s to at most max bytes without splitting a
// multi-byte rune.
func cutRuneSafe(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// isHeaderLine checks if a line is likely a journal header/footer.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	if strings.Contains(lower, "journal") {
		return true
	}
	if strings.Contains(lower, "volume") && strings.Contains(lower, "issue") {
		return true
	}
	if strings.Contains(lower, "copyright") {
		return true
	}
	if strings.Contains(lower, "article") && strings.Contains(lower, "published") {
		return true
	}
	return false
}
