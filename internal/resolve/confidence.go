package resolve

import (
	"strings"

	"github.com/refile/refile/internal/metadata"
	"github.com/refile/refile/internal/sources"
)

// Confidence combines three signals multiplicatively:
//
//	score = specificity × source weight × (0.7 + 0.3 × completeness)
//
// Specificity: an identifier the file itself carried outranks anything
// fuzzy. A DOI pins an exact article (base 1.0), an ISBN only a book
// edition (base 0.9), and a title search scales with word overlap
// capped at 0.85 so it can never outrank an identifier match.
//
// Completeness discounts records missing author/title/year, floored at
// 0.7 so a sparse exact DOI hit still beats a rich fuzzy one.
const (
	doiBase       = 1.0
	isbnBase      = 0.9
	fuzzyBaseCap  = 0.85
	completeFloor = 0.7
)

// sourceWeights encode relative provider reliability.
var sourceWeights = map[string]float64{
	metadata.SourceCrossRef:        1.0,
	metadata.SourceSemanticScholar: 0.9,
	metadata.SourceOpenLibrary:     0.95,
	metadata.SourceGoogleBooks:     0.9,
	metadata.SourceZotero:          0.95,
}

// Score assigns a confidence in [0,1] to a record returned for the
// query. A record that matches nothing in the query scores zero.
func Score(q sources.Query, rec metadata.Record) float64 {
	base := matchBase(q, rec)
	if base <= 0 {
		return 0
	}

	weight, ok := sourceWeights[rec.Source]
	if !ok {
		return 0
	}

	score := base * weight * (completeFloor + (1-completeFloor)*rec.Completeness())
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// matchBase determines identifier specificity for the record.
func matchBase(q sources.Query, rec metadata.Record) float64 {
	if q.DOI != "" && rec.DOI != "" && normalizeDOI(q.DOI) == normalizeDOI(rec.DOI) {
		return doiBase
	}
	if q.ISBN != "" && rec.ISBN == q.ISBN {
		return isbnBase
	}
	if q.TitleGuess != "" && rec.Title != "" {
		return fuzzyBaseCap * titleOverlap(q.TitleGuess, rec.Title)
	}
	return 0
}

// titleOverlap is the fraction of query-title words present in the
// candidate title.
func titleOverlap(query, candidate string) float64 {
	qWords := strings.Fields(strings.ToLower(query))
	if len(qWords) == 0 {
		return 0
	}
	cWords := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(candidate)) {
		cWords[w] = true
	}
	hits := 0
	for _, w := range qWords {
		if cWords[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(qWords))
}

// normalizeDOI lowercases and strips common URL prefixes so DOIs
// compare stably across providers.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(strings.ToLower(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return doi
}
