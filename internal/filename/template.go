// Package filename renders metadata records into sanitized,
// collision-free filenames using a small placeholder grammar.
package filename

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/refile/refile/internal/metadata"
)

// MaxNameLen bounds the rendered stem; safely under common filesystem
// limits with room for a collision suffix and extension.
const MaxNameLen = 200

// Presets are the built-in templates. A custom template is just a
// user-supplied string in the same grammar; there is no separate path.
var Presets = map[string]string{
	"standard":   "{author} - {title} ({year})",
	"journal":    "{author} - {title} - {journal} ({year})",
	"year-first": "{year} - {author} - {title}",
	"compact":    "{author}_{year}_{title}",
}

// DefaultPreset names the template used when nothing is configured.
const DefaultPreset = "standard"

var (
	placeholderPattern = regexp.MustCompile(`\{[a-zA-Z_]+\}`)
	illegalChars       = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	emptyParens        = regexp.MustCompile(`\(\s*\)|\[\s*\]`)
	dashRuns           = regexp.MustCompile(`(\s*-\s*){2,}`)
	underscoreRuns     = regexp.MustCompile(`_{2,}`)
	whitespaceRuns     = regexp.MustCompile(`\s+`)
)

// Resolve maps a template name to its preset, or returns the string
// itself when it is not a preset name (a custom template).
func Resolve(template string) string {
	if template == "" {
		return Presets[DefaultPreset]
	}
	if preset, ok := Presets[template]; ok {
		return preset
	}
	return template
}

// Render produces a sanitized filename stem from the record and
// template. Missing fields render empty and leftover separators
// collapse. Rendering is deterministic; an entirely empty record can
// yield an empty stem, which callers fall back on.
func Render(rec metadata.Record, template string) string {
	replacer := strings.NewReplacer(
		"{author}", rec.AuthorLabel(),
		"{title}", rec.Title,
		"{year}", rec.Year,
		"{journal}", rec.Journal,
		"{publisher}", rec.Publisher,
	)
	name := replacer.Replace(Resolve(template))

	// Unknown placeholders in custom templates render empty too.
	name = placeholderPattern.ReplaceAllString(name, "")

	return sanitize(name)
}

// sanitize strips characters illegal in filesystem names, collapses
// separators left by empty fields, and truncates to MaxNameLen at a
// word boundary.
func sanitize(name string) string {
	name = illegalChars.ReplaceAllString(name, "")
	name = emptyParens.ReplaceAllString(name, "")
	name = dashRuns.ReplaceAllString(name, " - ")
	name = underscoreRuns.ReplaceAllString(name, "_")
	name = whitespaceRuns.ReplaceAllString(name, " ")
	name = strings.Trim(name, " -_")

	if len(name) > MaxNameLen {
		// Back up to a rune start so the cap never splits a rune.
		max := MaxNameLen
		for max > 0 && !utf8.RuneStart(name[max]) {
			max--
		}
		cut := name[:max]
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
		name = strings.Trim(cut, " -_")
	}

	return name
}
