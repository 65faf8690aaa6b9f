package parser

import (
	"regexp"
	"strings"

	"github.com/serial-plotter/backend/internal/models"
	"github.com/serial-plotter/backend/internal/palette"
)

// headerEntryRegex matches one declaration: a name, optionally followed by
// ":" and a colour. Colour forms, in order: single quoted, double quoted,
// #hex, rgb()/rgba(), bare word. The last group swallows anything else after
// the colon so a malformed colour does not turn into a new name.
var headerEntryRegex = regexp.MustCompile(
	`(\w+)(?:\s*:\s*(?:'([^']*)'|"([^"]*)"|(#\w+)|((?i:rgba?)\s*\([^)]*\))|([A-Za-z]+\b)|(\S*)))?`)

// IsHeaderDirective reports whether a cleaned line has the directive shape
// "header <rest>".
func IsHeaderDirective(line string) bool {
	return headerDirectiveRegex.MatchString(strings.TrimSpace(line))
}

// ParseHeader parses a header directive into declarations in appearance
// order. Names keep their case. A repeated name keeps its first declaration.
// Names without a usable colour get the palette colour for their position.
// ok is false when the line is not a directive or declares no names.
func ParseHeader(line string) ([]models.HeaderEntry, bool) {
	m := headerDirectiveRegex.FindStringSubmatch(strings.TrimSpace(CleanLine(line)))
	if m == nil {
		return nil, false
	}

	rest := m[1]
	var entries []models.HeaderEntry
	seen := make(map[string]struct{})
	for pos := 0; pos < len(rest); {
		loc := headerEntryRegex.FindStringSubmatchIndex(rest[pos:])
		if loc == nil {
			break
		}
		g := submatches(rest[pos:], loc)
		next := pos + loc[1]

		// "a: b:red": a bare word directly followed by ':' is the next
		// name, not a's colour.
		if g[6] != "" && next < len(rest) && rest[next] == ':' {
			g[6] = ""
			next = pos + loc[12]
		}
		if next <= pos {
			next = pos + 1
		}
		pos = next

		name := g[1]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		fallback := palette.Color(len(entries))
		entries = append(entries, models.HeaderEntry{
			Name:  strings.Clone(name),
			Color: palette.Normalize(firstNonEmpty(g[2], g[3], g[4], g[5], g[6]), fallback),
		})
	}

	return entries, len(entries) > 0
}

func submatches(s string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := range out {
		if loc[2*i] >= 0 {
			out[i] = s[loc[2*i]:loc[2*i+1]]
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
