// Package palette holds the default colour cycle assigned to variables and
// the normalisation rules for user supplied colour specs.
package palette

import (
	"regexp"
	"strings"
)

// Default is the cyclic colour palette handed out to variables that arrive
// without an explicit colour.
var Default = []string{
	"#f92672",
	"#a6e22e",
	"#66d9ef",
	"#fd971f",
	"#e6db74",
	"#9e6ffe",
	"#cc6633",
	"#f8f8f2",
	"#ae81ff",
	"#f4bf75",
	"#cfcfc2",
	"#b6e354",
}

var rgbCallRegex = regexp.MustCompile(`(?i)^rgba?\s*\(([^)]*)\)$`)

// Color returns the palette entry for index i, wrapping in both directions.
func Color(i int) string {
	n := len(Default)
	i %= n
	if i < 0 {
		i += n
	}
	return Default[i]
}

// Normalize cleans a colour spec. rgb()/rgba() calls are rebuilt from their
// trimmed components (at most four are kept); three components yield rgb(),
// four yield rgba(). Anything else that looks like an rgb call, or an empty
// spec, resolves to fallback. Other specs (hex, named, quoted text) pass
// through trimmed.
func Normalize(spec, fallback string) string {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return fallback
	}

	m := rgbCallRegex.FindStringSubmatch(spec)
	if m == nil {
		return spec
	}

	parts := make([]string, 0, 4)
	for _, p := range strings.Split(m[1], ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts = append(parts, p)
		if len(parts) == 4 {
			break
		}
	}

	switch len(parts) {
	case 3:
		return "rgb(" + strings.Join(parts, ",") + ")"
	case 4:
		return "rgba(" + strings.Join(parts, ",") + ")"
	default:
		return fallback
	}
}
