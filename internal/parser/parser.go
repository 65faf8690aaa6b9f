// Package parser turns raw serial text lines into name/value tokens and
// header declarations.
package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/serial-plotter/backend/internal/models"
)

// Tokenizer extracts name/value pairs from one cleaned data line.
type Tokenizer interface {
	// Name returns the unique name of the tokenizer (the parse mode).
	Name() string
	// Tokenize returns the pairs in left-to-right order. Malformed pieces are
	// skipped; the result may be empty but never an error.
	Tokenize(line string) []models.ParsedToken
}

// ConnectingMarker marks device connection status lines that carry no data.
const ConnectingMarker = "Connecting"

var (
	// TimestampPrefixRegex matches a leading bracketed timestamp such as "[12:34:56.789] ".
	TimestampPrefixRegex = regexp.MustCompile(`^\[[^\]]+\]\s*`)

	headerWordRegex      = regexp.MustCompile(`(?i)\bheader\b`)
	headerDirectiveRegex = regexp.MustCompile(`(?i)^header\s+(.*)$`)
)

// CleanLine removes CR/LF characters and a leading bracketed timestamp.
func CleanLine(raw string) string {
	line := raw
	if strings.ContainsAny(line, "\r\n") {
		line = strings.NewReplacer("\r", "", "\n", "").Replace(line)
	}
	if strings.HasPrefix(line, "[") {
		line = TimestampPrefixRegex.ReplaceAllString(line, "")
	}
	return line
}

// Classify cleans a raw line and decides what it is. The returned string is
// the cleaned line (trimmed for headers).
func Classify(raw string) (models.LineKind, string) {
	line := CleanLine(raw)
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == "":
		return models.LineKindEmpty, ""
	case headerDirectiveRegex.MatchString(trimmed):
		return models.LineKindHeader, trimmed
	case headerWordRegex.MatchString(trimmed):
		return models.LineKindIgnored, line
	case strings.Contains(trimmed, ConnectingMarker):
		return models.LineKindIgnored, line
	default:
		return models.LineKindData, line
	}
}

// Tokenize runs the pre-filter on a raw line and tokenizes it with the
// default heuristic tokenizer. Non-data lines yield nil.
func Tokenize(raw string) []models.ParsedToken {
	kind, line := Classify(raw)
	if kind != models.LineKindData {
		return nil
	}
	return GetGlobalRegistry().Default().Tokenize(line)
}

// ParseNumber parses a finite decimal literal: optional sign, digits with an
// optional fraction, optional exponent. Hex, inf, nan and trailing text are
// rejected. Negative zero is returned as zero.
func ParseNumber(s string) (float64, bool) {
	if !isDecimalFast(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	return v, true
}

// IsNumeric reports whether s parses as a finite decimal.
func IsNumeric(s string) bool {
	_, ok := ParseNumber(s)
	return ok
}

// isDecimalFast validates the decimal grammar without regex.
func isDecimalFast(s string) bool {
	if len(s) == 0 {
		return false
	}

	i := 0
	if s[i] == '+' || s[i] == '-' {
		i++
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for i < len(s) && isDigit(s[i]) {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}

	return i == len(s)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// splitFields splits a line on runs of space, tab, comma and semicolon.
func splitFields(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == ';'
	})
}

// stripWrappers removes quotes and brackets wrapped around a key or value.
func stripWrappers(s string) string {
	s = strings.TrimLeft(s, `'"([{`)
	return strings.TrimRight(s, `'")]}`)
}
