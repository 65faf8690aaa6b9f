package parser

import (
	"regexp"

	"github.com/serial-plotter/backend/internal/models"
)

// strictPairRegex matches name:value with an identifier name and a signed
// decimal or scientific value, no whitespace around the colon.
var strictPairRegex = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*):([+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)

// StrictTokenizer accepts only glued name:value pairs. It never guesses
// implicit pairs, which suits devices that always label their values.
type StrictTokenizer struct {
	intern *StringIntern
}

// NewStrictTokenizer creates a strict tokenizer. A nil interner disables
// name interning.
func NewStrictTokenizer(intern *StringIntern) *StrictTokenizer {
	return &StrictTokenizer{intern: intern}
}

func (t *StrictTokenizer) Name() string { return ModeStrict }

func (t *StrictTokenizer) Tokenize(line string) []models.ParsedToken {
	var out []models.ParsedToken
	for _, m := range strictPairRegex.FindAllStringSubmatchIndex(line, -1) {
		start, end := m[0], m[1]
		// Reject matches glued to surrounding words: "9abc:1", "x:1.2.3", "v:5V".
		if start > 0 && isWordByte(line[start-1]) {
			continue
		}
		if end < len(line) && (isWordByte(line[end]) || line[end] == '.' || line[end] == ':') {
			continue
		}
		v, ok := ParseNumber(line[m[4]:m[5]])
		if !ok {
			continue
		}
		name := line[m[2]:m[3]]
		if t.intern != nil {
			name = t.intern.Intern(name)
		}
		out = append(out, models.ParsedToken{Name: name, Value: v})
	}
	return out
}

func isWordByte(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
