package parser

import (
	"fmt"
	"strings"

	"github.com/serial-plotter/backend/internal/models"
)

// Outcome is the result of applying a Rule at one token position.
type Outcome int

const (
	// Pass means the rule does not apply; the next rule is tried.
	Pass Outcome = iota
	// Accept means a pair was produced.
	Accept
	// Drop means the rule owns the token shape but the value is unusable;
	// the tokenizer moves on to the next token.
	Drop
)

// Rule recognises one name/value shape starting at tokens[i].
type Rule interface {
	Name() string
	// Apply returns the pair, how many tokens after i it consumed, and the outcome.
	Apply(tokens []string, i int) (models.ParsedToken, int, Outcome)
}

// RuleSet is an ordered list of rules; earlier rules win.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet creates a rule set in the given priority order.
func NewRuleSet(rules ...Rule) *RuleSet {
	return &RuleSet{rules: rules}
}

// DefaultRules returns the standard priority order:
// key:value, key: value, key : value, key value.
func DefaultRules() *RuleSet {
	return NewRuleSet(
		keyValueRule{},
		colonSuffixRule{},
		colonStandaloneRule{},
		implicitPairRule{},
	)
}

// Register appends a rule with the lowest priority.
func (rs *RuleSet) Register(r Rule) {
	rs.rules = append(rs.rules, r)
}

// Rules returns the rules in priority order.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// RuleByName returns a rule by its name.
func (rs *RuleSet) RuleByName(name string) (Rule, error) {
	name = strings.ToLower(name)
	for _, r := range rs.rules {
		if strings.ToLower(r.Name()) == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("rule not found: %s", name)
}

func pair(name, value string) (models.ParsedToken, bool) {
	if name == "" {
		return models.ParsedToken{}, false
	}
	v, ok := ParseNumber(value)
	if !ok {
		return models.ParsedToken{}, false
	}
	return models.ParsedToken{Name: name, Value: v}, true
}

// keyValueRule: "temp:25". The colon must be inside the token.
type keyValueRule struct{}

func (keyValueRule) Name() string { return "key_value" }

func (keyValueRule) Apply(tokens []string, i int) (models.ParsedToken, int, Outcome) {
	tok := tokens[i]
	idx := strings.IndexByte(tok, ':')
	if idx <= 0 || strings.HasSuffix(tok, ":") {
		return models.ParsedToken{}, 0, Pass
	}
	p, ok := pair(stripWrappers(tok[:idx]), stripWrappers(tok[idx+1:]))
	if !ok {
		return models.ParsedToken{}, 0, Drop
	}
	return p, 0, Accept
}

// colonSuffixRule: "temp: 25".
type colonSuffixRule struct{}

func (colonSuffixRule) Name() string { return "colon_suffix" }

func (colonSuffixRule) Apply(tokens []string, i int) (models.ParsedToken, int, Outcome) {
	tok := tokens[i]
	if !strings.HasSuffix(tok, ":") || i+1 >= len(tokens) {
		return models.ParsedToken{}, 0, Pass
	}
	p, ok := pair(stripWrappers(strings.TrimSuffix(tok, ":")), stripWrappers(tokens[i+1]))
	if !ok {
		return models.ParsedToken{}, 0, Pass
	}
	return p, 1, Accept
}

// colonStandaloneRule: "temp : 25".
type colonStandaloneRule struct{}

func (colonStandaloneRule) Name() string { return "colon_standalone" }

func (colonStandaloneRule) Apply(tokens []string, i int) (models.ParsedToken, int, Outcome) {
	if i+2 >= len(tokens) || tokens[i+1] != ":" || strings.Contains(tokens[i], ":") {
		return models.ParsedToken{}, 0, Pass
	}
	p, ok := pair(stripWrappers(tokens[i]), stripWrappers(tokens[i+2]))
	if !ok {
		return models.ParsedToken{}, 0, Pass
	}
	return p, 2, Accept
}

// implicitPairRule: "temp 25". The key itself must not be numeric, so
// "123 456" stays two bare values.
type implicitPairRule struct{}

func (implicitPairRule) Name() string { return "implicit_pair" }

func (implicitPairRule) Apply(tokens []string, i int) (models.ParsedToken, int, Outcome) {
	if i+1 >= len(tokens) || strings.Contains(tokens[i], ":") {
		return models.ParsedToken{}, 0, Pass
	}
	key := stripWrappers(tokens[i])
	if IsNumeric(key) {
		return models.ParsedToken{}, 0, Pass
	}
	p, ok := pair(key, stripWrappers(tokens[i+1]))
	if !ok {
		return models.ParsedToken{}, 0, Pass
	}
	return p, 1, Accept
}

// HeuristicTokenizer walks the fields of a line and applies a RuleSet at
// each position.
type HeuristicTokenizer struct {
	rules  *RuleSet
	intern *StringIntern
}

// NewHeuristicTokenizer creates a tokenizer over rules. A nil interner
// disables name interning.
func NewHeuristicTokenizer(rules *RuleSet, intern *StringIntern) *HeuristicTokenizer {
	if rules == nil {
		rules = DefaultRules()
	}
	return &HeuristicTokenizer{rules: rules, intern: intern}
}

func (t *HeuristicTokenizer) Name() string { return ModeHeuristic }

func (t *HeuristicTokenizer) Tokenize(line string) []models.ParsedToken {
	fields := splitFields(line)
	if len(fields) == 0 {
		return nil
	}

	var out []models.ParsedToken
	for i := 0; i < len(fields); {
		step := 1
		for _, r := range t.rules.rules {
			tok, consumed, outcome := r.Apply(fields, i)
			if outcome == Pass {
				continue
			}
			if outcome == Accept {
				if t.intern != nil {
					tok.Name = t.intern.Intern(tok.Name)
				}
				out = append(out, tok)
				step += consumed
			}
			break
		}
		i += step
	}
	return out
}

// BareValues returns the values of a line whose fields are all numeric,
// in column order. ok is false if any field is not a number.
func BareValues(line string) ([]float64, bool) {
	fields := splitFields(line)
	if len(fields) == 0 {
		return nil, false
	}
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, ok := ParseNumber(stripWrappers(f))
		if !ok {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}
