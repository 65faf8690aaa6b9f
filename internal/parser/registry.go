package parser

import (
	"fmt"
	"strings"
)

// Parse modes. The mode name is the tokenizer name.
const (
	ModeHeuristic = "heuristic"
	ModeStrict    = "strict"
)

// Registry holds the available tokenizers by parse mode.
type Registry struct {
	tokenizers []Tokenizer
}

// Global registry instance
var globalRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		tokenizers: []Tokenizer{
			NewHeuristicTokenizer(DefaultRules(), GetGlobalIntern()),
			NewStrictTokenizer(GetGlobalIntern()),
		},
	}
}

// GetGlobalRegistry returns the singleton registry.
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// Register adds a tokenizer to the registry.
func (r *Registry) Register(t Tokenizer) {
	r.tokenizers = append(r.tokenizers, t)
}

// Default returns the first registered tokenizer.
func (r *Registry) Default() Tokenizer {
	return r.tokenizers[0]
}

// GetTokenizerByName returns a tokenizer by mode name. An empty name
// selects the default.
func (r *Registry) GetTokenizerByName(name string) (Tokenizer, error) {
	if name == "" {
		return r.Default(), nil
	}
	name = strings.ToLower(name)
	for _, t := range r.tokenizers {
		if strings.ToLower(t.Name()) == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("parse mode not found: %s", name)
}

// Names lists the registered parse modes.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tokenizers))
	for _, t := range r.tokenizers {
		names = append(names, t.Name())
	}
	return names
}
