package models

// ParsedToken is a single name/value pair pulled out of a data line.
type ParsedToken struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// LineKind classifies a raw input line.
type LineKind string

const (
	LineKindEmpty   LineKind = "empty"
	LineKindIgnored LineKind = "ignored" // status text or a header-like line that is not a directive
	LineKindHeader  LineKind = "header"
	LineKindData    LineKind = "data"
)
