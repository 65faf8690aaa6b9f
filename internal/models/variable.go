// Package models contains domain types for the serial data plotter.
package models

// Variable is one named numeric channel in a monitoring session.
type Variable struct {
	Name           string `json:"name" msgpack:"name"`
	DisplayName    string `json:"displayName" msgpack:"displayName"`
	Color          string `json:"color" msgpack:"color"`
	InsertionIndex int    `json:"insertionIndex" msgpack:"insertionIndex"`
}

// HeaderEntry is one declaration taken from a header directive or a preset.
// Color is already resolved (explicit colour or palette fallback).
type HeaderEntry struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	DisplayName string `json:"displayName,omitempty"`
}
