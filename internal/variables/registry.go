// Package variables keeps the ordered set of variables seen in a session.
package variables

import (
	"errors"
	"fmt"
	"strings"

	"github.com/serial-plotter/backend/internal/models"
	"github.com/serial-plotter/backend/internal/palette"
)

var (
	ErrUnknownVariable = errors.New("unknown variable")
	ErrEmptyName       = errors.New("variable name is empty")
)

// Registry is an insertion ordered map of variables. Positional naming
// depends on the order, so it is kept explicitly rather than derived from a
// map. Not safe for concurrent use; the owning pipeline serialises access.
type Registry struct {
	order      []*models.Variable
	byName     map[string]*models.Variable
	nextIndex  int
	autoUpdate bool
}

// New creates an empty registry with auto variable update enabled.
func New() *Registry {
	return &Registry{
		byName:     make(map[string]*models.Variable),
		autoUpdate: true,
	}
}

// AutoUpdate reports whether unseen names may create variables.
func (r *Registry) AutoUpdate() bool {
	return r.autoUpdate
}

// SetAutoUpdate toggles the auto variable update gate.
func (r *Registry) SetAutoUpdate(enabled bool) {
	r.autoUpdate = enabled
}

// Ensure returns the variable for name, creating it at the end of the order
// when the auto update gate is open. colorHint picks the palette entry for
// a new variable. ok is false when the name is unknown and the gate is
// closed (or the name is empty).
func (r *Registry) Ensure(name string, colorHint int) (v models.Variable, created bool, ok bool) {
	if existing, found := r.byName[name]; found {
		return *existing, false, true
	}
	if name == "" || !r.autoUpdate {
		return models.Variable{}, false, false
	}
	nv := r.insert(name, palette.Color(colorHint), "")
	return *nv, true, true
}

// NextIndex is the insertion index the next new variable will receive.
func (r *Registry) NextIndex() int {
	return r.nextIndex
}

func (r *Registry) insert(name, color, displayName string) *models.Variable {
	if displayName == "" {
		displayName = name
	}
	v := &models.Variable{
		Name:           name,
		DisplayName:    displayName,
		Color:          color,
		InsertionIndex: r.nextIndex,
	}
	r.nextIndex++
	r.order = append(r.order, v)
	r.byName[name] = v
	return v
}

// Replace drops every variable and declares entries in order, starting
// again at insertion index 0. Header directives and presets use it.
func (r *Registry) Replace(entries []models.HeaderEntry) {
	r.Reset()
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		if _, dup := r.byName[e.Name]; dup {
			continue
		}
		color := e.Color
		if color == "" {
			color = palette.Color(r.nextIndex)
		}
		r.insert(e.Name, color, e.DisplayName)
	}
}

// Get returns a copy of the named variable.
func (r *Registry) Get(name string) (models.Variable, bool) {
	v, ok := r.byName[name]
	if !ok {
		return models.Variable{}, false
	}
	return *v, true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Len returns the number of variables.
func (r *Registry) Len() int {
	return len(r.order)
}

// NameAt returns the name of the i-th variable in current order.
func (r *Registry) NameAt(i int) (string, bool) {
	if i < 0 || i >= len(r.order) {
		return "", false
	}
	return r.order[i].Name, true
}

// List returns copies of all variables in insertion order.
func (r *Registry) List() []models.Variable {
	out := make([]models.Variable, len(r.order))
	for i, v := range r.order {
		out[i] = *v
	}
	return out
}

// Names returns the variable names in insertion order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	for i, v := range r.order {
		out[i] = v.Name
	}
	return out
}

// Rename sets the display name. An empty display name restores the name.
func (r *Registry) Rename(name, displayName string) error {
	v, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("rename %q: %w", name, ErrUnknownVariable)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = v.Name
	}
	v.DisplayName = displayName
	return nil
}

// Recolor sets the colour. rgb()/rgba() specs are normalised; a malformed or
// empty spec keeps the current colour.
func (r *Registry) Recolor(name, color string) error {
	v, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("recolor %q: %w", name, ErrUnknownVariable)
	}
	v.Color = palette.Normalize(color, v.Color)
	return nil
}

// Remove deletes a variable. Remaining variables keep their insertion index.
func (r *Registry) Remove(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, ok := r.byName[name]; !ok {
		return fmt.Errorf("remove %q: %w", name, ErrUnknownVariable)
	}
	delete(r.byName, name)
	for i, v := range r.order {
		if v.Name == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Reset removes every variable and restarts insertion indices at 0.
// The auto update gate is left as is.
func (r *Registry) Reset() {
	r.order = nil
	r.byName = make(map[string]*models.Variable)
	r.nextIndex = 0
}
