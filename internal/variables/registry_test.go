package variables

import (
	"testing"

	"github.com/serial-plotter/backend/internal/models"
	"github.com/serial-plotter/backend/internal/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCreatesInOrder(t *testing.T) {
	r := New()

	v, created, ok := r.Ensure("d", r.NextIndex())
	require.True(t, ok)
	assert.True(t, created)
	assert.Equal(t, models.Variable{Name: "d", DisplayName: "d", Color: palette.Color(0), InsertionIndex: 0}, v)

	r.Ensure("l", r.NextIndex())
	r.Ensure("p", r.NextIndex())

	v, created, ok = r.Ensure("l", 7)
	assert.True(t, ok)
	assert.False(t, created)
	assert.Equal(t, 1, v.InsertionIndex)
	assert.Equal(t, palette.Color(1), v.Color)

	assert.Equal(t, []string{"d", "l", "p"}, r.Names())
	assert.Equal(t, 3, r.Len())
}

func TestEnsureColorHintWraps(t *testing.T) {
	r := New()
	v, _, _ := r.Ensure("x", 13)
	assert.Equal(t, palette.Color(1), v.Color)
}

func TestEnsureGateClosed(t *testing.T) {
	r := New()
	r.Ensure("known", 0)
	r.SetAutoUpdate(false)
	assert.False(t, r.AutoUpdate())

	_, created, ok := r.Ensure("unknown", 1)
	assert.False(t, ok)
	assert.False(t, created)
	assert.False(t, r.Has("unknown"))

	v, _, ok := r.Ensure("known", 1)
	assert.True(t, ok)
	assert.Equal(t, "known", v.Name)
}

func TestEnsureEmptyName(t *testing.T) {
	r := New()
	_, _, ok := r.Ensure("", 0)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestReplace(t *testing.T) {
	r := New()
	r.Ensure("old", 0)
	r.Ensure("older", 1)

	r.Replace([]models.HeaderEntry{
		{Name: "a", Color: "red"},
		{Name: "b", Color: "#00ff00", DisplayName: "Bee"},
		{Name: "a", Color: "blue"},
		{Name: "c"},
	})

	assert.Equal(t, []models.Variable{
		{Name: "a", DisplayName: "a", Color: "red", InsertionIndex: 0},
		{Name: "b", DisplayName: "Bee", Color: "#00ff00", InsertionIndex: 1},
		{Name: "c", DisplayName: "c", Color: palette.Color(2), InsertionIndex: 2},
	}, r.List())
	assert.False(t, r.Has("old"))
}

func TestReplaceIsIdempotent(t *testing.T) {
	entries := []models.HeaderEntry{{Name: "a", Color: "red"}, {Name: "b", Color: "blue"}}
	r := New()
	r.Replace(entries)
	first := r.List()
	r.Replace(entries)
	assert.Equal(t, first, r.List())
}

func TestOverrides(t *testing.T) {
	r := New()
	r.Ensure("temp", 0)
	r.Ensure("hum", 1)

	require.NoError(t, r.Rename("temp", "  Temperature "))
	require.NoError(t, r.Recolor("temp", "rgb( 1, 2, 3 )"))
	v, _ := r.Get("temp")
	assert.Equal(t, "Temperature", v.DisplayName)
	assert.Equal(t, "rgb(1,2,3)", v.Color)
	assert.Equal(t, 0, v.InsertionIndex)

	require.NoError(t, r.Recolor("temp", "rgb(1)"))
	v, _ = r.Get("temp")
	assert.Equal(t, "rgb(1,2,3)", v.Color, "malformed colour keeps the current one")

	require.NoError(t, r.Rename("temp", ""))
	v, _ = r.Get("temp")
	assert.Equal(t, "temp", v.DisplayName)

	assert.ErrorIs(t, r.Rename("nope", "x"), ErrUnknownVariable)
	assert.ErrorIs(t, r.Recolor("nope", "red"), ErrUnknownVariable)
}

func TestRemoveKeepsInsertionIndices(t *testing.T) {
	r := New()
	for i, n := range []string{"a", "b", "c"} {
		r.Ensure(n, i)
	}
	require.NoError(t, r.Remove("b"))
	assert.ErrorIs(t, r.Remove("b"), ErrUnknownVariable)
	assert.ErrorIs(t, r.Remove(""), ErrEmptyName)

	vars := r.List()
	require.Len(t, vars, 2)
	assert.Equal(t, 0, vars[0].InsertionIndex)
	assert.Equal(t, 2, vars[1].InsertionIndex)

	name, ok := r.NameAt(1)
	assert.True(t, ok)
	assert.Equal(t, "c", name)
	_, ok = r.NameAt(2)
	assert.False(t, ok)

	v, _, _ := r.Ensure("d", r.NextIndex())
	assert.Equal(t, 3, v.InsertionIndex)
}

func TestReset(t *testing.T) {
	r := New()
	r.SetAutoUpdate(false)
	r.Replace([]models.HeaderEntry{{Name: "a", Color: "red"}})
	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.NextIndex())
	assert.False(t, r.AutoUpdate())
}

func TestListReturnsCopies(t *testing.T) {
	r := New()
	r.Ensure("a", 0)
	vars := r.List()
	vars[0].Color = "mutated"
	v, _ := r.Get("a")
	assert.Equal(t, palette.Color(0), v.Color)
}
