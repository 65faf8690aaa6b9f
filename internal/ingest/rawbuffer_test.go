package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineBuffer(t *testing.T) {
	b := newLineBuffer(3)
	assert.Empty(t, b.last(0))

	b.push("a")
	b.push("b")
	assert.Equal(t, []string{"a", "b"}, b.last(0))
	assert.Equal(t, []string{"b"}, b.last(1))

	b.push("c")
	b.push("d")
	b.push("e")
	assert.Equal(t, 3, b.len())
	assert.Equal(t, []string{"c", "d", "e"}, b.last(0))
	assert.Equal(t, []string{"d", "e"}, b.last(2))
	assert.Equal(t, []string{"c", "d", "e"}, b.last(10))

	b.clear()
	assert.Equal(t, 0, b.len())
	b.push("f")
	assert.Equal(t, []string{"f"}, b.last(0))
}

func TestLineBufferZeroCapacity(t *testing.T) {
	b := newLineBuffer(0)
	b.push("a")
	assert.Empty(t, b.last(0))
}
