package parser

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestStringIntern(t *testing.T) {
	si := NewStringIntern()

	s1 := si.Intern("hello")
	s2 := si.Intern("hello")
	assert.True(t, unsafe.StringData(s1) == unsafe.StringData(s2), "expected same backing data for interned strings")

	si.Intern("world")
	assert.Equal(t, 2, si.Len())

	si.Clear()
	assert.Equal(t, 0, si.Len())
}

func TestStringInternDetachesFromLine(t *testing.T) {
	si := NewStringIntern()
	line := "temperature:25"
	name := si.Intern(line[:11])
	assert.Equal(t, "temperature", name)
	assert.False(t, unsafe.StringData(line) == unsafe.StringData(name))
}

func TestStringInternPoolLimit(t *testing.T) {
	si := NewStringIntern()
	for i := 0; i < MaxInternPoolSize+10; i++ {
		si.Intern(fmt.Sprintf("name%d", i))
	}
	assert.Equal(t, MaxInternPoolSize, si.Len())
	assert.Equal(t, "overflow", si.Intern("overflow"))
}

func TestGlobalIntern(t *testing.T) {
	ResetGlobalIntern()

	s1 := GetGlobalIntern().Intern("global-test")
	s2 := GetGlobalIntern().Intern("global-test")
	assert.True(t, unsafe.StringData(s1) == unsafe.StringData(s2))
}

func BenchmarkStringIntern(b *testing.B) {
	si := NewStringIntern()
	names := []string{"temp", "humidity", "pressure", "sin1", "sin2", "sin3"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		si.Intern(names[i%len(names)])
	}
}

func BenchmarkTokenize(b *testing.B) {
	line := "[12:34:56.789] {temp: 25.1, humidity: 60.2, pressure: 1013.25}"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Tokenize(line)
	}
}
