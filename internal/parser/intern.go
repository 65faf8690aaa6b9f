package parser

import (
	"strings"
	"sync"
)

// StringIntern provides thread-safe interning of variable names.
// Names pulled out of a line are substrings of that line; interning stores a
// private copy on first sight so long-lived registries do not keep whole raw
// lines reachable, and repeated names share one allocation.
type StringIntern struct {
	mu   sync.RWMutex
	pool map[string]string
}

// NewStringIntern creates a new string interner.
func NewStringIntern() *StringIntern {
	return &StringIntern{
		pool: make(map[string]string, 256),
	}
}

// MaxInternPoolSize limits the pool. Streams that invent a new name on every
// line stop being interned after this many names.
const MaxInternPoolSize = 65536

// Intern returns the canonical copy of s.
// Once the pool is full, unseen names are cloned but not stored.
func (si *StringIntern) Intern(s string) string {
	si.mu.RLock()
	if pooled, ok := si.pool[s]; ok {
		si.mu.RUnlock()
		return pooled
	}
	full := len(si.pool) >= MaxInternPoolSize
	si.mu.RUnlock()

	if full {
		return strings.Clone(s)
	}

	si.mu.Lock()
	defer si.mu.Unlock()
	if pooled, ok := si.pool[s]; ok {
		return pooled
	}
	if len(si.pool) >= MaxInternPoolSize {
		return strings.Clone(s)
	}
	c := strings.Clone(s)
	si.pool[c] = c
	return c
}

// Len returns the number of unique names in the pool.
func (si *StringIntern) Len() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.pool)
}

// Clear removes all interned names.
func (si *StringIntern) Clear() {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.pool = make(map[string]string, 256)
}

// Global intern pool shared by the registered tokenizers.
var globalIntern = NewStringIntern()

// GetGlobalIntern returns the global string interner.
func GetGlobalIntern() *StringIntern {
	return globalIntern
}

// ResetGlobalIntern clears the global intern pool.
func ResetGlobalIntern() {
	globalIntern.Clear()
}
