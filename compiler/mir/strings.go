package mir

import (
	"fmt"
	"sync"
)

// StringTable interns the module's string literals into emitted .data
// labels. It is append-only and safe to share across goroutines lowering
// different functions to machine IR concurrently; the mutex here is that
// synchronisation, not a substitute for the caller's own discipline
// about not touching a *Function from two goroutines.
type StringTable struct {
	mu     sync.Mutex
	byText map[string]string
	order  []string
}

func NewStringTable() *StringTable {
	return &StringTable{byText: map[string]string{}}
}

// Intern returns the stable __str<N> label for s, minting a fresh one on
// first use.
func (t *StringTable) Intern(s string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if label, ok := t.byText[s]; ok {
		return label
	}

	label := fmt.Sprintf("__str%d", len(t.order))
	t.byText[s] = label
	t.order = append(t.order, s)

	return label
}

// Entries returns the interned strings in label-assignment order.
func (t *StringTable) Entries() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}
