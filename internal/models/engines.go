package models

import "strings"

// DefaultEngine is the engine selected when nothing else is configured.
const DefaultEngine = "default"

// DefaultEngines returns the built-in engine list.
func DefaultEngines() []string {
	return []string{
		DefaultEngine,
		"llama3-70b",
		"mixtral-8x7b",
		"gemma-7b",
	}
}

// EngineList is an ordered set of engine identifiers with a cursor,
// used by selectors that cycle through engines.
type EngineList struct {
	names  []string
	cursor int
}

// NewEngineList builds a list positioned on selected. Blank and duplicate
// names are dropped. An unknown selection is appended so it stays selectable.
func NewEngineList(names []string, selected string) *EngineList {
	l := &EngineList{}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		l.names = append(l.names, n)
	}
	if len(l.names) == 0 {
		l.names = []string{DefaultEngine}
	}
	if selected != "" && !seen[selected] {
		l.names = append(l.names, selected)
	}
	for i, n := range l.names {
		if n == selected {
			l.cursor = i
			break
		}
	}
	return l
}

// Value returns the currently selected engine.
func (l *EngineList) Value() string {
	return l.names[l.cursor]
}

// Names returns a copy of the engine names.
func (l *EngineList) Names() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Next moves the selection forward, wrapping around.
func (l *EngineList) Next() string {
	l.cursor = (l.cursor + 1) % len(l.names)
	return l.Value()
}

// Prev moves the selection backward, wrapping around.
func (l *EngineList) Prev() string {
	l.cursor--
	if l.cursor < 0 {
		l.cursor = len(l.names) - 1
	}
	return l.Value()
}

// Contains reports whether name is in the list.
func (l *EngineList) Contains(name string) bool {
	for _, n := range l.names {
		if n == name {
			return true
		}
	}
	return false
}
