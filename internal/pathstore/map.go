package pathstore

import "runtime/debug"

// MapBackend keeps encoded k-mer paths in process memory, preserving
// first-insertion order so the deduplicated matrix comes back in DFS
// discovery order.
type MapBackend struct {
	seen  map[string]struct{}
	order []string
}

func NewMapBackend() *MapBackend {
	return &MapBackend{seen: map[string]struct{}{}}
}

func (m *MapBackend) Upsert(elem string) {
	if _, ok := m.seen[elem]; ok {
		return
	}
	m.seen[elem] = struct{}{}
	m.order = append(m.order, elem)
}

func (m *MapBackend) IterCallback(callback func(elem string)) {
	for _, k := range m.order {
		callback(k)
	}
}

func (m *MapBackend) Cleanup() {
	m.seen = nil
	m.order = nil
	// By default GC doesnot release buffered/allocated memory
	// since there always is possibilitly of needing it again/immediately
	// and releases memory in chunks
	// debug.FreeOSMemory forces GC to release allocated memory at once
	debug.FreeOSMemory()
}
