package kvstore

import (
	"sort"
	"sync"
)

// DefaultBufferCapacity is the default number of buffered writes before
// Memory flushes them into a new immutable sorted table.
const DefaultBufferCapacity = 4096

type entry struct {
	value []byte
	tomb  bool
}

// table is an immutable, sorted snapshot of the buffer at the time it was
// flushed. Tables are kept oldest-first in Memory.tables; the last
// element is the most recently flushed table.
type table struct {
	keys    [][]byte
	entries []entry
}

func (t *table) get(key []byte) (entry, bool) {
	i := sort.Search(len(t.keys), func(i int) bool { return string(t.keys[i]) >= string(key) })
	if i < len(t.keys) && string(t.keys[i]) == string(key) {
		return t.entries[i], true
	}
	return entry{}, false
}

// Memory implements Store entirely in process memory, following the
// buffer + immutable-table-stack design of spec.md section 4.1.
type Memory struct {
	mu          sync.RWMutex
	bufferCap   int
	buffer      map[string]entry
	tables      []*table
}

// NewMemory creates a Memory store with the given buffer capacity. A
// non-positive capacity falls back to DefaultBufferCapacity.
func NewMemory(bufferCap int) *Memory {
	if bufferCap <= 0 {
		bufferCap = DefaultBufferCapacity
	}
	return &Memory{
		bufferCap: bufferCap,
		buffer:    make(map[string]entry),
	}
}

func (m *Memory) Insert(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.buffer[string(key)] = entry{value: v}
	m.maybeFlushLocked()
	return nil
}

func (m *Memory) Remove(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer[string(key)] = entry{tomb: true}
	m.maybeFlushLocked()
	return nil
}

// maybeFlushLocked flushes the buffer into a new table at the top of the
// stack once it exceeds the configured capacity. Callers must hold m.mu.
func (m *Memory) maybeFlushLocked() {
	if len(m.buffer) <= m.bufferCap {
		return
	}
	m.flushLocked()
}

func (m *Memory) flushLocked() {
	if len(m.buffer) == 0 {
		return
	}
	keys := make([]string, 0, len(m.buffer))
	for k := range m.buffer {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := &table{
		keys:    make([][]byte, len(keys)),
		entries: make([]entry, len(keys)),
	}
	for i, k := range keys {
		t.keys[i] = []byte(k)
		t.entries[i] = m.buffer[k]
	}
	m.tables = append(m.tables, t)
	m.buffer = make(map[string]entry)
}

func (m *Memory) Get(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if e, ok := m.buffer[string(key)]; ok {
		if e.tomb {
			return nil, false, nil
		}
		return e.value, true, nil
	}
	for i := len(m.tables) - 1; i >= 0; i-- {
		if e, ok := m.tables[i].get(key); ok {
			if e.tomb {
				return nil, false, nil
			}
			return e.value, true, nil
		}
	}
	return nil, false, nil
}

func (m *Memory) Range(lo, hi []byte, fn func(key, value []byte) (bool, error)) error {
	m.mu.RLock()
	merged := m.mergeLocked()
	m.mu.RUnlock()

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		kb := []byte(k)
		if string(kb) < string(lo) {
			continue
		}
		if hi != nil && string(kb) >= string(hi) {
			continue
		}
		e := merged[k]
		if e.tomb {
			continue
		}
		cont, err := fn(kb, e.value)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// mergeLocked folds every table, oldest first, and the buffer last, into
// a single map where later writes shadow earlier ones. Callers must hold
// at least m.mu.RLock().
func (m *Memory) mergeLocked() map[string]entry {
	out := make(map[string]entry)
	for _, t := range m.tables {
		for i, k := range t.keys {
			out[string(k)] = t.entries[i]
		}
	}
	for k, e := range m.buffer {
		out[k] = e
	}
	return out
}

// Compact folds every table and the buffer into a single table, dropping
// tombstones, per spec.md section 4.1.
func (m *Memory) Compact() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := m.mergeLocked()
	keys := make([]string, 0, len(merged))
	for k, e := range merged {
		if e.tomb {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := &table{
		keys:    make([][]byte, len(keys)),
		entries: make([]entry, len(keys)),
	}
	for i, k := range keys {
		t.keys[i] = []byte(k)
		t.entries[i] = merged[k]
	}

	m.tables = []*table{t}
	m.buffer = make(map[string]entry)
	return nil
}

func (m *Memory) Len() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	merged := m.mergeLocked()
	var n int64
	for _, e := range merged {
		if !e.tomb {
			n++
		}
	}
	return n, nil
}

func (m *Memory) Close() error { return nil }
