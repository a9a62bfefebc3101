// Package syncmap provides a generic map synchronized with a mutex.
package syncmap

import "sync"

// Map is a regular map but synchronized with a mutex.
// Every method is a single critical section, so a caller that needs a read
// and a write to happen together should use [Map.LoadAndDelete] or
// [Map.Update] rather than composing Load with Store.
type Map[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]V
}

// New returns a new syncmap.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		m: make(map[K]V),
	}
}

// Load returns the value for a key.
func (m *Map[K, V]) Load(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[key]
	return v, ok
}

// Store sets the value for a key.
func (m *Map[K, V]) Store(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = value
}

// LoadAndDelete removes a key and returns the value it had, if any.
// Of any number of concurrent calls with the same key, at most one observes
// the value.
func (m *Map[K, V]) LoadAndDelete(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[key]
	if ok {
		delete(m.m, key)
	}
	return v, ok
}

// Update replaces the value for a key with the result of f.
// f receives the current value and whether it exists; if f returns false,
// the key is deleted instead. f runs with the map locked, so it must not
// call methods on m.
func (m *Map[K, V]) Update(key K, f func(old V, ok bool) (V, bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.m[key]
	v, keep := f(old, ok)
	if !keep {
		delete(m.m, key)
		return
	}
	m.m[key] = v
}

// Len returns the number of elements in the map.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.m)
}
