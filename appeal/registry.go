package appeal

import "github.com/zephyrtronium/lacbot/syncmap"

// Registry holds finalized appeals until a moderator resolves them.
type Registry struct {
	m *syncmap.Map[string, *Appeal]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: syncmap.New[string, *Appeal]()}
}

// Store adds an appeal to the registry.
// If an appeal with the same ID exists, it is replaced.
func (r *Registry) Store(a *Appeal) {
	r.m.Store(a.ID, a)
}

// Resolve removes and returns the appeal with the given ID.
// Once an appeal is resolved, later calls with its ID return false,
// including calls that race with the first.
func (r *Registry) Resolve(id string) (*Appeal, bool) {
	return r.m.LoadAndDelete(id)
}

// Len returns the number of unresolved appeals.
func (r *Registry) Len() int {
	return r.m.Len()
}
