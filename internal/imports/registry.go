package imports

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the importers by kind.
type Registry struct {
	mu        sync.RWMutex
	importers map[string]Importer
}

func NewRegistry() *Registry {
	return &Registry{importers: make(map[string]Importer)}
}

// Register adds an importer. It panics if the kind is already registered.
func (r *Registry) Register(imp Importer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kind := imp.Info().Kind
	if _, exists := r.importers[kind]; exists {
		panic(fmt.Sprintf("import kind already registered: %s", kind))
	}
	r.importers[kind] = imp
}

// Get returns the importer for a kind, or an error wrapping ErrUnknownKind.
func (r *Registry) Get(kind string) (Importer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	imp, ok := r.importers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return imp, nil
}

// All returns every importer, sorted by group then kind.
func (r *Registry) All() []Importer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Importer, 0, len(r.importers))
	for _, imp := range r.importers {
		result = append(result, imp)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Info(), result[j].Info()
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Kind < b.Kind
	})
	return result
}

// Kinds returns the info of every importer in All order.
func (r *Registry) Kinds() []KindInfo {
	all := r.All()
	infos := make([]KindInfo, len(all))
	for i, imp := range all {
		infos[i] = imp.Info()
	}
	return infos
}

// Len returns the number of registered kinds.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.importers)
}
