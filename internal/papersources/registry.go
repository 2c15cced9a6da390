package papersources

import (
	"sync"

	"github.com/helixir/scholar-search-service/internal/domain"
)

// Registry holds provider clients in registration order.
// Registration order is the merge order used by the search orchestrator,
// so callers register providers in the order their results should appear.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	index     map[domain.ProviderName]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[domain.ProviderName]int),
	}
}

// Register adds a provider to the registry.
// A provider with the same name replaces the existing one in place and keeps
// its position. This method is thread-safe.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.index[p.Name()]; ok {
		r.providers[i] = p
		return
	}
	r.index[p.Name()] = len(r.providers)
	r.providers = append(r.providers, p)
}

// All returns a snapshot of all registered providers in registration order.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Enabled returns the names of enabled providers in registration order.
func (r *Registry) Enabled() []domain.ProviderName {
	var names []domain.ProviderName
	for _, p := range r.All() {
		if p.IsEnabled() {
			names = append(names, p.Name())
		}
	}
	return names
}

// PaperSearchers returns the enabled paper-capable providers permitted by
// params, in registration order.
func (r *Registry) PaperSearchers(params domain.SearchParams) []PaperSearcher {
	var out []PaperSearcher
	for _, p := range r.All() {
		ps, ok := p.(PaperSearcher)
		if !ok || !p.IsEnabled() || !params.AllowsProvider(p.Name()) {
			continue
		}
		out = append(out, ps)
	}
	return out
}

// AuthorSearchers returns the enabled author-capable providers permitted by
// params, in registration order.
func (r *Registry) AuthorSearchers(params domain.SearchParams) []AuthorSearcher {
	var out []AuthorSearcher
	for _, p := range r.All() {
		as, ok := p.(AuthorSearcher)
		if !ok || !p.IsEnabled() || !params.AllowsProvider(p.Name()) {
			continue
		}
		out = append(out, as)
	}
	return out
}
