package shipper

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages registered rate providers.
type Registry struct {
	providers map[string]RateProvider
	mu        sync.RWMutex
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]RateProvider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p RateProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (RateProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
}

// All returns all registered providers sorted by name.
func (r *Registry) All() []RateProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]RateProvider, 0, len(r.providers))
	for _, p := range r.providers {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Names returns the names of all registered providers.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name()
	}
	return names
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// GetAllRates fetches rates from all registered providers in parallel.
// Rates are returned in provider name order so repeated calls are stable.
// Errors from individual providers don't fail the entire request.
func (r *Registry) GetAllRates(ctx context.Context, req *RateRequest) ([]RateQuote, []error) {
	providers := r.All()
	if len(providers) == 0 {
		return nil, []error{ErrProviderNotFound}
	}

	perProvider := make([][]RateQuote, len(providers))
	perErr := make([]error, len(providers))

	g, ctx := errgroup.WithContext(ctx)

	for i, p := range providers {
		g.Go(func() error {
			rates, err := p.GetRates(ctx, req)
			if err != nil {
				perErr[i] = fmt.Errorf("%s: %w", p.Name(), err)
				return nil // Don't fail the group, continue with other providers
			}
			perProvider[i] = rates
			return nil
		})
	}

	_ = g.Wait()

	var rates []RateQuote
	var errs []error
	for i := range providers {
		if perErr[i] != nil {
			errs = append(errs, perErr[i])
			continue
		}
		rates = append(rates, perProvider[i]...)
	}
	return rates, errs
}
