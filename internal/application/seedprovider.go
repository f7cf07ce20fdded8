package application

import (
	"sync"

	"github.com/cnecrea/hidropanel/internal/domain/model"
)

// SeedProvider enables runtime hot-swap of the credential seed. It holds a
// mutex-protected copy of the current username/password pair, allowing
// credential updates to take effect without restarting the application.
type SeedProvider struct {
	mu   sync.RWMutex
	seed model.Seed
}

// NewSeedProvider creates a new provider with the given initial seed. The
// seed may be incomplete if no credentials are available at startup.
func NewSeedProvider(seed model.Seed) *SeedProvider {
	return &SeedProvider{seed: seed}
}

// Get returns the current seed.
func (p *SeedProvider) Get() model.Seed {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.seed
}

// Replace swaps the current seed. This is used when credentials are updated
// over the API; the next login uses the new pair.
func (p *SeedProvider) Replace(seed model.Seed) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seed = seed
}

// HasSeed returns true if a complete credential pair is currently held.
func (p *SeedProvider) HasSeed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.seed.IsComplete()
}
