package application

import (
	"sync"

	"github.com/ericfisherdev/repometa/internal/domain/port/driven"
)

// ClientProvider enables runtime hot-swap of the metadata client. It holds a
// mutex-protected reference to the current driven.MetadataClient so a token
// stored while the server runs takes effect without a restart.
type ClientProvider struct {
	mu     sync.RWMutex
	client driven.MetadataClient
}

// NewClientProvider creates a provider holding client. client may be nil.
func NewClientProvider(client driven.MetadataClient) *ClientProvider {
	return &ClientProvider{client: client}
}

// Get returns the current client, or nil if none has been set.
func (p *ClientProvider) Get() driven.MetadataClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Replace swaps the current client. The next caller of Get receives the new value.
func (p *ClientProvider) Replace(client driven.MetadataClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
}

// HasClient returns true if a non-nil client is currently held.
func (p *ClientProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}
