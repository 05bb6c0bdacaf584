package corroborate

import (
	"context"
	"sort"

	"github.com/ballotwatch/ballotwatch/internal/model"
)

// Client corroborates a claim against one unreliable external source.
// Implementations must honor the context deadline and must return an
// error rather than fabricate a verdict when the source is unreachable:
// the orchestrator interprets an error as "layer did not execute" and
// records a warning instead of a validation failure.
type Client interface {
	// Layer identifies which validation layer this client serves.
	Layer() model.Layer

	// SourceID names the source for provenance records.
	SourceID() string

	// Corroborate checks the claim against the external source.
	Corroborate(ctx context.Context, claim model.Claim) (model.LayerVerdict, error)
}

// Registry holds the corroboration clients injected at orchestrator
// construction, one per layer. Fake clients slot in the same way for
// deterministic tests with no network.
type Registry struct {
	clients map[model.Layer]Client
}

// NewRegistry builds a registry from the given clients. Nil clients are
// skipped, so a source with missing credentials simply leaves its layer
// disabled.
func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[model.Layer]Client)}
	for _, c := range clients {
		if c != nil {
			r.clients[c.Layer()] = c
		}
	}
	return r
}

// Get returns the client registered for a layer, if any.
func (r *Registry) Get(layer model.Layer) (Client, bool) {
	c, ok := r.clients[layer]
	return c, ok
}

// Layers returns the registered layers in ascending order.
func (r *Registry) Layers() []model.Layer {
	layers := make([]model.Layer, 0, len(r.clients))
	for l := range r.clients {
		layers = append(layers, l)
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i] < layers[j] })
	return layers
}
