package chain

// Names of the chains the proxy consults at the different stages of a
// query's life. Each is an independent instance; there are no cross-chain
// invariants.
const (
	QueryChain                 = "query"
	ResponseChain              = "response"
	CacheHitResponseChain      = "cache-hit-response"
	CacheInsertedResponseChain = "cache-inserted-response"
	SelfAnsweredResponseChain  = "self-answered-response"
)

// Registry holds the named chains of one proxy instance. The chain set is
// fixed at construction; only chain contents change at runtime.
type Registry struct {
	chains map[string]*Chain
	names  []string
}

func NewRegistry() *Registry {
	names := []string{
		QueryChain,
		ResponseChain,
		CacheHitResponseChain,
		CacheInsertedResponseChain,
		SelfAnsweredResponseChain,
	}
	chains := make(map[string]*Chain, len(names))
	for _, name := range names {
		chains[name] = New(name)
	}
	return &Registry{chains: chains, names: names}
}

// Chain looks up a chain by name.
func (r *Registry) Chain(name string) (*Chain, bool) {
	c, ok := r.chains[name]
	return c, ok
}

// Query returns the main query chain.
func (r *Registry) Query() *Chain {
	return r.chains[QueryChain]
}

// Names returns the chain names in their fixed evaluation-stage order.
func (r *Registry) Names() []string {
	return r.names
}
