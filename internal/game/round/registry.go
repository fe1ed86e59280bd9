package round

import "sync"

type tokenKind int

const (
	kindChoice tokenKind = iota
	kindRestart
)

// binding routes a token to its round. Timers never live here.
type binding struct {
	round *Round
	kind  tokenKind
	slot  int
}

// registry maps live tokens to their rounds.
// It provides a thread-safe way to resolve a button press to a round.
type registry struct {
	tokens map[string]binding
	mu     sync.RWMutex
}

// newRegistry creates an empty token registry.
func newRegistry() *registry {
	return &registry{
		tokens: make(map[string]binding),
	}
}

// Register binds a token. An existing binding for the same token is replaced.
func (r *registry) Register(token string, b binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = b
}

// Get looks up a token.
func (r *registry) Get(token string) (binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.tokens[token]
	return b, ok
}

// Unregister removes a token.
// Returns true if the token was found and removed, false otherwise.
func (r *registry) Unregister(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[token]; ok {
		delete(r.tokens, token)
		return true
	}
	return false
}

// Count returns the number of live tokens.
func (r *registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}

// Rounds returns every round that still has a live token, once each.
func (r *registry) Rounds() []*Round {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[*Round]struct{})
	rounds := make([]*Round, 0)
	for _, b := range r.tokens {
		if _, ok := seen[b.round]; ok {
			continue
		}
		seen[b.round] = struct{}{}
		rounds = append(rounds, b.round)
	}
	return rounds
}
