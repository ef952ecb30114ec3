// Package session decides when a conversation has gone stale enough that
// the user should confirm starting over before their message is routed.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultStaleAfter is how long a conversation may sit idle before a new
// plain-text message triggers the new-session prompt.
const DefaultStaleAfter = 3600 * time.Second

// Recency is the slice of the conversation store the policy needs.
type Recency interface {
	Exists(ctx context.Context, key string) (bool, error)
	LastModified(ctx context.Context, key string) time.Time
}

// Policy gates the plain-text entry path. Voice, image, and command paths
// bypass it entirely. Pending texts are stashed in memory only; a restart
// drops them, which matches the one-shot confirmation UX.
type Policy struct {
	recency    Recency
	staleAfter time.Duration
	now        func() time.Time

	mu      sync.Mutex
	pending map[string]string
}

func NewPolicy(recency Recency, staleAfter time.Duration) *Policy {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Policy{
		recency:    recency,
		staleAfter: staleAfter,
		now:        time.Now,
		pending:    map[string]string{},
	}
}

// ShouldPrompt reports whether the conversation for key is stale: it
// exists and its last write is strictly older than the threshold. A
// conversation idle for exactly the threshold is not stale.
func (p *Policy) ShouldPrompt(ctx context.Context, key string) bool {
	exists, err := p.recency.Exists(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("staleness check failed, routing without prompt")
		return false
	}
	if !exists {
		return false
	}
	last := p.recency.LastModified(ctx, key)
	if last.IsZero() {
		return false
	}
	return p.now().Sub(last) > p.staleAfter
}

// Stash parks the message text that triggered the prompt until the user
// answers. A second message before the answer replaces the first.
func (p *Policy) Stash(key, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[key] = text
}

// TakePending removes and returns the stashed text for key.
func (p *Policy) TakePending(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	text, ok := p.pending[key]
	delete(p.pending, key)
	return text, ok
}
