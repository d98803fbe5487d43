package security

import (
	"log/slog"
	"sort"
	"sync"
)

// Blocklist is the set of identities barred from making requests.
//
// An identity lands here when one of its requests produces a critical
// finding, and it stays blocked for the lifetime of the process. There is
// no expiry; removal is an explicit administrative action via Unblock.
type Blocklist struct {
	mu      sync.RWMutex
	blocked map[string]struct{}
	logger  *slog.Logger
}

// NewBlocklist creates an empty blocklist.
func NewBlocklist(logger *slog.Logger) *Blocklist {
	if logger == nil {
		logger = slog.Default()
	}
	return &Blocklist{
		blocked: make(map[string]struct{}),
		logger:  logger,
	}
}

// Block adds the identity. Blocking an already blocked identity is a no-op.
func (b *Blocklist) Block(identity string) {
	b.mu.Lock()
	_, already := b.blocked[identity]
	if !already {
		b.blocked[identity] = struct{}{}
	}
	b.mu.Unlock()

	if !already {
		b.logger.Warn("Identity blocked", "identity", identity)
	}
}

// Unblock removes the identity, reporting whether it was blocked.
func (b *Blocklist) Unblock(identity string) bool {
	b.mu.Lock()
	_, ok := b.blocked[identity]
	delete(b.blocked, identity)
	b.mu.Unlock()

	if ok {
		b.logger.Info("Identity unblocked", "identity", identity)
	}
	return ok
}

// Contains reports whether the identity is blocked.
func (b *Blocklist) Contains(identity string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.blocked[identity]
	return ok
}

// Len returns the number of blocked identities.
func (b *Blocklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.blocked)
}

// Identities returns the blocked identities in sorted order.
func (b *Blocklist) Identities() []string {
	b.mu.RLock()
	ids := make([]string, 0, len(b.blocked))
	for id := range b.blocked {
		ids = append(ids, id)
	}
	b.mu.RUnlock()

	sort.Strings(ids)
	return ids
}
