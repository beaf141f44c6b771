package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/session"
)

// BackendFactory returns the session record storage for a console id.
type BackendFactory func(id string) session.Backend

type registryEntry struct {
	console  *Console
	lastSeen time.Time
}

// Registry keeps one Console per browser session id for the BFF.
type Registry struct {
	mu       sync.Mutex
	consoles map[string]*registryEntry
	backends BackendFactory
	deps     ConsoleDependencies
	idle     time.Duration
	now      func() time.Time
}

// NewRegistry builds an empty registry. Consoles unused for idle are swept;
// idle <= 0 keeps them forever.
func NewRegistry(deps ConsoleDependencies, backends BackendFactory, idle time.Duration) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Registry{
		consoles: make(map[string]*registryEntry),
		backends: backends,
		deps:     deps,
		idle:     idle,
		now:      time.Now,
	}
}

// Create opens a console under a fresh id.
func (r *Registry) Create(ctx context.Context) *Console {
	return r.Get(ctx, uuid.NewString())
}

// Get returns the console for id, restoring it from its backend on first use.
func (r *Registry) Get(ctx context.Context, id string) *Console {
	r.mu.Lock()
	if entry, ok := r.consoles[id]; ok {
		entry.lastSeen = r.now()
		r.mu.Unlock()
		return entry.console
	}
	r.mu.Unlock()

	console := NewConsole(ctx, id, r.backends(id), r.deps)

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.consoles[id]; ok {
		entry.lastSeen = r.now()
		return entry.console
	}
	r.consoles[id] = &registryEntry{console: console, lastSeen: r.now()}
	return console
}

// Resume returns the console for an id the server issued: one that is still
// open, or one whose backend holds a live login. Any other id is refused so
// a client cannot choose its own session id.
func (r *Registry) Resume(ctx context.Context, id string) (*Console, bool) {
	if id == "" {
		return nil, false
	}
	if console, ok := r.Lookup(id); ok {
		return console, true
	}
	console := NewConsole(ctx, id, r.backends(id), r.deps)
	if !console.Session.IsAuthenticated() {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.consoles[id]; ok {
		entry.lastSeen = r.now()
		return entry.console, true
	}
	r.consoles[id] = &registryEntry{console: console, lastSeen: r.now()}
	return console, true
}

// Lookup returns an already-open console without creating one.
func (r *Registry) Lookup(id string) (*Console, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.consoles[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = r.now()
	return entry.console, true
}

// Drop forgets the console for id. The persisted session is untouched.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.consoles, id)
}

// Len is the number of open consoles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.consoles)
}

// Sweep drops consoles idle for longer than the configured window and
// reports how many were removed.
func (r *Registry) Sweep() int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, entry := range r.consoles {
		if entry.lastSeen.Before(cutoff) {
			delete(r.consoles, id)
			removed++
		}
	}
	if removed > 0 {
		r.deps.Logger.Info("swept idle consoles", zap.Int("removed", removed), zap.Int("open", len(r.consoles)))
	}
	return removed
}
