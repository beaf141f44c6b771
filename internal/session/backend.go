package session

import (
	"context"
	"errors"
	"sync"

	"github.com/spec-kit/helpdesk-console/internal/domain"
)

// ErrMalformed marks a persisted record that could not be decoded. The store
// treats it as logged out.
var ErrMalformed = errors.New("malformed session record")

// Backend persists the single session record as an opaque blob.
// Load returns (nil, nil) when nothing is stored.
type Backend interface {
	Load(ctx context.Context) (*domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
	Delete(ctx context.Context) error
}

// MemoryBackend keeps the record for the lifetime of the process.
type MemoryBackend struct {
	mu     sync.Mutex
	record *domain.Session
}

// NewMemoryBackend returns an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(context.Context) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record == nil {
		return nil, nil
	}
	copied := *m.record
	return &copied, nil
}

func (m *MemoryBackend) Save(_ context.Context, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = &session
	return nil
}

func (m *MemoryBackend) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = nil
	return nil
}
