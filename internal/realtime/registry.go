package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Registry maps a user to the single connection that receives their pushes.
type Registry interface {
	// Register привязывает соединение к пользователю; последняя запись
	// побеждает.
	Register(ctx context.Context, userID uuid.UUID, connID string) error
	// Unregister снимает привязку, только если пользователь всё ещё связан
	// именно с этим соединением.
	Unregister(ctx context.Context, connID string) error
	Resolve(ctx context.Context, userID uuid.UUID) (string, bool, error)
	// Refresh продлевает присутствие живого соединения.
	Refresh(ctx context.Context, userID uuid.UUID, connID string) error
	Clear(ctx context.Context) error
}

type MemoryRegistry struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]string
	byConn map[string]uuid.UUID
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byUser: make(map[uuid.UUID]string),
		byConn: make(map[string]uuid.UUID),
	}
}

func (r *MemoryRegistry) Register(_ context.Context, userID uuid.UUID, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byUser[userID] = connID
	r.byConn[connID] = userID

	return nil
}

func (r *MemoryRegistry) Unregister(_ context.Context, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[connID]
	if !ok {
		return nil
	}

	delete(r.byConn, connID)

	if r.byUser[userID] == connID {
		delete(r.byUser, userID)
	}

	return nil
}

func (r *MemoryRegistry) Resolve(_ context.Context, userID uuid.UUID) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connID, ok := r.byUser[userID]

	return connID, ok, nil
}

// Refresh is a no-op: memory entries live until Unregister or Clear.
func (r *MemoryRegistry) Refresh(context.Context, uuid.UUID, string) error {
	return nil
}

func (r *MemoryRegistry) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.byUser)
	clear(r.byConn)

	return nil
}
