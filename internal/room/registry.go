package room

import (
	"sync"

	"github.com/google/uuid"
)

// Registry - process-wide map from room id to the handle used to submit commands.
// The creator inserts before the actor starts; the actor removes itself right before it exits.
type Registry struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]*Handle
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[uuid.UUID]*Handle),
	}
}

func (that *Registry) Insert(id uuid.UUID, handle *Handle) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.rooms[id] = handle
}

func (that *Registry) Lookup(id uuid.UUID) (*Handle, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	handle, ok := that.rooms[id]
	return handle, ok
}

func (that *Registry) Remove(id uuid.UUID) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.rooms, id)
}

func (that *Registry) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.rooms)
}
