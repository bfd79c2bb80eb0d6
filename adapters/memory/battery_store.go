package memory

import (
	"context"
	"fmt"
	"sync"

	"goelicit/domain/core"
	"goelicit/domain/design"
)

// DefaultCapacity bounds how many batteries a store retains
const DefaultCapacity = 256

// BatteryStore implements ports.BatteryStore in process memory. Once capacity
// is reached the oldest battery is evicted.
type BatteryStore struct {
	mu       sync.RWMutex
	capacity int
	order    []core.BatteryID
	items    map[core.BatteryID]*design.Battery
}

// NewBatteryStore creates a store holding at most capacity batteries
func NewBatteryStore(capacity int) *BatteryStore {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &BatteryStore{
		capacity: capacity,
		items:    make(map[core.BatteryID]*design.Battery),
	}
}

// Save stores a battery; saving an existing ID replaces it in place
func (s *BatteryStore) Save(ctx context.Context, battery *design.Battery) error {
	if battery == nil || battery.ID.String() == "" {
		return core.NewArgumentError("battery", "missing ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[battery.ID]; !exists {
		if len(s.order) == s.capacity {
			delete(s.items, s.order[0])
			s.order = s.order[1:]
		}
		s.order = append(s.order, battery.ID)
	}
	s.items[battery.ID] = battery
	return nil
}

// Get returns a stored battery
func (s *BatteryStore) Get(ctx context.Context, id core.BatteryID) (*design.Battery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.items[id]
	if !ok {
		return nil, core.NewNotFoundError("battery", id.String())
	}
	return b, nil
}

// List returns stored IDs, oldest first
func (s *BatteryStore) List(ctx context.Context) ([]core.BatteryID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.BatteryID(nil), s.order...), nil
}

// Len reports the number of stored batteries
func (s *BatteryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *BatteryStore) String() string {
	return fmt.Sprintf("memory.BatteryStore(%d/%d)", s.Len(), s.capacity)
}
