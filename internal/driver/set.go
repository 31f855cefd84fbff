package driver

import (
	"fmt"
	"sort"
	"sync"

	"github.com/clouddesk/tenantctl/internal/intent"
)

// Set holds the drivers available to one reconciliation run, keyed by
// resource type. Drivers are stateless; the set is safe for concurrent reads
// once populated.
type Set struct {
	mu      sync.RWMutex
	drivers map[intent.ResourceType]Driver
}

// NewSet returns an empty driver set.
func NewSet() *Set {
	return &Set{drivers: make(map[intent.ResourceType]Driver)}
}

// Register adds a driver for the given resource type. Registering the same
// type twice is a programming error and is rejected.
func (s *Set) Register(t intent.ResourceType, d Driver) error {
	if d == nil {
		return fmt.Errorf("driver for %s is nil", t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.drivers[t]; exists {
		return fmt.Errorf("driver for %s already registered", t)
	}
	s.drivers[t] = d
	return nil
}

// Get retrieves the driver for a resource type.
func (s *Set) Get(t intent.ResourceType) (Driver, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drivers[t]
	return d, ok
}

// Types lists the registered resource types in stable order.
func (s *Set) Types() []intent.ResourceType {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]intent.ResourceType, 0, len(s.drivers))
	for t := range s.drivers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
