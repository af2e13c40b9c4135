package container

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ── Containers ────────────────────────────────────────────────────────────────

// Containers tracks containers in creation order. Pass it to New through
// WithContainers; it is safe for concurrent use.
type Containers struct {
	mu   sync.RWMutex
	list []*Container
}

// NewContainers returns an empty set.
func NewContainers() *Containers {
	return &Containers{}
}

// Track appends c. Tracking the same container twice is a no-op.
func (s *Containers) Track(c *Container) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.list {
		if existing == c {
			return
		}
	}
	s.list = append(s.list, c)
}

// Len returns the number of tracked containers.
func (s *Containers) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.list)
}

// First returns the earliest tracked container.
func (s *Containers) First() (*Container, error) {
	return s.Nth(1)
}

// Latest returns the most recently tracked container.
func (s *Containers) Latest() (*Container, error) {
	return s.Nth(s.Len())
}

// Nth returns the n-th tracked container, counting from 1.
func (s *Containers) Nth(n int) (*Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n < 1 || n > len(s.list) {
		return nil, errors.Wrapf(ErrOutOfRange, "container %d of %d", n, len(s.list))
	}
	return s.list[n-1], nil
}

// ByID returns the tracked container with the given id.
func (s *Containers) ByID(id uuid.UUID) (*Container, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.list {
		if c.id == id {
			return c, true
		}
	}
	return nil, false
}

// All returns a copy of the tracked containers in creation order.
func (s *Containers) All() []*Container {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Container, len(s.list))
	copy(out, s.list)
	return out
}
