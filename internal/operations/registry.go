package operations

import (
	"fmt"
	"sync"
)

// Registry manages the registered pipeline stages
type Registry struct {
	mu     sync.RWMutex
	stages map[string]Step
	order  []string // registration order
}

// NewRegistry creates an empty stage registry
func NewRegistry() *Registry {
	return &Registry{
		stages: make(map[string]Step),
	}
}

// Register adds a stage to the registry
func (r *Registry) Register(s Step) error {
	if s == nil {
		return fmt.Errorf("cannot register nil stage")
	}
	id := s.ID()
	if id == "" {
		return fmt.Errorf("stage ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stages[id]; exists {
		return fmt.Errorf("stage with ID %s already registered", id)
	}
	r.stages[id] = s
	r.order = append(r.order, id)
	return nil
}

// Get retrieves a stage by ID
func (r *Registry) Get(id string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.stages[id]
	if !exists {
		return nil, fmt.Errorf("stage with ID %s not found", id)
	}
	return s, nil
}

// Has checks if a stage is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.stages[id]
	return exists
}

// List returns all registered stages in registration order
func (r *Registry) List() []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Step, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.stages[id])
	}
	return out
}

// ListIDs returns all registered stage IDs in registration order
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Count returns the number of registered stages
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stages)
}

// GetDependencyOrder returns the stages ordered so that every stage follows
// its dependencies. Ties keep registration order.
func (r *Registry) GetDependencyOrder() ([]Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dependencyOrderLocked()
}

func (r *Registry) dependencyOrderLocked() ([]Step, error) {
	dependents := make(map[string][]string, len(r.stages))
	inDegree := make(map[string]int, len(r.stages))
	for _, id := range r.order {
		for _, dep := range r.stages[id].GetDependencies() {
			if _, exists := r.stages[dep]; !exists {
				return nil, fmt.Errorf("stage %s depends on non-existent stage %s", id, dep)
			}
			dependents[dep] = append(dependents[dep], id)
			inDegree[id]++
		}
	}

	// Kahn's algorithm; the ready set is scanned in registration order
	done := make(map[string]bool, len(r.stages))
	ordered := make([]Step, 0, len(r.stages))
	for len(ordered) < len(r.stages) {
		next := ""
		for _, id := range r.order {
			if !done[id] && inDegree[id] == 0 {
				next = id
				break
			}
		}
		if next == "" {
			return nil, fmt.Errorf("dependency cycle detected")
		}
		done[next] = true
		ordered = append(ordered, r.stages[next])
		for _, d := range dependents[next] {
			inDegree[d]--
		}
	}
	return ordered, nil
}

// ValidateDependencies checks that every dependency exists and that the
// graph has no cycle
func (r *Registry) ValidateDependencies() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, err := r.dependencyOrderLocked()
	return err
}

// GetDependents returns the stages that depend directly on stageID, in
// registration order
func (r *Registry) GetDependents(stageID string) []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Step
	for _, id := range r.order {
		for _, dep := range r.stages[id].GetDependencies() {
			if dep == stageID {
				out = append(out, r.stages[id])
				break
			}
		}
	}
	return out
}
