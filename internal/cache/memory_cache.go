package cache

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/ZanzyTHEbar/virtualtools"
)

// MemoryPlanStore is a thread-safe in-memory PlanStore. Entries live for the
// lifetime of the process.
type MemoryPlanStore struct {
	store map[string]virtualtools.Plan
	mutex sync.RWMutex
}

// NewMemoryPlanStore creates an empty store, optionally pre-seeded.
func NewMemoryPlanStore(seed map[string]virtualtools.Plan) *MemoryPlanStore {
	s := &MemoryPlanStore{store: make(map[string]virtualtools.Plan, len(seed))}
	for q, p := range seed {
		s.store[q] = p.Clone()
	}
	return s
}

// Exists reports whether question has a cached plan.
func (s *MemoryPlanStore) Exists(ctx context.Context, question string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, found := s.store[question]
	return found
}

// Get retrieves a copy of the cached plan for question.
func (s *MemoryPlanStore) Get(ctx context.Context, question string) (virtualtools.Plan, error) {
	// Check context cancellation first
	if err := errbuilder.WrapIfContextDone(ctx, ctx.Err()); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	plan, found := s.store[question]
	if !found {
		return nil, errbuilder.NotFoundErr(errbuilder.GenericErr("cached plan not found", nil))
	}
	return plan.Clone(), nil
}

// Add inserts plan under question unless the key already exists.
func (s *MemoryPlanStore) Add(ctx context.Context, question string, plan virtualtools.Plan) (bool, error) {
	if err := errbuilder.WrapIfContextDone(ctx, ctx.Err()); err != nil {
		return false, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, found := s.store[question]; found {
		return false, nil
	}
	s.store[question] = plan.Clone()
	log.Printf("Plan cached: %s", question)
	return true, nil
}

// Questions returns the cached questions in sorted order.
func (s *MemoryPlanStore) Questions(ctx context.Context) []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return sortedKeys(s.store)
}

func sortedKeys(m map[string]virtualtools.Plan) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
