package tools

import (
	"math/rand"
	"sync"
	"time"
)

// FaultKind classifies an injected fault.
type FaultKind int

const (
	// FaultNone leaves the call untouched.
	FaultNone FaultKind = iota
	// FaultError makes the call fail with a SimulatedFault error.
	FaultError
	// FaultNoise offsets the result by Fault.Offset.
	FaultNoise
)

// Fault is the decision of a FaultInjector for one call.
type Fault struct {
	Kind   FaultKind
	Offset int // In [-10, 10] for FaultNoise
}

// FaultInjector decides whether an unreliable tool call misbehaves.
// rate is the tool's fault probability in [0, 1].
type FaultInjector interface {
	Inject(toolName string, rate float64) Fault
}

// RandomFaultInjector draws faults from a seeded PRNG. Safe for concurrent use.
// A drawn fault is an error or a noise offset with equal odds.
type RandomFaultInjector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomFaultInjector creates an injector. A zero seed uses the current time.
func NewRandomFaultInjector(seed int64) *RandomFaultInjector {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomFaultInjector{rng: rand.New(rand.NewSource(seed))}
}

// Inject implements FaultInjector.
func (r *RandomFaultInjector) Inject(toolName string, rate float64) Fault {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rng.Float64() >= rate {
		return Fault{Kind: FaultNone}
	}
	if r.rng.Float64() < 0.5 {
		return Fault{Kind: FaultError}
	}
	return Fault{Kind: FaultNoise, Offset: r.rng.Intn(21) - 10}
}

// FixedFaultInjector returns the same fault for every call, regardless of rate.
type FixedFaultInjector struct {
	Fault Fault
}

// Inject implements FaultInjector.
func (f FixedFaultInjector) Inject(string, float64) Fault {
	return f.Fault
}
