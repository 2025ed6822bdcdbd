package virtualtools

import "github.com/ZanzyTHEbar/virtualtools/internal/eventbus"

// WithEventBus publishes cache, planning and solve events to bus.
// Without it no events are emitted.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(o *Orchestrator) {
		o.eventBus = bus
	}
}
