// Package sim runs event stream simulations on a virtual clock.
//
// An [Orchestrator] pops scheduled events from a time-ordered queue,
// advancing the virtual clock to each event's scheduled instant, so a year
// of traffic can be generated in seconds. Realizing an event binds the
// entities it consumes, generates its payload, applies its entity effects
// (production, update, state mutation), and emits it to every configured
// [Sink]. Scenarios overlay ordered multi-event storylines on top of the
// independently scheduled background events.
//
// The queue stays populated by replenishment: whenever it drops below a low
// water mark, a batch of feasible event types, weighted by frequency, is
// scheduled at random virtual delays. A simulation ends when its duration or
// event budget is exhausted, or when nothing further can be scheduled.
package sim
