package sim

import (
	"container/heap"
	"time"

	"go.jacobcolvin.com/eventsim/generate"
)

// Scheduling pacing, in virtual seconds.
const (
	// queueLowWater is the queue depth below which the orchestrator
	// replenishes.
	queueLowWater = 100
	// replenishBatch is how many events each replenishment adds.
	replenishBatch = 10
	// primeBatch is how many events initialization seeds the queue with.
	primeBatch = 10

	primeDelayMax        = 60 * time.Second
	replenishDelayMin    = 10 * time.Second
	replenishDelayMax    = 300 * time.Second
	scenarioStepDelayMin = 5 * time.Second
	scenarioStepDelayMax = 30 * time.Second
)

// ScheduledEvent is a queue entry: an event type to realize at a virtual
// time, with the context bindings it should carry.
type ScheduledEvent struct {
	EventType string
	At        time.Time
	Context   generate.Context

	seq uint64
}

// Scheduler is a virtual-time priority queue. Pop returns entries in
// scheduled-time order; entries at the same instant come out in insertion
// order.
//
// Scheduler is not safe for concurrent use; the orchestrator owns it from a
// single goroutine.
type Scheduler struct {
	queue eventQueue
	seq   uint64
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Push enqueues an event.
func (s *Scheduler) Push(eventType string, at time.Time, ctx generate.Context) {
	s.seq++

	heap.Push(&s.queue, &ScheduledEvent{
		EventType: eventType,
		At:        at,
		Context:   ctx,
		seq:       s.seq,
	})
}

// Pop dequeues the earliest event, or returns false when empty.
func (s *Scheduler) Pop() (*ScheduledEvent, bool) {
	if len(s.queue) == 0 {
		return nil, false
	}

	ev, _ := heap.Pop(&s.queue).(*ScheduledEvent)

	return ev, true
}

// Len reports how many events are queued.
func (s *Scheduler) Len() int {
	return len(s.queue)
}

type eventQueue []*ScheduledEvent

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if !q[i].At.Equal(q[j].At) {
		return q[i].At.Before(q[j].At)
	}

	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) {
	ev, _ := x.(*ScheduledEvent)
	*q = append(*q, ev)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]

	return ev
}
