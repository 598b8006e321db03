package dynamics

import "github.com/akmonengine/fracture/engine"

const (
	OVERLAP_ENTER EventType = iota
	OVERLAP_EXIT
	ON_SLEEP
	ON_WAKE
	CONSTRAINT_BROKEN
)

type pairKey struct {
	bodyA *body
	bodyB *body
}

// makePairKey creates a normalized pair key with consistent ordering
func makePairKey(bodyA, bodyB *body) pairKey {
	if bodyB.id < bodyA.id {
		bodyA, bodyB = bodyB, bodyA
	}

	return pairKey{bodyA: bodyA, bodyB: bodyB}
}

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// OverlapEnterEvent is sent when an accepted broad phase pair starts overlapping
type OverlapEnterEvent struct {
	BodyA engine.Body
	BodyB engine.Body
}

func (e OverlapEnterEvent) Type() EventType { return OVERLAP_ENTER }

type OverlapExitEvent struct {
	BodyA engine.Body
	BodyB engine.Body
}

func (e OverlapExitEvent) Type() EventType { return OVERLAP_EXIT }

// Sleep/Wake events
type SleepEvent struct {
	Body engine.Body
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Body engine.Body
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// ConstraintBrokenEvent is sent when a joint exceeded its breaking threshold
type ConstraintBrokenEvent struct {
	Constraint engine.Constraint
	Impulse    float64
}

func (e ConstraintBrokenEvent) Type() EventType { return CONSTRAINT_BROKEN }

// EventListener - callback for events
type EventListener func(event Event)

// Events manager
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	// Pair tracking for Enter/Exit detection
	previousActivePairs map[pairKey]bool
	currentActivePairs  map[pairKey]bool

	sleepStates map[*body]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: make(map[pairKey]bool),
		currentActivePairs:  make(map[pairKey]bool),
		sleepStates:         make(map[*body]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordPair is called during substeps for every pair accepted by the filter
func (e *Events) recordPair(bodyA, bodyB *body) {
	e.currentActivePairs[makePairKey(bodyA, bodyB)] = true
}

func (e *Events) emitBroken(j *joint) {
	e.buffer = append(e.buffer, ConstraintBrokenEvent{Constraint: j, Impulse: j.joint.AppliedImpulse()})
}

// forget drops every tracked state of a removed body
func (e *Events) forget(b *body) {
	delete(e.sleepStates, b)
	for pair := range e.previousActivePairs {
		if pair.bodyA == b || pair.bodyB == b {
			delete(e.previousActivePairs, pair)
		}
	}
	for pair := range e.currentActivePairs {
		if pair.bodyA == b || pair.bodyB == b {
			delete(e.currentActivePairs, pair)
		}
	}
}

// processPairEvents compares current and previous pairs to detect Enter/Exit
// Should be called after all substeps
func (e *Events) processPairEvents() {
	for pair := range e.currentActivePairs {
		if !e.previousActivePairs[pair] {
			e.buffer = append(e.buffer, OverlapEnterEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		}
	}

	for pair := range e.previousActivePairs {
		if !e.currentActivePairs[pair] {
			e.buffer = append(e.buffer, OverlapExitEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		}
	}

	// Swap for next frame and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

func (e *Events) processSleepEvents(bodies []*body) {
	for _, b := range bodies {
		isSleeping := b.rb.IsSleeping
		trackedState, exists := e.sleepStates[b]
		if !exists {
			e.sleepStates[b] = isSleeping
			continue
		}

		if !trackedState && isSleeping {
			e.buffer = append(e.buffer, SleepEvent{Body: b})
			e.sleepStates[b] = true
		} else if trackedState && !isSleeping {
			e.buffer = append(e.buffer, WakeEvent{Body: b})
			e.sleepStates[b] = false
		}
	}
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	e.processPairEvents()

	for _, event := range e.buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
	e.buffer = e.buffer[:0]
}
