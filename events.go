// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package world

// events.go implements the event-stream-over-synchronous-callbacks
// pattern named in spec.md §9 Design Notes: producers append typed
// entries during their update; the World drains and routes them once
// per frame. This decouples producer/consumer ordering and keeps the
// routing step replayable for tests (spec.md §9, §5 "Shared resources").

// EventKind tags the payload carried by an Event.
type EventKind uint8

const (
	EventUnitSpawned EventKind = iota
	EventUnitDestroyed
	EventPhysicsTransform
	EventPhysicsCollisionBegin
	EventPhysicsCollisionStay
	EventPhysicsCollisionEnd
	EventPhysicsTriggerEnter
	EventPhysicsTriggerLeave
	EventSpriteFrameChange
)

// Event is one entry drained from an EventStream. Payload fields are a
// closed union over every event kind the core emits; unused fields are
// zero. This mirrors spec.md §9's "typed events into a byte buffer" at
// the level the Go type system makes strict without an actual byte
// encoding.
type Event struct {
	Kind EventKind

	Unit      UnitId
	OtherUnit UnitId

	World lin4 // populated for EventPhysicsTransform.

	Position lin3
	Normal   lin3
	Distance float64

	Frame uint32 // populated for EventSpriteFrameChange.
}

// lin3/lin4 are the minimal copies of math/lin.V3/M4 fields used by
// Event so this file has no import beyond what it needs; callers
// convert to/from *lin.V3 / *lin.M4 at the producer/consumer boundary.
type lin3 struct{ X, Y, Z float64 }
type lin4 struct {
	Xx, Xy, Xz, Xw float64
	Yx, Yy, Yz, Yw float64
	Zx, Zy, Zz, Zw float64
	Wx, Wy, Wz, Ww float64
}

// EventStream is an append-only buffer of Events, owned by whichever
// subsystem produces them and drained read-only by the World once per
// frame (spec.md §5 "Event streams are owned by their producing
// subsystem and read-only to the world during drain").
type EventStream struct {
	events []Event
}

// Post appends e to the stream.
func (s *EventStream) Post(e Event) { s.events = append(s.events, e) }

// Drain returns every posted event and clears the stream.
func (s *EventStream) Drain() []Event {
	out := s.events
	s.events = nil
	return out
}

// Len reports how many events are currently buffered.
func (s *EventStream) Len() int { return len(s.events) }
