// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"testing"

	"github.com/galvanized/worldcore/math/lin"
)

// TestCollisionEventsBeginAndEnd drops two overlapping static spheres
// into a world, expects a collision_begin the first Update, a
// collision_stay while they remain overlapped, and a collision_end
// once one is moved out of range.
func TestCollisionEventsBeginAndEnd(t *testing.T) {
	w := NewWorld(60, 4)
	a := w.CreateActor(OwnerID(1), ActorDesc{Kind: ActorSphere, Radius: 1, Static: true, Position: lin.V3{X: 0}})
	_ = w.CreateActor(OwnerID(2), ActorDesc{Kind: ActorSphere, Radius: 1, Static: true, Position: lin.V3{X: 1}})

	w.Update(1.0 / 60.0)
	events := w.Events()
	if !hasEvent(events, EventCollisionBegin, 1, 2) {
		t.Fatalf("expected a collision_begin(1,2), got %+v", events)
	}

	w.Update(1.0 / 60.0)
	events = w.Events()
	if !hasEvent(events, EventCollisionStay, 1, 2) {
		t.Fatalf("expected a collision_stay(1,2) while still overlapping, got %+v", events)
	}

	w.Teleport(a, lin.V3{X: 100}, lin.Q{W: 1})
	w.Update(1.0 / 60.0)
	events = w.Events()
	if !hasEvent(events, EventCollisionEnd, 1, 2) {
		t.Fatalf("expected a collision_end(1,2) once separated, got %+v", events)
	}
}

func hasEvent(events []Event, kind EventKind, a, b OwnerID) bool {
	for _, e := range events {
		if e.Kind != kind {
			continue
		}
		if (e.Owner == OwnerID(a) && e.Other == OwnerID(b)) || (e.Owner == OwnerID(b) && e.Other == OwnerID(a)) {
			return true
		}
	}
	return false
}

// TestTriggerEnterAndLeave mirrors the collision test for non-solid
// trigger volumes: a dynamic actor passing through a trigger gets an
// enter then a leave as it exits range.
func TestTriggerEnterAndLeave(t *testing.T) {
	w := NewWorld(60, 4)
	w.CreateActor(OwnerID(1), ActorDesc{Kind: ActorSphere, Radius: 1, Trigger: true, Position: lin.V3{X: 0}})
	body := w.CreateActor(OwnerID(2), ActorDesc{Kind: ActorSphere, Radius: 1, Static: true, Position: lin.V3{X: 1}})

	w.Update(1.0 / 60.0)
	if !hasEvent(w.Events(), EventTriggerEnter, 1, 2) {
		t.Fatal("expected a trigger_enter while overlapping")
	}

	w.Teleport(body, lin.V3{X: 100}, lin.Q{W: 1})
	w.Update(1.0 / 60.0)
	if !hasEvent(w.Events(), EventTriggerLeave, 1, 2) {
		t.Fatal("expected a trigger_leave once separated")
	}
}
