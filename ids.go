// Copyright © 2017-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package world

// ids.go defines entity identifiers for Units, the generational index
// pattern described at:
// http://bitsquid.blogspot.ca/2014/08/building-data-oriented-entity-system.html
//
// A UnitId packs a slot index in the low bits and a generation (edition)
// in the high bits so that stale ids can always be detected: reusing a
// slot bumps its generation, so any previously handed out id for that
// slot no longer compares equal.

import "log"

// UnitId is a 32 bit generational identifier for a live game entity.
// The low 16 bits are the slot index, the high 16 bits are the
// generation. UnitInvalid is a sentinel that no valid id ever equals.
type UnitId uint32

const slotBits = 16
const slotMask = (1 << slotBits) - 1
const maxSlots = 1 << slotBits // 65536 live units max.

// UnitInvalid never equals a valid, created UnitId.
const UnitInvalid UnitId = 0

// slot is the array index portion of the id.
func (u UnitId) slot() uint32 { return uint32(u) & slotMask }

// generation is the edition portion of the id, bumped on every destroy.
func (u UnitId) generation() uint16 { return uint16(uint32(u) >> slotBits) }

func makeUnitId(slot uint32, generation uint16) UnitId {
	return UnitId(slot&slotMask | uint32(generation)<<slotBits)
}

// destroyCallback is invoked once per destroyed unit, in registration
// order, while the id is still reported alive by the manager.
type destroyCallback struct {
	fn   func(UnitId)
	next *destroyCallback
}

// UnitManager allocates and recycles UnitIds and fans out destruction
// to every registered component system. It is the single source of
// truth for unit liveness: alive(id) is the definition of "this entity
// still exists" used by every other component system.
type UnitManager struct {
	generations []uint16 // generation currently valid for each slot.
	free        []uint32 // slots available for reuse.
	callbacks   *destroyCallback
}

// NewUnitManager creates an empty manager. One instance is owned by
// the World for the lifetime of the simulation.
func NewUnitManager() *UnitManager {
	return &UnitManager{generations: []uint16{}, free: []uint32{}}
}

// Create returns a fresh, live UnitId. Slots are recycled from the
// freelist before the slot table is extended.
func (m *UnitManager) Create() UnitId {
	if len(m.free) > 0 {
		slot := m.free[0]
		m.free = append(m.free[:0], m.free[1:]...)
		return makeUnitId(slot, m.generations[slot])
	}
	if len(m.generations) >= maxSlots {
		log.Printf("world: all %d unit identifiers in use", maxSlots)
		return UnitInvalid
	}
	// Generations start at 1 so that slot 0 never produces UnitInvalid.
	slot := uint32(len(m.generations))
	m.generations = append(m.generations, 1)
	return makeUnitId(slot, 1)
}

// Alive reports whether id was created and has not since been destroyed.
func (m *UnitManager) Alive(id UnitId) bool {
	if id == UnitInvalid {
		return false
	}
	slot := id.slot()
	if slot >= uint32(len(m.generations)) {
		return false
	}
	return m.generations[slot] == id.generation()
}

// Destroy invalidates id, invoking every registered destroy callback
// (in registration order) while the id still reports alive, then bumps
// the slot generation and returns the slot to the freelist. Destroying
// an already-dead id is a no-op. Callbacks must not recursively destroy
// the same unit.
func (m *UnitManager) Destroy(id UnitId) {
	if !m.Alive(id) {
		return
	}
	for cb := m.callbacks; cb != nil; cb = cb.next {
		cb.fn(id)
	}
	slot := id.slot()
	m.generations[slot]++
	if m.generations[slot] == 0 {
		m.generations[slot] = 1 // skip 0 on wrap-around, see Create.
	}
	m.free = append(m.free, slot)
}

// RegisterDestroyCallback adds fn to the list invoked by Destroy. The
// returned handle can be passed to UnregisterDestroyCallback. Component
// systems register once at init and unregister at teardown.
func (m *UnitManager) RegisterDestroyCallback(fn func(UnitId)) *destroyCallback {
	cb := &destroyCallback{fn: fn}
	if m.callbacks == nil {
		m.callbacks = cb
		return cb
	}
	tail := m.callbacks
	for tail.next != nil {
		tail = tail.next
	}
	tail.next = cb
	return cb
}

// UnregisterDestroyCallback removes a callback previously registered
// with RegisterDestroyCallback.
func (m *UnitManager) UnregisterDestroyCallback(handle *destroyCallback) {
	if m.callbacks == handle {
		m.callbacks = handle.next
		return
	}
	for cb := m.callbacks; cb != nil; cb = cb.next {
		if cb.next == handle {
			cb.next = handle.next
			return
		}
	}
}

// Reset discards all allocation state, returning the manager to the
// state it was in when first created. Used when unloading a world.
func (m *UnitManager) Reset() {
	m.generations = []uint16{}
	m.free = []uint32{}
	m.callbacks = nil
}
