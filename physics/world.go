// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

// world.go is the PhysicsWorld glue layer: it owns the dense Body
// array handed to Simulate/pbd_simulate_with_constraints each frame
// and exposes Actor/Mover/Joint instance handles, raycasts, and a
// collision/trigger event stream to the engine. Grounded on
// physics.go's Simulate entry point and pbd.go's external-constraints
// parameter (pbd_simulate_with_constraints), which is exactly the
// seam joints need.
//
// This package never imports the root world package (no import
// cycle): callers identify their actors with an opaque OwnerID they
// choose themselves (the World orchestrator uses its UnitId, widened
// to uint32).

import (
	"github.com/galvanized/worldcore/math/lin"
)

// OwnerID is an opaque handle chosen by the caller (the engine's
// World uses UnitId.Value()) identifying who owns an Actor/Joint.
type OwnerID uint32

// ActorInstance is a dense index into the World's solid-body arrays.
type ActorInstance uint32

const nilActor = ActorInstance(0xffffffff)

// ActorKind selects the collision primitive an Actor uses both for
// the PBD solver's collider and for raycast queries.
type ActorKind uint8

const (
	ActorSphere ActorKind = iota
	ActorBox
)

// ActorDesc describes a new Actor.
type ActorDesc struct {
	Kind ActorKind
	// Sphere: Radius. Box: half-extents Hx, Hy, Hz.
	Radius         float64
	Hx, Hy, Hz     float64
	Position       lin.V3
	Rotation       lin.Q
	Mass           float64
	StaticFriction float64
	DynamicFriction float64
	Restitution    float64
	Static         bool // zero mass, never integrated.
	Trigger        bool // overlap events only, no collision response.
}

type actorShape struct {
	kind       ActorKind
	radius     float64
	hx, hy, hz float64
}

// triggerActor is a non-solid overlap volume. It never enters the PBD
// solver's body array; World checks it against every solid Actor's
// bounding sphere each Update.
type triggerActor struct {
	owner    OwnerID
	shape    actorShape
	position lin.V3
}

// JointType selects a joint's constraint shape. Fixed welds two
// actors together (no relative motion); Spherical is a ball-and-socket
// (position locked, rotation free); Revolute is a hinge around one
// axis; Prismatic locks relative rotation only (see DESIGN.md: the
// ported PBD core has no dedicated slider primitive); Distance keeps
// two anchor points a fixed distance apart.
type JointType uint8

const (
	JointFixed JointType = iota
	JointSpherical
	JointRevolute
	JointPrismatic
	JointDistance
)

// Axis names one of an actor's local basis vectors, used by Revolute
// joints to pick the hinge axis.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) aligned() pbd_Axis_Type {
	switch a {
	case AxisX:
		return pbd_POSITIVE_X_AXIS
	case AxisZ:
		return pbd_POSITIVE_Z_AXIS
	default:
		return pbd_POSITIVE_Y_AXIS
	}
}

// perp returns an axis not equal to a, used to build the two
// perpendicular limit/swing axes the hinge and spherical constraints
// need alongside their primary axis.
func (a Axis) perp() pbd_Axis_Type {
	if a == AxisX {
		return pbd_POSITIVE_Y_AXIS
	}
	return pbd_POSITIVE_X_AXIS
}

// JointInstance is a dense index into the World's joint array.
type JointInstance uint32

const nilJoint = JointInstance(0xffffffff)

// JointDesc describes a new Joint between two owners, anchored at
// local-space offsets r1, r2 from each body's center of mass.
type JointDesc struct {
	Kind             JointType
	OwnerA, OwnerB   OwnerID
	AnchorA, AnchorB lin.V3
	Axis             Axis   // Revolute hinge axis.
	Compliance       float64
	Limited          bool
	LowerLimit, UpperLimit float64
	Distance         lin.V3 // Distance joint's target separation.
}

type jointData struct {
	owner          OwnerID // joint's own identity, for Destroy.
	desc           JointDesc
}

// MoverInstance is a dense index into the World's mover array. A
// Mover drives an Actor's velocity directly, for kinematic motion
// (character controllers, platforms) instead of force integration.
type MoverInstance uint32

const nilMover = MoverInstance(0xffffffff)

type moverData struct {
	owner OwnerID
}

// EventKind tags a PhysicsWorld event's payload.
type EventKind uint8

const (
	EventCollisionBegin EventKind = iota
	EventCollisionStay
	EventCollisionEnd
	EventTriggerEnter
	EventTriggerLeave
)

// Event is one entry drained from the World's event stream.
type Event struct {
	Kind  EventKind
	Owner OwnerID
	Other OwnerID
}

type pairKey struct{ a, b OwnerID }

func makePairKey(a, b OwnerID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// World is the PhysicsWorld: owner of every live Actor, Mover and
// Joint, and the per-frame driver of the PBD solver.
type World struct {
	bodies  []Body
	owners  []OwnerID
	shapes  []actorShape
	trigger []bool
	byOwner map[OwnerID]ActorInstance

	triggers       []triggerActor
	byTriggerOwner map[OwnerID]int

	joints   []jointData
	byJoint  map[OwnerID]JointInstance
	movers   []moverData
	byMover  map[OwnerID]MoverInstance

	contacting  map[pairKey]bool
	overlapping map[pairKey]bool

	events []Event

	stepFrequency float64
	maxSubsteps   uint32
}

// NewWorld creates an empty PhysicsWorld stepping at stepFrequency Hz
// with up to maxSubsteps substeps per Update call (spec.md §6 Physics
// settings; see config.go's BootConfig).
func NewWorld(stepFrequency float64, maxSubsteps uint32) *World {
	if stepFrequency <= 0 {
		stepFrequency = 60
	}
	if maxSubsteps == 0 {
		maxSubsteps = 4
	}
	return &World{
		byOwner:        map[OwnerID]ActorInstance{},
		byTriggerOwner: map[OwnerID]int{},
		byJoint:        map[OwnerID]JointInstance{},
		byMover:        map[OwnerID]MoverInstance{},
		contacting:     map[pairKey]bool{},
		overlapping:    map[pairKey]bool{},
		stepFrequency:  stepFrequency,
		maxSubsteps:    maxSubsteps,
	}
}

// CreateActor adds one Actor for owner, solid or trigger per desc.
func (w *World) CreateActor(owner OwnerID, desc ActorDesc) ActorInstance {
	shape := actorShape{kind: desc.Kind, radius: desc.Radius, hx: desc.Hx, hy: desc.Hy, hz: desc.Hz}
	if desc.Trigger {
		w.byTriggerOwner[owner] = len(w.triggers)
		w.triggers = append(w.triggers, triggerActor{owner: owner, shape: shape, position: desc.Position})
		return nilActor
	}

	var colliders []collider
	switch desc.Kind {
	case ActorSphere:
		colliders = []collider{collider_sphere_create(float32(desc.Radius))}
	case ActorBox:
		colliders = []collider{boxColliderVertices(desc.Hx, desc.Hy, desc.Hz)}
	}
	rot := desc.Rotation
	if rot.X == 0 && rot.Y == 0 && rot.Z == 0 && rot.W == 0 {
		rot = *lin.NewQ()
	}
	b := body_create_ex(desc.Position, rot, lin.V3{X: 1, Y: 1, Z: 1}, desc.Mass, colliders,
		desc.StaticFriction, desc.DynamicFriction, desc.Restitution, desc.Static)

	ai := ActorInstance(len(w.bodies))
	w.bodies = append(w.bodies, *b)
	w.owners = append(w.owners, owner)
	w.shapes = append(w.shapes, shape)
	w.trigger = append(w.trigger, false)
	w.byOwner[owner] = ai
	return ai
}

// boxColliderVertices builds the convex-hull collider for an
// axis-aligned box with the given half-extents (physics.go's NewBox
// vertex/index layout, reused so box Actors use the same convex hull
// the teacher's Body constructor builds).
func boxColliderVertices(hx, hy, hz float64) collider {
	vertexes := []lin.V3{
		{X: -hx, Y: +hy, Z: +hz},
		{X: -hx, Y: -hy, Z: +hz},
		{X: -hx, Y: +hy, Z: -hz},
		{X: -hx, Y: -hy, Z: -hz},
		{X: +hx, Y: +hy, Z: +hz},
		{X: +hx, Y: -hy, Z: +hz},
		{X: +hx, Y: +hy, Z: -hz},
		{X: +hx, Y: -hy, Z: -hz},
	}
	indexes := []uint32{
		4, 2, 0, 4, 6, 2,
		2, 7, 3, 2, 6, 7,
		6, 5, 7, 6, 4, 5,
		1, 7, 5, 1, 3, 7,
		0, 3, 1, 0, 2, 3,
		4, 1, 5, 4, 0, 1,
	}
	return collider_convex_hull_create(vertexes, indexes)
}

// Instance returns the ActorInstance for owner, or nilActor.
func (w *World) Instance(owner OwnerID) ActorInstance {
	if ai, ok := w.byOwner[owner]; ok {
		return ai
	}
	return nilActor
}

// Destroy removes a solid Actor, swap-removing it from the dense
// arrays (spec data model §3).
func (w *World) Destroy(ai ActorInstance) {
	last := ActorInstance(len(w.bodies) - 1)
	delete(w.byOwner, w.owners[ai])
	if ai != last {
		w.bodies[ai] = w.bodies[last]
		w.owners[ai] = w.owners[last]
		w.shapes[ai] = w.shapes[last]
		w.trigger[ai] = w.trigger[last]
		w.byOwner[w.owners[ai]] = ai
	}
	w.bodies = w.bodies[:last]
	w.owners = w.owners[:last]
	w.shapes = w.shapes[:last]
	w.trigger = w.trigger[:last]
}

// DestroyTrigger removes a trigger volume by owner.
func (w *World) DestroyTrigger(owner OwnerID) {
	idx, ok := w.byTriggerOwner[owner]
	if !ok {
		return
	}
	last := len(w.triggers) - 1
	delete(w.byTriggerOwner, owner)
	if idx != last {
		w.triggers[idx] = w.triggers[last]
		w.byTriggerOwner[w.triggers[idx].owner] = idx
	}
	w.triggers = w.triggers[:last]
}

// Teleport sets an Actor's pose directly, ignoring velocity.
func (w *World) Teleport(ai ActorInstance, pos lin.V3, rot lin.Q) {
	b := &w.bodies[ai]
	b.SetPosition(pos.X, pos.Y, pos.Z)
	b.SetRotation(rot)
}

// SetVelocity sets an Actor's linear and angular velocity directly.
func (w *World) SetVelocity(ai ActorInstance, linear, angular lin.V3) {
	w.bodies[ai].SetVelocity(linear, angular)
}

// AddForce applies a force at a local-space offset from the Actor's
// center of mass; cleared at the start of the next Update.
func (w *World) AddForce(ai ActorInstance, position, newtons lin.V3) {
	w.bodies[ai].AddForce(position, newtons, true)
}

// Pose returns an Actor's current world position and rotation.
func (w *World) Pose(ai ActorInstance) (lin.V3, lin.Q) {
	return w.bodies[ai].Pose()
}

// CreateMover attaches a Mover to owner's existing Actor, letting
// Move drive its velocity each frame instead of force integration.
func (w *World) CreateMover(owner OwnerID) MoverInstance {
	mi := MoverInstance(len(w.movers))
	w.movers = append(w.movers, moverData{owner: owner})
	w.byMover[owner] = mi
	return mi
}

// DestroyMover removes a Mover (its Actor is unaffected).
func (w *World) DestroyMover(mi MoverInstance) {
	last := MoverInstance(len(w.movers) - 1)
	delete(w.byMover, w.movers[mi].owner)
	if mi != last {
		w.movers[mi] = w.movers[last]
		w.byMover[w.movers[mi].owner] = mi
	}
	w.movers = w.movers[:last]
}

// Move sets the Mover's owning Actor velocity directly, the kinematic
// alternative to AddForce.
func (w *World) Move(mi MoverInstance, linear, angular lin.V3) {
	owner := w.movers[mi].owner
	if ai, ok := w.byOwner[owner]; ok {
		w.SetVelocity(ai, linear, angular)
	}
}

// CreateJoint adds a joint between two owners (spec.md §4.3 Joint:
// fixed, spherical, revolute, prismatic, distance).
func (w *World) CreateJoint(owner OwnerID, desc JointDesc) JointInstance {
	ji := JointInstance(len(w.joints))
	w.joints = append(w.joints, jointData{owner: owner, desc: desc})
	w.byJoint[owner] = ji
	return ji
}

// DestroyJoint removes a joint by owner.
func (w *World) DestroyJoint(ji JointInstance) {
	last := JointInstance(len(w.joints) - 1)
	delete(w.byJoint, w.joints[ji].owner)
	if ji != last {
		w.joints[ji] = w.joints[last]
		w.byJoint[w.joints[ji].owner] = ji
	}
	w.joints = w.joints[:last]
}

// buildConstraints turns every live JointDesc into the PBD
// constraints pbd_simulate_with_constraints expects, resolving owners
// to this frame's body indexes.
func (w *World) buildConstraints() []constraint {
	out := make([]constraint, 0, len(w.joints)*2)
	for _, j := range w.joints {
		d := j.desc
		ai, ok1 := w.byOwner[d.OwnerA]
		bi, ok2 := w.byOwner[d.OwnerB]
		if !ok1 || !ok2 {
			continue
		}
		b1, b2 := bid(ai), bid(bi)
		switch d.Kind {
		case JointFixed:
			var c constraint
			pbd_positional_constraint_init(&c, b1, b2, d.AnchorA, d.AnchorB, d.Compliance, lin.V3{})
			out = append(out, c)
			var co constraint
			pbd_mutual_orientation_constraint_init(&co, b1, b2, d.Compliance)
			out = append(out, co)
		case JointSpherical:
			var c constraint
			pbd_positional_constraint_init(&c, b1, b2, d.AnchorA, d.AnchorB, d.Compliance, lin.V3{})
			out = append(out, c)
		case JointRevolute:
			var c constraint
			pbd_positional_constraint_init(&c, b1, b2, d.AnchorA, d.AnchorB, d.Compliance, lin.V3{})
			out = append(out, c)
			aligned := d.Axis.aligned()
			if d.Limited {
				var h constraint
				pbd_hinge_joint_constraint_limited_init(&h, b1, b2, d.AnchorA, d.AnchorB, d.Compliance,
					aligned, aligned, d.Axis.perp(), d.Axis.perp(), d.LowerLimit, d.UpperLimit)
				out = append(out, h)
			} else {
				var h constraint
				pbd_hinge_joint_constraint_unlimited_init(&h, b1, b2, d.AnchorA, d.AnchorB, d.Compliance, aligned, aligned)
				out = append(out, h)
			}
		case JointPrismatic:
			// No dedicated slider primitive in the ported PBD core
			// (see DESIGN.md): lock relative orientation only, leaving
			// the bodies free to translate along every axis.
			var co constraint
			pbd_mutual_orientation_constraint_init(&co, b1, b2, d.Compliance)
			out = append(out, co)
		case JointDistance:
			var c constraint
			pbd_positional_constraint_init(&c, b1, b2, d.AnchorA, d.AnchorB, d.Compliance, d.Distance)
			out = append(out, c)
		}
	}
	return out
}

// Update steps the simulation by dt, applying gravity to every
// non-fixed solid Actor, resolving joints and collisions, updating
// trigger overlaps, and populating the event stream (spec.md §4.3
// PhysicsWorld update(dt)).
func (w *World) Update(dt float64) {
	const gravity = 10.0
	for i := range w.bodies {
		b := &w.bodies[i]
		colliders_update(b.colliders, b.world_position, &b.world_rotation)
		if b.fixed {
			continue
		}
		b.AddForce(lin.V3{}, lin.V3{Y: -gravity / b.inverse_mass}, false)
	}

	constraints := w.buildConstraints()
	bodies = w.bodies // bids resolve through body_get_by_id, as in Simulate.
	pbd_simulate_with_constraints(dt, w.bodies, constraints, w.maxSubsteps, 1, true)

	for i := range w.bodies {
		w.bodies[i].clear_forces()
	}

	w.updateContactEvents()
	w.updateTriggerEvents()
}

// updateContactEvents diffs this frame's broad-phase contact pairs
// against last frame's to emit Begin/Stay/End collision events.
func (w *World) updateContactEvents() {
	current := map[pairKey]bool{}
	pairs := broad_get_collision_pairs(w.bodies)
	for _, p := range pairs {
		b1, b2 := body_get_by_id(p.b1_id), body_get_by_id(p.b2_id)
		contacts := colliders_get_contacts(b1.colliders, b2.colliders)
		if len(contacts) == 0 {
			continue
		}
		key := makePairKey(w.owners[p.b1_id], w.owners[p.b2_id])
		current[key] = true
		if w.contacting[key] {
			w.events = append(w.events, Event{Kind: EventCollisionStay, Owner: key.a, Other: key.b})
		} else {
			w.events = append(w.events, Event{Kind: EventCollisionBegin, Owner: key.a, Other: key.b})
		}
	}
	for key := range w.contacting {
		if !current[key] {
			w.events = append(w.events, Event{Kind: EventCollisionEnd, Owner: key.a, Other: key.b})
		}
	}
	w.contacting = current
}

// updateTriggerEvents checks every trigger volume against every solid
// Actor's bounding sphere (trigger volumes never enter the PBD
// solver, see CreateActor).
func (w *World) updateTriggerEvents() {
	current := map[pairKey]bool{}
	for _, tr := range w.triggers {
		for i := range w.bodies {
			b := &w.bodies[i]
			d := lin.NewV3().Sub(&tr.position, &b.world_position).Len()
			if d > tr.shape.radius+b.bounding_sphere_radius {
				continue
			}
			key := makePairKey(tr.owner, w.owners[i])
			current[key] = true
			if !w.overlapping[key] {
				w.events = append(w.events, Event{Kind: EventTriggerEnter, Owner: key.a, Other: key.b})
			}
		}
	}
	for key := range w.overlapping {
		if !current[key] {
			w.events = append(w.events, Event{Kind: EventTriggerLeave, Owner: key.a, Other: key.b})
		}
	}
	w.overlapping = current
}

// Events drains every event posted since the last call.
func (w *World) Events() []Event {
	out := w.events
	w.events = nil
	return out
}

// CastRay returns the nearest Actor hit by a ray from origin in
// direction dir, if any (spec.md §4.3 cast_ray).
func (w *World) CastRay(origin, dir lin.V3) (owner OwnerID, point lin.V3, hit bool) {
	best := -1.0
	for i := range w.bodies {
		b := &w.bodies[i]
		s := w.shapes[i]
		var ok bool
		var x, y, z float64
		switch s.kind {
		case ActorSphere:
			ok, x, y, z = castRaySphere(origin, dir, b.world_position, s.radius)
		case ActorBox:
			ok, x, y, z = castRayBox(origin, dir, b.world_position, s.hx, s.hy, s.hz)
		}
		if !ok {
			continue
		}
		p := lin.V3{X: x, Y: y, Z: z}
		dist := lin.NewV3().Sub(&p, &origin).Len()
		if best < 0 || dist < best {
			best, owner, point, hit = dist, w.owners[i], p, true
		}
	}
	return owner, point, hit
}

// CastRayAll returns every Actor hit by a ray from origin in
// direction dir (spec.md §4.3 cast_ray_all).
func (w *World) CastRayAll(origin, dir lin.V3) []OwnerID {
	var out []OwnerID
	for i := range w.bodies {
		b := &w.bodies[i]
		s := w.shapes[i]
		var ok bool
		switch s.kind {
		case ActorSphere:
			ok, _, _, _ = castRaySphere(origin, dir, b.world_position, s.radius)
		case ActorBox:
			ok, _, _, _ = castRayBox(origin, dir, b.world_position, s.hx, s.hy, s.hz)
		}
		if ok {
			out = append(out, w.owners[i])
		}
	}
	return out
}

// CastSphere returns every Actor whose bounding sphere overlaps a
// query sphere at center with the given radius (spec.md §4.3
// cast_sphere; an overlap test rather than a continuous sweep, see
// DESIGN.md).
func (w *World) CastSphere(center lin.V3, radius float64) []OwnerID {
	var out []OwnerID
	for i := range w.bodies {
		b := &w.bodies[i]
		d := lin.NewV3().Sub(&center, &b.world_position).Len()
		if d <= radius+b.bounding_sphere_radius {
			out = append(out, w.owners[i])
		}
	}
	return out
}

// CastBox returns every Actor whose bounding sphere overlaps an
// axis-aligned query box at center with the given half-extents
// (spec.md §4.3 cast_box; an overlap test rather than a continuous
// sweep, see DESIGN.md).
func (w *World) CastBox(center lin.V3, hx, hy, hz float64) []OwnerID {
	var out []OwnerID
	for i := range w.bodies {
		b := &w.bodies[i]
		dx := clampAbs(b.world_position.X-center.X, hx)
		dy := clampAbs(b.world_position.Y-center.Y, hy)
		dz := clampAbs(b.world_position.Z-center.Z, hz)
		if dx*dx+dy*dy+dz*dz <= b.bounding_sphere_radius*b.bounding_sphere_radius {
			out = append(out, w.owners[i])
		}
	}
	return out
}

// clampAbs returns the signed distance from v to the nearest point of
// [-half, half], used by CastBox's closest-point-on-box test.
func clampAbs(v, half float64) float64 {
	if v > half {
		return v - half
	}
	if v < -half {
		return v + half
	}
	return 0
}
