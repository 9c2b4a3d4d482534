// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

// body.go is the port of raw-physics' entity.cpp/entity.h (see the file
// map in physics.go). Body carries the per-instance state the rest of
// the package (pbd.go, pbd_base_constraints.go, broad.go,
// physics_util.go) reads and writes directly by field, matching the
// original's plain-struct-of-floats layout.

import (
	"github.com/galvanized/worldcore/math/lin"
)

// force is a single force application: newtons applied at a point
// offset (local space) from the body's center of mass.
type force struct {
	position lin.V3
	newtons  lin.V3
}

// Body is one rigid body participating in the simulation. Bodies are
// addressed by their slice index (see bid) for the lifetime of a single
// Simulate call; the physics.World glue layer is what gives a Body a
// stable identity across frames.
type Body struct {
	colliders []collider

	world_position lin.V3
	world_rotation lin.Q
	world_scale    lin.V3

	previous_world_position lin.V3
	previous_world_rotation lin.Q

	linear_velocity           lin.V3
	angular_velocity          lin.V3
	previous_linear_velocity  lin.V3
	previous_angular_velocity lin.V3

	inverse_mass           float64
	inertia_tensor         lin.M3
	inverse_inertia_tensor lin.M3

	static_friction_coefficient  float64
	dynamic_friction_coefficient float64
	restitution_coefficient      float64

	bounding_sphere_radius float64

	fixed  bool // zero inverse mass, never integrated.
	active bool

	deactivation_time float64

	forces []force
}

// body_create_ex builds a Body from explicit initial pose, mass and
// material properties. static bodies get zero inverse mass and start
// inactive; dynamic bodies start active with unit inverse mass scaled
// by mass.
func body_create_ex(world_position lin.V3, world_rotation lin.Q, world_scale lin.V3, mass float64,
	colliders []collider, static_friction, dynamic_friction, restitution float64, static bool) *Body {
	b := &Body{
		colliders:                    colliders,
		world_position:               world_position,
		world_rotation:               world_rotation,
		world_scale:                  world_scale,
		previous_world_position:      world_position,
		previous_world_rotation:      world_rotation,
		static_friction_coefficient:  static_friction,
		dynamic_friction_coefficient: dynamic_friction,
		restitution_coefficient:      restitution,
		active:                       !static,
	}
	if !static && mass > 0 {
		b.inverse_mass = 1.0 / mass
		b.inertia_tensor = colliders_get_default_inertia_tensor(colliders, mass)
		b.inverse_inertia_tensor = *lin.NewM3().Inv(&b.inertia_tensor)
	} else {
		b.fixed = true
	}
	b.bounding_sphere_radius = colliders_get_bounding_sphere_radius(colliders)
	colliders_update(b.colliders, b.world_position, &b.world_rotation)
	return b
}

// AddForce appends a force application at a local space offset from
// the body's center of mass. Forces accumulate until the next
// Simulate call clears them.
func (b *Body) AddForce(position, newtons lin.V3, wake bool) {
	if b.fixed {
		return
	}
	b.forces = append(b.forces, force{position: position, newtons: newtons})
	if wake {
		b.active = true
	}
}

// clear_forces drops every force accumulated this step.
func (b *Body) clear_forces() { b.forces = b.forces[:0] }

// SetPosition teleports the body, ignoring velocity.
func (b *Body) SetPosition(x, y, z float64) {
	b.world_position = lin.V3{X: x, Y: y, Z: z}
	b.previous_world_position = b.world_position
}

// SetRotation teleports the body's orientation, ignoring angular velocity.
func (b *Body) SetRotation(q lin.Q) {
	b.world_rotation = q
	b.previous_world_rotation = q
}

// SetScale resizes the body's colliders. Intended for static bodies;
// dynamic bodies would also need their inertia tensor recomputed.
func (b *Body) SetScale(x, y, z float64) {
	b.world_scale = lin.V3{X: x, Y: y, Z: z}
}

// SetVelocity sets the body's linear and angular velocity directly,
// used by physics.World's Mover to drive kinematic motion.
func (b *Body) SetVelocity(linear, angular lin.V3) {
	b.linear_velocity = linear
	b.angular_velocity = angular
	b.active = true
}

// Pose returns the body's current world position and rotation.
func (b *Body) Pose() (lin.V3, lin.Q) { return b.world_position, b.world_rotation }
