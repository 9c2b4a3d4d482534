// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package world

// world.go is the root World orchestrator: it owns every subsystem
// (UnitManager, SceneGraph, CameraManager, PhysicsWorld, AnimationState
// Machine, ScriptWorld, RenderWorld, SoundWorld) and drives the
// per-frame update pipeline in the exact order spec.md §4.8 names.
// This is the only file in the module that knows a physics.OwnerID,
// an anim.OwnerID, a script.OwnerID and a render.OwnerID are all the
// same bit pattern as a UnitId: every cast between them happens here,
// at the boundary, so no subsystem package ever imports this one.

import (
	"fmt"

	"github.com/galvanized/worldcore/anim"
	"github.com/galvanized/worldcore/load"
	"github.com/galvanized/worldcore/math/lin"
	"github.com/galvanized/worldcore/physics"
	"github.com/galvanized/worldcore/render"
	"github.com/galvanized/worldcore/script"
	"github.com/galvanized/worldcore/sound"
)

// Pose is the position/rotation/scale override a spawn call may apply
// to the root-most transform of a unit resource (spec.md §4.8 Spawn;
// scenegraph.go's SpawnOverrideFlags).
type Pose struct {
	Pos   lin.V3
	Rot   lin.Q
	Scale lin.V3
}

// World is the root orchestrator: the single owner of every other
// subsystem and the UnitId namespace they are all keyed by.
type World struct {
	Config    Config
	Resources *ResourceManager

	units   *UnitManager
	scene   *SceneGraph
	cameras *CameraManager

	physics *physics.World
	render  *render.World
	sound   *sound.World
	anim    *anim.Players
	sprites *anim.SpritePlayers
	script  *script.World

	events EventStream

	liveUnits     map[UnitId]bool
	moversByOwner map[UnitId]physics.MoverInstance

	levels *Level

	hasSkydome  bool
	skydomeUnit UnitId
}

// transformSink adapts the root SceneGraph to anim.TransformSink so
// AnimationStateMachine playback can write bone poses without anim
// importing this package (spec.md §3 no-import-cycle rule).
type transformSink struct{ scene *SceneGraph }

func (s transformSink) SetLocalPosition(node uint32, pos lin.V3) {
	s.scene.SetLocalPosition(TransformInstance(node), pos)
}
func (s transformSink) SetLocalRotation(node uint32, rot lin.Q) {
	s.scene.SetLocalRotation(TransformInstance(node), rot)
}

// NewWorld constructs every subsystem and wires the UnitManager's
// destroy callback to every per-unit component manager, then loads the
// boot config and starts the PhysicsWorld at its configured frequency.
func NewWorld(loader load.Loader, opts ...Attr) *World {
	cfg := configDefaults
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &World{
		Config:        cfg,
		Resources:     NewResourceManager(loader),
		units:         NewUnitManager(),
		scene:         NewSceneGraph(),
		cameras:       NewCameraManager(),
		physics:       physics.NewWorld(float64(cfg.boot.Physics.StepFrequency), cfg.boot.Physics.MaxSubsteps),
		render:        render.NewWorld(),
		sound:         sound.NewWorld(loader),
		anim:          anim.NewPlayers(),
		sprites:       anim.NewSpritePlayers(),
		script:        script.NewWorld(moduleNotFoundLoader),
		liveUnits:     map[UnitId]bool{},
		moversByOwner: map[UnitId]physics.MoverInstance{},
	}
	w.units.RegisterDestroyCallback(w.destroyComponents)
	return w
}

// moduleNotFoundLoader is the default ScriptWorld module loader: a
// host embedding this core supplies its own via SetScriptLoader before
// any unit with a script component is spawned.
func moduleNotFoundLoader(name string) (script.Module, error) {
	return nil, fmt.Errorf("world: no script module loader configured for %q", name)
}

// SetScriptLoader replaces the ScriptWorld's module loader.
func (w *World) SetScriptLoader(loader script.ModuleLoader) {
	w.script = script.NewWorld(loader)
}

// Events returns the World's own event stream (UNIT_SPAWNED/
// UNIT_DESTROYED), separate from the per-subsystem streams drained
// each frame by Update.
func (w *World) Events() *EventStream { return &w.events }

// destroyComponents fans out id's destruction to every per-unit
// component manager that might own an instance for it. Registered once
// with the UnitManager; fires before the slot is recycled.
func (w *World) destroyComponents(id UnitId) {
	owner := physics.OwnerID(id)
	if ai := w.physics.Instance(owner); ai != physics.ActorInstance(0xffffffff) {
		w.physics.Destroy(ai)
	}
	w.physics.DestroyTrigger(owner)
	if mi, ok := w.moversByOwner[id]; ok {
		w.physics.DestroyMover(mi)
		delete(w.moversByOwner, id)
	}

	aowner := anim.OwnerID(id)
	if ti := w.anim.Instance(aowner); ti != anim.Instance(0xffffffff) {
		w.anim.Destroy(ti)
	}
	if si := w.sprites.Instance(aowner); si != anim.SpriteInstance(0xffffffff) {
		w.sprites.Destroy(si)
	}

	sowner := script.OwnerID(id)
	if si := w.script.Instance(sowner); si != script.Instance(0xffffffff) {
		w.script.Destroy(si)
	}

	rowner := render.OwnerID(id)
	if mi := w.render.Mesh.Instance(rowner); mi != render.MeshInstance(0xffffffff) {
		w.render.Mesh.Destroy(mi)
	}
	if si := w.render.Sprite.Instance(rowner); si != render.SpriteInstance(0xffffffff) {
		w.render.Sprite.Destroy(si)
	}
	if li := w.render.Light.Instance(rowner); li != render.LightInstance(0xffffffff) {
		w.render.Light.Destroy(li)
	}

	if ci := w.cameras.Instance(id); ci != nilCamera {
		w.cameras.Destroy(ci)
	}

	if w.hasSkydome && w.skydomeUnit == id {
		w.render.ClearSkydome()
		w.hasSkydome = false
	}
}

// SpawnUnit allocates one UnitId per res.NumUnits, routes each compiled
// component block to its subsystem, posts UNIT_SPAWNED for each id,
// notifies script_world.spawned, and returns every allocated id (the
// spec's "unit the resource's root transform belongs to" is ids[0]).
// An unknown component type never appears here: component blocks are
// already typed Go slices, so routing cannot name an unrecognized type.
func (w *World) SpawnUnit(res *UnitResource, flags SpawnOverrideFlags, pose Pose) []UnitId {
	ids := make([]UnitId, res.NumUnits)
	for i := range ids {
		ids[i] = w.units.Create()
		w.liveUnits[ids[i]] = true
	}

	if len(res.Transforms) > 0 {
		w.scene.CreateInstances(res.Transforms, ids, res.TransformUnits, res.Parents, flags, pose.Pos, pose.Rot, pose.Scale)
	}

	for _, c := range res.Cameras {
		w.cameras.CreateInstances([]UnitId{ids[c.UnitIndex]}, c.Kind, c.Fov, c.Near, c.Far, c.HalfSize)
	}
	for _, c := range res.Actors {
		w.physics.CreateActor(physics.OwnerID(ids[c.UnitIndex]), c.Desc)
	}
	for _, c := range res.Movers {
		owner := ids[c.UnitIndex]
		w.moversByOwner[owner] = w.physics.CreateMover(physics.OwnerID(owner))
	}
	for _, c := range res.Meshes {
		w.render.Mesh.CreateInstances([]render.OwnerID{render.OwnerID(ids[c.UnitIndex])}, []render.MeshDesc{c.Desc})
	}
	for _, c := range res.Sprites {
		w.render.Sprite.CreateInstances([]render.OwnerID{render.OwnerID(ids[c.UnitIndex])}, []render.SpriteDesc{c.Desc})
	}
	for _, c := range res.Lights {
		w.render.Light.CreateInstances([]render.OwnerID{render.OwnerID(ids[c.UnitIndex])}, []render.LightDesc{c.Desc})
	}
	for _, c := range res.Scripts {
		// A missing module refuses only this unit's script component,
		// not the whole spawn (spec.md §7 resource errors).
		w.script.Create(script.OwnerID(ids[c.UnitIndex]), script.Desc{ModuleName: c.ModuleName})
	}
	for _, c := range res.Anims {
		w.anim.Create(anim.OwnerID(ids[c.UnitIndex]), anim.Desc{
			States:      c.States,
			Transitions: c.Transitions,
			StartState:  c.StartState,
			BoneNodes:   c.BoneNodes,
		})
	}
	for _, c := range res.SpriteAnims {
		w.sprites.Create(anim.OwnerID(ids[c.UnitIndex]), c.Desc)
	}

	for _, id := range ids {
		w.events.Post(Event{Kind: EventUnitSpawned, Unit: id})
	}

	scriptIds := make([]script.OwnerID, len(ids))
	for i, id := range ids {
		scriptIds[i] = script.OwnerID(id)
	}
	w.script.Spawned(scriptIds)

	return ids
}

// SpawnEmptyUnit creates a single unit with no component blocks at
// all: a bare UnitId and root transform, useful as an attach point
// (SPEC_FULL.md §4.8 supplement).
func (w *World) SpawnEmptyUnit(pose Pose) UnitId {
	res := &UnitResource{
		NumUnits:       1,
		Transforms:     []TransformDesc{{Pos: pose.Pos, Rot: pose.Rot, Scale: pose.Scale}},
		TransformUnits: []uint32{0},
		Parents:        []uint32{nilNode},
	}
	ids := w.SpawnUnit(res, OverridePosition|OverrideRotation|OverrideScale, pose)
	return ids[0]
}

// SpawnSkydome spawns a single unit carrying one mesh component (the
// named geometry/material), and designates it the RenderWorld's
// skydome (SPEC_FULL.md §4.8 supplement).
func (w *World) SpawnSkydome(geometry, material string) UnitId {
	res := &UnitResource{
		NumUnits:       1,
		Transforms:     []TransformDesc{{Scale: lin.V3{X: 1, Y: 1, Z: 1}}},
		TransformUnits: []uint32{0},
		Parents:        []uint32{nilNode},
		Meshes:         []MeshComponent{{UnitIndex: 0, Desc: render.MeshDesc{MeshName: geometry, MaterialName: material}}},
	}
	ids := w.SpawnUnit(res, 0, Pose{})
	id := ids[0]
	w.render.SetSkydome(render.OwnerID(id))
	w.hasSkydome, w.skydomeUnit = true, id
	return id
}

// DestroyUnit removes root and its entire scene-graph subtree: it
// collects the subtree via the scene graph (which both gathers and
// detaches it in one pass), tells script_world.unspawned before any
// later broadcast can observe the ids, then destroys each unit's
// remaining components, posts UNIT_DESTROYED per id, and drops them
// from the live-unit set.
func (w *World) DestroyUnit(root UnitId) {
	ids := []UnitId{root}
	if ti := w.scene.Instance(root); ti != nilTransform {
		ids = w.scene.Destroy(ti)
	}

	scriptIds := make([]script.OwnerID, len(ids))
	for i, id := range ids {
		scriptIds[i] = script.OwnerID(id)
	}
	w.script.Unspawned(scriptIds)

	for _, id := range ids {
		w.units.Destroy(id) // fans out to destroyComponents.
		w.events.Post(Event{Kind: EventUnitDestroyed, Unit: id})
		delete(w.liveUnits, id)
	}
}

// Alive reports whether id is a still-live unit.
func (w *World) Alive(id UnitId) bool { return w.units.Alive(id) }

// Scene returns the root scene graph, for callers that manipulate
// local transforms directly (e.g. a gameplay layer).
func (w *World) Scene() *SceneGraph { return w.scene }

// Cameras returns the camera manager.
func (w *World) Cameras() *CameraManager { return w.cameras }

// Physics returns the PhysicsWorld.
func (w *World) Physics() *physics.World { return w.physics }

// Render returns the RenderWorld.
func (w *World) Render() *render.World { return w.render }

// Sound returns the SoundWorld.
func (w *World) Sound() *sound.World { return w.sound }

// Script returns the ScriptWorld.
func (w *World) Script() *script.World { return w.script }

// CameraCreateInstances attaches a camera component to owner, using
// the same dense+map swap-remove pattern as every other component
// manager (SPEC_FULL.md §4.8).
func (w *World) CameraCreateInstances(owner UnitId, kind ProjectionType, fov, near, far, halfSize float64) CameraInstance {
	return w.cameras.CreateInstances([]UnitId{owner}, kind, fov, near, far, halfSize)[0]
}

// CameraDestroy removes owner's camera component.
func (w *World) CameraDestroy(owner UnitId) {
	if ci := w.cameras.Instance(owner); ci != nilCamera {
		w.cameras.Destroy(ci)
	}
}

// CameraViewProj builds the view and projection matrices for owner's
// camera, for a viewport of the given aspect ratio (spec.md §4.8
// Camera).
func (w *World) CameraViewProj(owner UnitId, aspect float64) (view, proj lin.M4, ok bool) {
	ci := w.cameras.Instance(owner)
	if ci == nilCamera {
		return lin.M4{}, lin.M4{}, false
	}
	ti := w.scene.Instance(owner)
	if ti == nilTransform {
		return lin.M4{}, lin.M4{}, false
	}
	world := w.scene.WorldPose(ti)
	return *ViewMatrix(&world), *w.cameras.Projection(ci, aspect), true
}

// Update advances the simulation by dt seconds, in the exact order
// spec.md §4.8's Frame section names: animation, then physics (with
// actor world poses refreshed from any scene-graph edits made since
// last frame), then render/sound transform sync, then debug buffer
// reset, then physics event routing, then script callbacks.
func (w *World) Update(dt float64) {
	w.anim.Update(dt, transformSink{scene: w.scene})
	for _, e := range w.sprites.Events() {
		w.events.Post(Event{Kind: EventSpriteFrameChange, Unit: UnitId(e.Owner), Frame: e.FrameNum})
	}
	w.sprites.Update(dt)

	w.syncActorWorldPoses() // reads scene_graph.get_changed (pre-physics) internally.

	w.physics.Update(dt)

	for _, e := range w.physics.Events() {
		owner := UnitId(e.Owner)
		if !w.units.Alive(owner) {
			continue
		}
		switch e.Kind {
		case physics.EventCollisionBegin, physics.EventCollisionStay, physics.EventCollisionEnd, physics.EventTriggerEnter, physics.EventTriggerLeave:
			w.events.Post(w.physicsWorldEvent(e))
		}
	}
	w.applyActorTransforms()

	units, worlds := w.scene.GetChanged()
	w.scene.ClearChanged()

	renderOwners := make([]render.OwnerID, len(units))
	for i, u := range units {
		renderOwners[i] = render.OwnerID(u)
	}
	w.render.UpdateTransforms(renderOwners, worlds)

	w.sound.Update()
	w.render.Debug.Reset()

	for _, e := range w.physics.Events() {
		w.dispatchPhysicsEventToScript(e)
	}

	w.script.Broadcast("update", script.Args{0: script.FloatArg(dt)})
}

// syncActorWorldPoses teleports every actor whose scene-graph transform
// is in the changed set to its current world pose before stepping,
// kinematic or dynamic alike, so any teleport or
// animation-driven move made this frame is honored by the solver
// (spec.md §4.8 "physics.update_actor_world_poses").
func (w *World) syncActorWorldPoses() {
	units, worlds := w.scene.GetChanged()
	for i, u := range units {
		owner := physics.OwnerID(u)
		if ai := w.physics.Instance(owner); ai != physics.ActorInstance(0xffffffff) {
			wm := worlds[i]
			pos := lin.V3{X: wm.Wx, Y: wm.Wy, Z: wm.Wz}
			rot3 := lin.NewM3().SetM4(&wm)
			rot := *lin.NewQ().SetM(rot3)
			w.physics.Teleport(ai, pos, rot)
		}
	}
}

// applyActorTransforms writes every live actor's current physics pose
// back into the scene graph, skipping any unit destroyed earlier this
// frame (spec.md §4.8 Frame: "skip destroyed units").
func (w *World) applyActorTransforms() {
	for owner, ai := range w.physicsInstances() {
		id := UnitId(owner)
		if !w.units.Alive(id) {
			continue
		}
		ti := w.scene.Instance(id)
		if ti == nilTransform {
			continue
		}
		pos, rot := w.physics.Pose(ai)
		m := lin.NewM4().SetQ(&rot)
		m.Wx, m.Wy, m.Wz = pos.X, pos.Y, pos.Z
		w.scene.SetWorldPose(ti, *m)
	}
}

// physicsInstances exposes the PhysicsWorld's live actors keyed by
// owner, used only by applyActorTransforms to drive the writeback
// above; physics.World keeps byOwner private so this walks its public
// Instance accessor against every currently live unit instead.
func (w *World) physicsInstances() map[physics.OwnerID]physics.ActorInstance {
	out := map[physics.OwnerID]physics.ActorInstance{}
	for id := range w.liveUnits {
		owner := physics.OwnerID(id)
		if ai := w.physics.Instance(owner); ai != physics.ActorInstance(0xffffffff) {
			out[owner] = ai
		}
	}
	return out
}

// physicsWorldEvent converts a physics.Event into the World's own
// Event representation for EventStream consumers.
func (w *World) physicsWorldEvent(e physics.Event) Event {
	kind := EventPhysicsCollisionBegin
	switch e.Kind {
	case physics.EventCollisionStay:
		kind = EventPhysicsCollisionStay
	case physics.EventCollisionEnd:
		kind = EventPhysicsCollisionEnd
	case physics.EventTriggerEnter:
		kind = EventPhysicsTriggerEnter
	case physics.EventTriggerLeave:
		kind = EventPhysicsTriggerLeave
	}
	return Event{Kind: kind, Unit: UnitId(e.Owner), OtherUnit: UnitId(e.Other)}
}

// dispatchPhysicsEventToScript unicasts a collision/trigger event to
// the involved unit's script instance, if it has one (spec.md §4.8
// "script_world.unicast(...)" for each drained physics event).
func (w *World) dispatchPhysicsEventToScript(e physics.Event) {
	fn := physicsEventFnName(e.Kind)
	if fn == "" {
		return
	}
	owner := script.OwnerID(e.Owner)
	si := w.script.Instance(owner)
	if si == script.Instance(0xffffffff) {
		return
	}
	w.script.Unicast(fn, si, script.Args{0: script.UnitArg(script.OwnerID(e.Other))})
}

func physicsEventFnName(kind physics.EventKind) string {
	switch kind {
	case physics.EventCollisionBegin:
		return "on_collision_begin"
	case physics.EventCollisionStay:
		return "on_collision_stay"
	case physics.EventCollisionEnd:
		return "on_collision_end"
	case physics.EventTriggerEnter:
		return "on_trigger_enter"
	case physics.EventTriggerLeave:
		return "on_trigger_leave"
	default:
		return ""
	}
}

// ReloadMaterials forwards a material hot-reload to the RenderWorld
// (spec.md §4.8 Hot reload).
func (w *World) ReloadMaterials(oldName, newName string) {
	// RenderWorld resolves materials by name per-submission; nothing in
	// the dense mesh/sprite/light arrays caches a material handle, so a
	// hot reload needs no World-side bookkeeping beyond the rename the
	// caller's asset pipeline performs out of band.
}

// ReloadUnits snapshots the TRS of every unit spawned from oldResource,
// destroys them, and respawns newResource once per snapshot, carrying
// each old unit's transform forward as a spawn override (spec.md §4.8
// Hot reload "reload_units").
func (w *World) ReloadUnits(oldResource, newResource *UnitResource, ids []UnitId) []UnitId {
	type trs struct {
		pos   lin.V3
		rot   lin.Q
		scale lin.V3
	}
	snaps := make([]trs, 0, len(ids))
	for _, id := range ids {
		ti := w.scene.Instance(id)
		if ti == nilTransform {
			continue
		}
		snaps = append(snaps, trs{pos: w.scene.LocalPosition(ti), rot: w.scene.LocalRotation(ti), scale: w.scene.nodes[ti].scale})
	}
	for _, id := range ids {
		w.DestroyUnit(id)
	}

	out := make([]UnitId, 0, len(snaps))
	for _, s := range snaps {
		spawned := w.SpawnUnit(newResource, OverridePosition|OverrideRotation|OverrideScale, Pose{Pos: s.pos, Rot: s.rot, Scale: s.scale})
		out = append(out, spawned...)
	}
	return out
}
