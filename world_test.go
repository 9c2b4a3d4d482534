// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package world

import (
	"io"
	"testing"

	"github.com/galvanized/worldcore/load"
	"github.com/galvanized/worldcore/math/lin"
	"github.com/galvanized/worldcore/physics"
	"github.com/galvanized/worldcore/render"
	"github.com/galvanized/worldcore/script"
)

// fakeLoader is a minimal load.Loader that errors on every disk
// asset: these tests never need real audio/animation data.
type fakeLoader struct{}

func (fakeLoader) SetDir(assetType int, dir string) load.Loader     { return fakeLoader{} }
func (fakeLoader) Dispose()                                         {}
func (fakeLoader) Wav(name string) (*load.WavHdr, []byte, error)    { return nil, nil, errNotFound(name) }
func (fakeLoader) Snd(name string) (*load.SoundResource, error)     { return nil, errNotFound(name) }
func (fakeLoader) Ske(name string) (*load.SkeletonResource, error)  { return nil, errNotFound(name) }
func (fakeLoader) Anm(name string) (*load.AnimationResource, error) { return nil, errNotFound(name) }
func (fakeLoader) GetResource(dir, name string) (io.ReadCloser, error) {
	return nil, errNotFound(name)
}

type notFoundErr string

func (e notFoundErr) Error() string { return "not found: " + string(e) }
func errNotFound(name string) error { return notFoundErr(name) }

// ballResource is a single unit with a transform, a dynamic sphere
// actor, and a mesh, the minimum shape exercising every subsystem a
// spawn call fans out to.
func ballResource() *UnitResource {
	return &UnitResource{
		Name:           "ball",
		NumUnits:       1,
		Transforms:     []TransformDesc{{Scale: lin.V3{X: 1, Y: 1, Z: 1}}},
		TransformUnits: []uint32{0},
		Parents:        []uint32{nilNode},
		Actors: []ActorComponent{{UnitIndex: 0, Desc: physics.ActorDesc{
			Kind: physics.ActorSphere, Radius: 0.5, Mass: 1,
		}}},
		Meshes: []MeshComponent{{UnitIndex: 0, Desc: render.MeshDesc{
			MeshName: "sphere", MaterialName: "default",
		}}},
	}
}

func newTestWorld() *World {
	return NewWorld(fakeLoader{})
}

func TestSpawnUnitCreatesEveryComponent(t *testing.T) {
	w := newTestWorld()
	ids := w.SpawnUnit(ballResource(), 0, Pose{})
	if len(ids) != 1 {
		t.Fatalf("expected 1 id, got %d", len(ids))
	}
	id := ids[0]

	if !w.Alive(id) {
		t.Fatal("expected spawned unit to be alive")
	}
	if ti := w.Scene().Instance(id); ti == nilTransform {
		t.Error("expected a scene graph transform")
	}
	if ai := w.Physics().Instance(physics.OwnerID(id)); ai == physics.ActorInstance(0xffffffff) {
		t.Error("expected a physics actor")
	}
	if mi := w.Render().Mesh.Instance(render.OwnerID(id)); mi == render.MeshInstance(0xffffffff) {
		t.Error("expected a render mesh")
	}

	events := w.Events().Drain()
	if len(events) != 1 || events[0].Kind != EventUnitSpawned || events[0].Unit != id {
		t.Errorf("expected one UNIT_SPAWNED event, got %+v", events)
	}
}

func TestDestroyUnitRemovesEveryComponent(t *testing.T) {
	w := newTestWorld()
	ids := w.SpawnUnit(ballResource(), 0, Pose{})
	id := ids[0]
	w.Events().Drain()

	w.DestroyUnit(id)

	if w.Alive(id) {
		t.Fatal("expected destroyed unit to be dead")
	}
	if ti := w.Scene().Instance(id); ti != nilTransform {
		t.Error("expected scene graph transform removed")
	}
	if ai := w.Physics().Instance(physics.OwnerID(id)); ai != physics.ActorInstance(0xffffffff) {
		t.Error("expected physics actor removed")
	}
	if mi := w.Render().Mesh.Instance(render.OwnerID(id)); mi != render.MeshInstance(0xffffffff) {
		t.Error("expected render mesh removed")
	}

	events := w.Events().Drain()
	if len(events) != 1 || events[0].Kind != EventUnitDestroyed {
		t.Errorf("expected one UNIT_DESTROYED event, got %+v", events)
	}
}

func TestDestroyUnitWalksSubtree(t *testing.T) {
	w := newTestWorld()
	parentRes := &UnitResource{
		NumUnits:       2,
		Transforms:     []TransformDesc{{Scale: lin.V3{X: 1, Y: 1, Z: 1}}, {Scale: lin.V3{X: 1, Y: 1, Z: 1}}},
		TransformUnits: []uint32{0, 1},
		Parents:        []uint32{nilNode, 0},
	}
	ids := w.SpawnUnit(parentRes, 0, Pose{})
	root, child := ids[0], ids[1]

	w.DestroyUnit(root)

	if w.Alive(root) || w.Alive(child) {
		t.Fatal("expected both parent and child destroyed")
	}
}

func TestUpdateSyncsPhysicsAndSceneGraph(t *testing.T) {
	w := newTestWorld()
	ids := w.SpawnUnit(ballResource(), 0, Pose{})
	id := ids[0]

	for i := 0; i < 30; i++ {
		w.Update(1.0 / 60.0)
	}

	ti := w.Scene().Instance(id)
	world := w.Scene().WorldPose(ti)
	if world.Wy >= 0 {
		t.Errorf("expected gravity to pull the ball down, got y=%v", world.Wy)
	}
}

func TestSpawnEmptyUnitHasNoComponents(t *testing.T) {
	w := newTestWorld()
	id := w.SpawnEmptyUnit(Pose{Pos: lin.V3{X: 1, Y: 2, Z: 3}})
	if !w.Alive(id) {
		t.Fatal("expected empty unit to be alive")
	}
	if ai := w.Physics().Instance(physics.OwnerID(id)); ai != physics.ActorInstance(0xffffffff) {
		t.Error("expected no physics actor on an empty unit")
	}
}

func TestSpawnSkydomeSetsRenderSkydome(t *testing.T) {
	w := newTestWorld()
	id := w.SpawnSkydome("sky-geo", "sky-mat")

	dl := w.Render().Render(lin.M4{}, lin.M4{}, true)
	if dl.Skydome == nil || dl.Skydome.Owner != render.OwnerID(id) {
		t.Fatalf("expected skydome submission for %v, got %+v", id, dl.Skydome)
	}
}

func TestLoadAndUnloadLevel(t *testing.T) {
	w := newTestWorld()
	lvl := w.LoadLevel(&LevelResource{Name: "level1", Units: []*UnitResource{ballResource(), ballResource()}})

	if len(lvl.Units()) != 2 {
		t.Fatalf("expected 2 spawned units, got %d", len(lvl.Units()))
	}
	for _, id := range lvl.Units() {
		if !w.Alive(id) {
			t.Errorf("expected %v alive after LoadLevel", id)
		}
	}

	w.UnloadLevel(lvl)
	for _, id := range lvl.Units() {
		if w.Alive(id) {
			t.Errorf("expected %v dead after UnloadLevel", id)
		}
	}
	if len(w.Levels()) != 0 {
		t.Error("expected level unlinked after UnloadLevel")
	}
}

func TestResourceManagerRefCounts(t *testing.T) {
	rm := NewResourceManager(fakeLoader{})
	res := ballResource()
	rm.RegisterUnit(res)

	if rm.RefCount("ball") != 0 {
		t.Fatalf("expected refcount 0 before acquire, got %d", rm.RefCount("ball"))
	}
	got, err := rm.AcquireUnit("ball")
	if err != nil || got != res {
		t.Fatalf("expected acquire to return the registered resource, got %v, %v", got, err)
	}
	if rm.RefCount("ball") != 1 {
		t.Errorf("expected refcount 1, got %d", rm.RefCount("ball"))
	}
	rm.ReleaseUnit("ball")
	if rm.RefCount("ball") != 0 {
		t.Errorf("expected refcount 0 after release, got %d", rm.RefCount("ball"))
	}

	if _, err := rm.AcquireUnit("missing"); err == nil {
		t.Error("expected an error acquiring an unregistered resource")
	}
}

func TestScriptBroadcastReachesSpawnedUnit(t *testing.T) {
	mod := &recordingModule{fns: map[string]bool{"update": true}}
	w := newTestWorld()
	w.SetScriptLoader(func(name string) (script.Module, error) { return mod, nil })

	res := &UnitResource{
		NumUnits:       1,
		Transforms:     []TransformDesc{{}},
		TransformUnits: []uint32{0},
		Parents:        []uint32{nilNode},
		Scripts:        []ScriptComponent{{UnitIndex: 0, ModuleName: "behavior"}},
	}
	w.SpawnUnit(res, 0, Pose{})
	w.Update(1.0 / 60.0)

	if mod.updateCalls == 0 {
		t.Error("expected script_world.broadcast(\"update\", ...) to reach the bound module")
	}
}

type recordingModule struct {
	fns         map[string]bool
	updateCalls int
}

func (m *recordingModule) HasFn(fnName string) bool { return m.fns[fnName] }
func (m *recordingModule) Call(fnName string, owner script.OwnerID, args script.Args) {
	if fnName == "update" {
		m.updateCalls++
	}
}
func (m *recordingModule) CallGroup(fnName string, units []script.OwnerID, args script.Args) {
	if fnName == "update" {
		m.updateCalls++
	}
}

// lifecycleModule records every spawned()/unspawned() group call, for
// the precise spawn/despawn round trip below.
type lifecycleModule struct {
	spawned, unspawned [][]script.OwnerID
}

func (m *lifecycleModule) HasFn(fnName string) bool {
	return fnName == "spawned" || fnName == "unspawned"
}
func (m *lifecycleModule) Call(fnName string, owner script.OwnerID, args script.Args) {}
func (m *lifecycleModule) CallGroup(fnName string, units []script.OwnerID, args script.Args) {
	switch fnName {
	case "spawned":
		m.spawned = append(m.spawned, units)
	case "unspawned":
		m.unspawned = append(m.unspawned, units)
	}
}

// TestSpawnDespawnRoundTrip matches a single unit carrying a transform,
// a mesh, and a script at position (1,2,3) with identity rotation and
// unit scale: spawned() must fire once with the new id before the
// caller sees it, and destroying it must fire unspawned() before the
// single UNIT_DESTROYED event.
func TestSpawnDespawnRoundTrip(t *testing.T) {
	mod := &lifecycleModule{}
	w := newTestWorld()
	w.SetScriptLoader(func(name string) (script.Module, error) { return mod, nil })

	res := &UnitResource{
		NumUnits:       1,
		Transforms:     []TransformDesc{{Scale: lin.V3{X: 1, Y: 1, Z: 1}}},
		TransformUnits: []uint32{0},
		Parents:        []uint32{nilNode},
		Meshes:         []MeshComponent{{UnitIndex: 0, Desc: render.MeshDesc{MeshName: "crate", MaterialName: "default"}}},
		Scripts:        []ScriptComponent{{UnitIndex: 0, ModuleName: "behavior"}},
	}
	pose := Pose{Pos: lin.V3{X: 1, Y: 2, Z: 3}, Rot: lin.Q{W: 1}, Scale: lin.V3{X: 1, Y: 1, Z: 1}}
	ids := w.SpawnUnit(res, OverridePosition|OverrideRotation|OverrideScale, pose)
	if len(ids) != 1 {
		t.Fatalf("expected 1 spawned id, got %d", len(ids))
	}
	id := ids[0]

	if len(mod.spawned) != 1 || len(mod.spawned[0]) != 1 || mod.spawned[0][0] != script.OwnerID(id) {
		t.Fatalf("expected spawned() called once with %v, got %+v", id, mod.spawned)
	}

	ti := w.Scene().Instance(id)
	pos := w.Scene().LocalPosition(ti)
	if pos.X != 1 || pos.Y != 2 || pos.Z != 3 {
		t.Errorf("expected local position (1,2,3), got %+v", pos)
	}

	spawnEvents := w.Events().Drain()
	if len(spawnEvents) != 1 || spawnEvents[0].Kind != EventUnitSpawned || spawnEvents[0].Unit != id {
		t.Errorf("expected exactly one UNIT_SPAWNED event, got %+v", spawnEvents)
	}

	w.DestroyUnit(id)

	if len(mod.unspawned) != 1 || len(mod.unspawned[0]) != 1 || mod.unspawned[0][0] != script.OwnerID(id) {
		t.Fatalf("expected unspawned() called once with %v before destroy, got %+v", id, mod.unspawned)
	}
	if w.Alive(id) {
		t.Error("expected unit dead after DestroyUnit")
	}

	destroyEvents := w.Events().Drain()
	if len(destroyEvents) != 1 || destroyEvents[0].Kind != EventUnitDestroyed || destroyEvents[0].Unit != id {
		t.Errorf("expected exactly one UNIT_DESTROYED event, got %+v", destroyEvents)
	}
}

// TestReloadUnitsPreservesLocalTRS hot-reloads a unit spawned off
// center, swapping its mesh for a different resource, and checks the
// respawned unit keeps its original local position and that the old
// mesh instance is gone rather than leaked.
func TestReloadUnitsPreservesLocalTRS(t *testing.T) {
	w := newTestWorld()
	oldRes := &UnitResource{
		NumUnits:       1,
		Transforms:     []TransformDesc{{Scale: lin.V3{X: 1, Y: 1, Z: 1}}},
		TransformUnits: []uint32{0},
		Parents:        []uint32{nilNode},
		Meshes:         []MeshComponent{{UnitIndex: 0, Desc: render.MeshDesc{MeshName: "old-mesh", MaterialName: "default"}}},
	}
	ids := w.SpawnUnit(oldRes, OverridePosition|OverrideScale, Pose{Pos: lin.V3{X: 5, Y: 0, Z: 0}, Scale: lin.V3{X: 1, Y: 1, Z: 1}})
	oldID := ids[0]

	newRes := &UnitResource{
		NumUnits:       1,
		Transforms:     []TransformDesc{{Scale: lin.V3{X: 1, Y: 1, Z: 1}}},
		TransformUnits: []uint32{0},
		Parents:        []uint32{nilNode},
		Meshes:         []MeshComponent{{UnitIndex: 0, Desc: render.MeshDesc{MeshName: "new-mesh", MaterialName: "default"}}},
	}
	newIds := w.ReloadUnits(oldRes, newRes, ids)
	if len(newIds) != 1 {
		t.Fatalf("expected 1 reloaded id, got %d", len(newIds))
	}
	newID := newIds[0]

	if w.Alive(oldID) {
		t.Error("expected the old unit id retired after reload")
	}
	if mi := w.Render().Mesh.Instance(render.OwnerID(oldID)); mi != render.MeshInstance(0xffffffff) {
		t.Error("expected the old mesh instance freed, not leaked")
	}

	ti := w.Scene().Instance(newID)
	pos := w.Scene().LocalPosition(ti)
	if pos.X != 5 || pos.Y != 0 || pos.Z != 0 {
		t.Errorf("expected local position carried forward to (5,0,0), got %+v", pos)
	}
	if mi := w.Render().Mesh.Instance(render.OwnerID(newID)); mi == render.MeshInstance(0xffffffff) {
		t.Error("expected the new mesh instance present on the reloaded unit")
	}
}
