// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package world

// resource.go holds the compiled UnitResource description a unit is
// spawned from, and the ResourceManager that reference-counts
// resources by name (spec.md §5 "Resources ... are reference-counted
// by the ResourceManager; the core holds a borrow for the lifetime of
// any instance referencing them"). Unlike the Sound/MeshAnimation/
// MeshSkeleton formats (spec.md §6), the spec never defines an
// on-disk UnitResource layout: a UnitResource here is an in-memory
// prefab descriptor a caller builds (by hand, or from whatever
// out-of-scope compiler produced it) and registers with the
// ResourceManager by name.

import (
	"fmt"

	"github.com/galvanized/worldcore/anim"
	"github.com/galvanized/worldcore/load"
	"github.com/galvanized/worldcore/physics"
	"github.com/galvanized/worldcore/render"
)

// CameraComponent is one compiled Camera block (spec.md §3 Camera).
type CameraComponent struct {
	UnitIndex uint32
	Kind      ProjectionType
	Fov, Near, Far, HalfSize float64
}

// ActorComponent is one compiled PhysicsWorld actor block.
type ActorComponent struct {
	UnitIndex uint32
	Desc      physics.ActorDesc
}

// MoverComponent is one compiled PhysicsWorld mover (character
// controller) block.
type MoverComponent struct {
	UnitIndex uint32
	Radius    float64
	Height    float64
	MaxSlope  float64
}

// MeshComponent is one compiled RenderWorld mesh block.
type MeshComponent struct {
	UnitIndex uint32
	Desc      render.MeshDesc
}

// SpriteComponent is one compiled RenderWorld sprite block.
type SpriteComponent struct {
	UnitIndex uint32
	Desc      render.SpriteDesc
}

// LightComponent is one compiled RenderWorld light block.
type LightComponent struct {
	UnitIndex uint32
	Desc      render.LightDesc
}

// ScriptComponent is one compiled ScriptWorld block: at most one per
// unit (spec.md §4.7 "A unit may have at most one script instance").
type ScriptComponent struct {
	UnitIndex  uint32
	ModuleName string
}

// AnimComponent is one compiled AnimationStateMachine block.
type AnimComponent struct {
	UnitIndex uint32
	States    map[string]anim.State
	Transitions []anim.Transition
	StartState  string
	// BoneNodes maps a clip track id to the index (within this
	// resource's Transforms) of the scene-graph node it drives.
	BoneNodes map[uint16]uint32
}

// SpriteAnimComponent is one compiled sprite-frame animation block.
type SpriteAnimComponent struct {
	UnitIndex uint32
	Desc      anim.SpriteDesc
}

// UnitResource is a compiled unit prefab: NumUnits ids are allocated
// on spawn, one transform per id, and an arbitrary number of other
// component blocks each tagged with the index (into the allocated id
// array) of the unit they attach to (spec.md §4.8 Spawn).
type UnitResource struct {
	Name string

	NumUnits        int
	Transforms      []TransformDesc
	TransformUnits  []uint32 // unit index owning Transforms[i].
	Parents         []uint32 // index into the allocated id array, or nilNode for root.

	Cameras     []CameraComponent
	Actors      []ActorComponent
	Movers      []MoverComponent
	Meshes      []MeshComponent
	Sprites     []SpriteComponent
	Lights      []LightComponent
	Scripts     []ScriptComponent
	Anims       []AnimComponent
	SpriteAnims []SpriteAnimComponent
}

// LevelResource is a compiled level: an ordered list of unit resources
// spawned together when the level loads (spec.md §3 Level).
type LevelResource struct {
	Name  string
	Units []*UnitResource
}

// ResourceManager reference-counts loaded resources by name. A borrow
// is held for the lifetime of any live instance referencing the
// resource; ReleaseUnit decrements the count and a resource stays
// registered even when its count reaches zero.
type ResourceManager struct {
	loader load.Loader

	unitResources  map[string]*refCountedUnit
	soundResources map[string]*load.SoundResource
}

type refCountedUnit struct {
	res   *UnitResource
	count int
}

// NewResourceManager creates a resource manager backed by loader for
// on-disk formats (Sound/MeshSkeleton/MeshAnimation).
func NewResourceManager(loader load.Loader) *ResourceManager {
	return &ResourceManager{
		loader:         loader,
		unitResources:  map[string]*refCountedUnit{},
		soundResources: map[string]*load.SoundResource{},
	}
}

// RegisterUnit makes res available under res.Name with an initial
// refcount of zero; a no-op if already registered.
func (r *ResourceManager) RegisterUnit(res *UnitResource) {
	if _, ok := r.unitResources[res.Name]; ok {
		return
	}
	r.unitResources[res.Name] = &refCountedUnit{res: res}
}

// AcquireUnit borrows the named unit resource, incrementing its
// refcount, and returns it. The core refuses to spawn (rather than
// crash) when the name is unknown, per spec.md §7 "Resource errors...
// the core refuses to spawn the affected unit".
func (r *ResourceManager) AcquireUnit(name string) (*UnitResource, error) {
	rc, ok := r.unitResources[name]
	if !ok {
		return nil, fmt.Errorf("world: unknown unit resource %q", name)
	}
	rc.count++
	return rc.res, nil
}

// ReleaseUnit returns a borrow acquired from AcquireUnit. Releasing
// more times than acquired is a programmer error and is a no-op below
// zero.
func (r *ResourceManager) ReleaseUnit(name string) {
	if rc, ok := r.unitResources[name]; ok && rc.count > 0 {
		rc.count--
	}
}

// RefCount reports how many live borrows are outstanding for name.
func (r *ResourceManager) RefCount(name string) int {
	if rc, ok := r.unitResources[name]; ok {
		return rc.count
	}
	return 0
}

// AcquireSound loads (caching by name) and returns a sound resource.
func (r *ResourceManager) AcquireSound(name string) (*load.SoundResource, error) {
	if res, ok := r.soundResources[name]; ok {
		return res, nil
	}
	res, err := r.loader.Snd(name)
	if err != nil {
		return nil, err
	}
	r.soundResources[name] = res
	return res, nil
}
