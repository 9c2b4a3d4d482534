// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package script

// Module is one loaded script module. A concrete VM binding (not part
// of this core) implements Module; ScriptWorld only tracks which
// module backs which instance and dispatches calls to it.
type Module interface {
	// HasFn reports whether the module defines fnName.
	HasFn(fnName string) bool
	// Call invokes fnName with args on behalf of a single unit.
	Call(fnName string, owner OwnerID, args Args)
	// CallGroup invokes fnName once with every owner in units, for
	// modules that batch per-group work (multicast_group).
	CallGroup(fnName string, units []OwnerID, args Args)
}

// ModuleLoader resolves a module name (as named in a unit's script
// descriptor) to a loaded Module, consulting the cache first.
type ModuleLoader func(name string) (Module, error)

// Instance is a dense index into World's instance array.
type Instance uint32

const nilInstance = Instance(0xffffffff)

// Desc describes a new script instance: the module to bind to owner.
type Desc struct {
	ModuleName string
}

type instanceData struct {
	owner  OwnerID
	module Module
}

// World is the ScriptWorld: a module cache plus the create/destroy/
// broadcast/unicast/multicast_group dispatch bridge (spec.md §4.7).
type World struct {
	load ModuleLoader

	modules map[string]Module // resource name -> loaded module.

	instances []instanceData
	free      []uint32
	byOwner   map[OwnerID]Instance

	// DisableCallbacks short-circuits every dispatch method; used
	// during hot-reload races per spec.md §4.7.
	DisableCallbacks bool
}

// NewWorld creates an empty ScriptWorld using load to resolve module
// names to Modules on first use.
func NewWorld(load ModuleLoader) *World {
	return &World{load: load, modules: map[string]Module{}, byOwner: map[OwnerID]Instance{}}
}

// Create ensures desc.ModuleName is loaded (caching it for reuse) and
// binds owner to it. A unit may have at most one script instance; a
// second Create for the same owner replaces the first.
func (w *World) Create(owner OwnerID, desc Desc) (Instance, error) {
	mod, ok := w.modules[desc.ModuleName]
	if !ok {
		var err error
		mod, err = w.load(desc.ModuleName)
		if err != nil {
			return nilInstance, err
		}
		w.modules[desc.ModuleName] = mod
	}

	if existing, ok := w.byOwner[owner]; ok {
		w.instances[existing] = instanceData{owner: owner, module: mod}
		return existing, nil
	}

	data := instanceData{owner: owner, module: mod}
	var idx uint32
	if n := len(w.free); n > 0 {
		idx = w.free[n-1]
		w.free = w.free[:n-1]
		w.instances[idx] = data
	} else {
		idx = uint32(len(w.instances))
		w.instances = append(w.instances, data)
	}
	inst := Instance(idx)
	w.byOwner[owner] = inst
	return inst, nil
}

// Destroy removes instance ti. Called by the root world's unit-destroy
// callback before any broadcast can see the owner again (spec.md §4.7).
func (w *World) Destroy(ti Instance) {
	if int(ti) >= len(w.instances) {
		return
	}
	data := &w.instances[ti]
	delete(w.byOwner, data.owner)
	*data = instanceData{}
	w.free = append(w.free, uint32(ti))
}

// Instance returns owner's live script instance, or nilInstance.
func (w *World) Instance(owner OwnerID) Instance {
	if ti, ok := w.byOwner[owner]; ok {
		return ti
	}
	return nilInstance
}

// Broadcast calls fnName(args) once for every live instance whose
// module defines it.
func (w *World) Broadcast(fnName string, args Args) {
	if w.DisableCallbacks {
		return
	}
	for _, data := range w.instances {
		if data.module != nil && data.module.HasFn(fnName) {
			data.module.Call(fnName, data.owner, args)
		}
	}
}

// Unicast calls fnName on ti's module only if the module defines it.
func (w *World) Unicast(fnName string, ti Instance, args Args) {
	if w.DisableCallbacks || int(ti) >= len(w.instances) {
		return
	}
	data := &w.instances[ti]
	if data.module != nil && data.module.HasFn(fnName) {
		data.module.Call(fnName, data.owner, args)
	}
}

// MulticastGroup groups units by module, keeping input order within a
// group and ordering the groups by each module's first appearance in
// units, and calls fnName once per group, passing that group's unit
// table (spec.md §4.7).
func (w *World) MulticastGroup(fnName string, units []OwnerID, args Args) {
	if w.DisableCallbacks {
		return
	}
	byModule := map[Module][]OwnerID{}
	order := []Module{}
	for _, u := range units {
		ti, ok := w.byOwner[u]
		if !ok {
			continue
		}
		mod := w.instances[ti].module
		if mod == nil || !mod.HasFn(fnName) {
			continue
		}
		if _, seen := byModule[mod]; !seen {
			order = append(order, mod)
		}
		byModule[mod] = append(byModule[mod], u)
	}
	for _, mod := range order {
		mod.CallGroup(fnName, byModule[mod], args)
	}
}

// Spawned is the spawned() lifecycle hook: a MulticastGroup over units
// just spawned.
func (w *World) Spawned(units []OwnerID) { w.MulticastGroup("spawned", units, Args{}) }

// Unspawned is the unspawned() lifecycle hook: a MulticastGroup over
// units about to be destroyed.
func (w *World) Unspawned(units []OwnerID) { w.MulticastGroup("unspawned", units, Args{}) }
