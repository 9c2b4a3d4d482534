// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package script

import "testing"

type fakeModule struct {
	name    string
	fns     map[string]bool
	calls   []string
	groups  [][]OwnerID
}

func (m *fakeModule) HasFn(fnName string) bool { return m.fns[fnName] }
func (m *fakeModule) Call(fnName string, owner OwnerID, args Args) {
	m.calls = append(m.calls, fnName)
}
func (m *fakeModule) CallGroup(fnName string, units []OwnerID, args Args) {
	m.groups = append(m.groups, units)
}

func newTestWorld(modules map[string]*fakeModule) *World {
	return NewWorld(func(name string) (Module, error) {
		return modules[name], nil
	})
}

func TestCreateCachesModuleByName(t *testing.T) {
	mod := &fakeModule{name: "enemy", fns: map[string]bool{"on_hit": true}}
	loads := 0
	w := NewWorld(func(name string) (Module, error) {
		loads++
		return mod, nil
	})
	if _, err := w.Create(OwnerID(1), Desc{ModuleName: "enemy"}); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Create(OwnerID(2), Desc{ModuleName: "enemy"}); err != nil {
		t.Fatal(err)
	}
	if loads != 1 {
		t.Errorf("expected module to load once, loaded %d times", loads)
	}
}

func TestUnicastOnlyCallsDefinedFn(t *testing.T) {
	mod := &fakeModule{fns: map[string]bool{"on_hit": true}}
	w := newTestWorld(map[string]*fakeModule{"m": mod})
	inst, _ := w.Create(OwnerID(1), Desc{ModuleName: "m"})
	w.Unicast("on_hit", inst, Args{})
	w.Unicast("on_missing", inst, Args{})
	if len(mod.calls) != 1 || mod.calls[0] != "on_hit" {
		t.Errorf("expected exactly one call to on_hit, got %v", mod.calls)
	}
}

func TestDestroyRemovesBeforeBroadcastSeesIt(t *testing.T) {
	mod := &fakeModule{fns: map[string]bool{"tick": true}}
	w := newTestWorld(map[string]*fakeModule{"m": mod})
	inst, _ := w.Create(OwnerID(1), Desc{ModuleName: "m"})
	w.Destroy(inst)
	w.Broadcast("tick", Args{})
	if len(mod.calls) != 0 {
		t.Errorf("expected no calls after destroy, got %v", mod.calls)
	}
}

func TestMulticastGroupBatchesByModule(t *testing.T) {
	modA := &fakeModule{fns: map[string]bool{"spawned": true}}
	modB := &fakeModule{fns: map[string]bool{"spawned": true}}
	w := newTestWorld(map[string]*fakeModule{"a": modA, "b": modB})
	w.Create(OwnerID(1), Desc{ModuleName: "a"})
	w.Create(OwnerID(2), Desc{ModuleName: "b"})
	w.Create(OwnerID(3), Desc{ModuleName: "a"})

	w.Spawned([]OwnerID{1, 2, 3})

	if len(modA.groups) != 1 || len(modA.groups[0]) != 2 {
		t.Errorf("expected module a grouped with 2 units, got %v", modA.groups)
	}
	if len(modB.groups) != 1 || len(modB.groups[0]) != 1 {
		t.Errorf("expected module b grouped with 1 unit, got %v", modB.groups)
	}
}

func TestDisableCallbacksShortCircuits(t *testing.T) {
	mod := &fakeModule{fns: map[string]bool{"tick": true}}
	w := newTestWorld(map[string]*fakeModule{"m": mod})
	w.Create(OwnerID(1), Desc{ModuleName: "m"})
	w.DisableCallbacks = true
	w.Broadcast("tick", Args{})
	if len(mod.calls) != 0 {
		t.Error("expected DisableCallbacks to suppress all dispatch")
	}
}
