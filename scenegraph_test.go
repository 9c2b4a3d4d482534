// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package world

import (
	"testing"

	"github.com/galvanized/worldcore/math/lin"
)

func TestSceneGraphDirtyPropagatesToDescendants(t *testing.T) {
	g := NewSceneGraph()
	parent := UnitId(1)
	child := UnitId(2)
	ids := []UnitId{parent, child}

	data := []TransformDesc{
		{Scale: lin.V3{X: 1, Y: 1, Z: 1}},
		{Pos: lin.V3{X: 1, Y: 0, Z: 0}, Scale: lin.V3{X: 1, Y: 1, Z: 1}},
	}
	tis := g.CreateInstances(data, ids, []uint32{0, 1}, []uint32{nilNode, 0}, 0, lin.V3{}, lin.Q{}, lin.V3{})
	g.ClearChanged()

	g.SetLocalPosition(tis[0], lin.V3{X: 10, Y: 0, Z: 0})

	changed, worlds := g.GetChanged()
	if len(changed) != 2 {
		t.Fatalf("expected both parent and child dirtied, got %v", changed)
	}
	byUnit := map[UnitId]lin.M4{}
	for i, u := range changed {
		byUnit[u] = worlds[i]
	}
	if p := byUnit[parent]; p.Wx != 10 || p.Wy != 0 || p.Wz != 0 {
		t.Errorf("expected parent world pos (10,0,0), got %+v", p)
	}
	if c := byUnit[child]; c.Wx != 11 || c.Wy != 0 || c.Wz != 0 {
		t.Errorf("expected child world pos (11,0,0), got %+v", c)
	}
}

func TestSceneGraphClearChangedEmptiesUntilNextMutation(t *testing.T) {
	g := NewSceneGraph()
	ids := []UnitId{1}
	tis := g.CreateInstances([]TransformDesc{{Scale: lin.V3{X: 1, Y: 1, Z: 1}}}, ids, []uint32{0}, []uint32{nilNode}, 0, lin.V3{}, lin.Q{}, lin.V3{})
	g.ClearChanged()

	if units, _ := g.GetChanged(); len(units) != 0 {
		t.Fatalf("expected empty changed set after ClearChanged, got %v", units)
	}
	g.SetLocalPosition(tis[0], lin.V3{X: 1})
	if units, _ := g.GetChanged(); len(units) != 1 {
		t.Errorf("expected one changed entry after a mutation, got %v", units)
	}
}
