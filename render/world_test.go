// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package render

import (
	"testing"

	"github.com/galvanized/worldcore/math/lin"
)

func TestMeshManagerCreateDestroySwapRemove(t *testing.T) {
	m := NewMeshManager()
	insts := m.CreateInstances([]OwnerID{1, 2, 3}, []MeshDesc{
		{MeshName: "a"}, {MeshName: "b"}, {MeshName: "c"},
	})
	m.Destroy(insts[0])
	if m.Instance(OwnerID(1)) != nilMeshInstance {
		t.Error("expected owner 1 to be gone after destroy")
	}
	if m.Instance(OwnerID(3)) == nilMeshInstance {
		t.Error("expected owner 3 to survive swap-remove with a valid instance")
	}
}

func TestUpdateTransformsPropagatesToAllManagers(t *testing.T) {
	w := NewWorld()
	w.Mesh.CreateInstances([]OwnerID{1}, []MeshDesc{{MeshName: "a"}})
	w.Sprite.CreateInstances([]OwnerID{1}, []SpriteDesc{{AtlasName: "atlas"}})
	world := lin.M4{}
	world.Wx = 5
	w.UpdateTransforms([]OwnerID{1}, []lin.M4{world})

	subs := w.Mesh.submissions()
	if len(subs) != 1 || subs[0].World.Wx != 5 {
		t.Errorf("expected mesh world updated, got %+v", subs)
	}
}

func TestRenderComposesDrawListWithSkydome(t *testing.T) {
	w := NewWorld()
	w.Mesh.CreateInstances([]OwnerID{9}, []MeshDesc{{MeshName: "sky"}})
	w.SetSkydome(OwnerID(9))

	view := lin.M4{}
	view.Wx, view.Wy, view.Wz = 1, 2, 3
	dl := w.Render(view, lin.M4{}, true)

	if dl.Skydome == nil || dl.Skydome.Mesh != "sky" {
		t.Fatalf("expected skydome submission, got %+v", dl.Skydome)
	}
	if dl.SkydomeView.Wx != 0 || dl.SkydomeView.Wy != 0 || dl.SkydomeView.Wz != 0 {
		t.Errorf("expected depth-neutral skydome view, got %+v", dl.SkydomeView)
	}
	if dl.View.Wx != 1 {
		t.Errorf("expected primary view untouched, got %+v", dl.View)
	}
}

func TestDebugLinesSubmitAndReset(t *testing.T) {
	var d DebugLines
	d.AddLine(lin.V3{}, lin.V3{X: 1}, lin.V3{X: 1, Y: 1, Z: 1})
	if len(d.Submit()) != 1 {
		t.Fatal("expected one submitted line")
	}
	d.Reset()
	if len(d.Submit()) != 0 {
		t.Error("expected Reset to clear submitted lines")
	}
}
