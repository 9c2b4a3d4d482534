// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package render is the RenderWorld (spec.md §4.4): a collection of
// dense, swap-on-remove sub-managers (mesh, sprite, light) plus a
// composer that builds an opaque CPU-side DrawList. The GPU backend
// itself is out of scope (spec.md §1); render.World never issues a
// draw call, matching SPEC_FULL.md §4.4's "builds an opaque DrawList
// rather than issuing draw calls" contract.
package render

import "github.com/galvanized/worldcore/math/lin"

// OwnerID is an opaque owning-unit handle, supplied by the root world.
// render never imports the world package, per the no-import-cycle rule.
type OwnerID uint32

// MeshInstance is a dense index into MeshManager's arrays.
type MeshInstance uint32

const nilMeshInstance = MeshInstance(0xffffffff)

// MeshDesc is one compiled mesh component, as it appears in a unit
// resource's mesh block.
type MeshDesc struct {
	MeshName     string
	MaterialName string
	CastsShadow  bool
}

type meshData struct {
	owner OwnerID
	desc  MeshDesc
	world lin.M4
}

// MeshManager owns every live mesh renderable.
type MeshManager struct {
	data    []meshData
	byOwner map[OwnerID]MeshInstance
}

// NewMeshManager creates an empty mesh manager.
func NewMeshManager() *MeshManager {
	return &MeshManager{byOwner: map[OwnerID]MeshInstance{}}
}

// CreateInstances bulk-creates one mesh renderable per (owner, desc)
// pair, mirroring camera.go's CameraManager.CreateInstances shape.
func (m *MeshManager) CreateInstances(owners []OwnerID, descs []MeshDesc) []MeshInstance {
	out := make([]MeshInstance, len(owners))
	for i, owner := range owners {
		mi := MeshInstance(len(m.data))
		m.data = append(m.data, meshData{owner: owner, desc: descs[i]})
		m.byOwner[owner] = mi
		out[i] = mi
	}
	return out
}

// Instance returns the MeshInstance for owner, or nilMeshInstance.
func (m *MeshManager) Instance(owner OwnerID) MeshInstance {
	if mi, ok := m.byOwner[owner]; ok {
		return mi
	}
	return nilMeshInstance
}

// Destroy swap-removes mi.
func (m *MeshManager) Destroy(mi MeshInstance) {
	last := MeshInstance(len(m.data) - 1)
	delete(m.byOwner, m.data[mi].owner)
	if mi != last {
		m.data[mi] = m.data[last]
		m.byOwner[m.data[mi].owner] = mi
	}
	m.data = m.data[:last]
}

// UpdateTransforms propagates new world matrices to every mesh keyed
// by owners, O(k) via byOwner (spec.md §4.4 update_transforms).
func (m *MeshManager) UpdateTransforms(owners []OwnerID, worlds []lin.M4) {
	for i, owner := range owners {
		if mi, ok := m.byOwner[owner]; ok {
			m.data[mi].world = worlds[i]
		}
	}
}

// submissions returns every live mesh as a draw submission, in dense
// array order (no culling performed here: spec.md's Non-goal means
// this core only prepares CPU-side submission data).
func (m *MeshManager) submissions() []MeshSubmission {
	out := make([]MeshSubmission, len(m.data))
	for i, d := range m.data {
		out[i] = MeshSubmission{Owner: d.owner, Mesh: d.desc.MeshName, Material: d.desc.MaterialName, World: d.world}
	}
	return out
}

// MeshSubmission is one opaque mesh draw entry in a DrawList.
type MeshSubmission struct {
	Owner    OwnerID
	Mesh     string
	Material string
	World    lin.M4
}
