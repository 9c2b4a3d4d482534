// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package render

import "github.com/galvanized/worldcore/math/lin"

// PostSettings are the non-instanced post-process sub-managers (fog,
// bloom, tonemap, global lighting): single shared settings blocks
// rather than per-unit component arrays, composited into every
// DrawList (spec.md §4.4).
type PostSettings struct {
	FogEnabled   bool
	FogColor     lin.V3
	FogDensity   float64
	BloomEnabled bool
	BloomThreshold float64
	Tonemap      string // named operator, e.g. "aces", "reinhard".
	AmbientColor lin.V3
	AmbientIntensity float64
}

// DebugLine is one immediate-mode debug line submitted this frame
// (spec.md §6 "Debug-line submission contract").
type DebugLine struct {
	From, To lin.V3
	Color    lin.V3
}

// DebugLines buffers debug line submissions for one frame. AddLine is
// not safe for concurrent use: the contract requires it be called only
// from the simulation thread.
type DebugLines struct {
	lines []DebugLine
}

// AddLine appends a line to be drawn this frame.
func (d *DebugLines) AddLine(from, to, color lin.V3) {
	d.lines = append(d.lines, DebugLine{From: from, To: to, Color: color})
}

// Submit returns the accumulated lines for this frame's DrawList. It
// does not clear them; call Reset after the frame's render completes.
func (d *DebugLines) Submit() []DebugLine { return d.lines }

// Reset clears the accumulated lines, called once per frame after
// Submit.
func (d *DebugLines) Reset() { d.lines = d.lines[:0] }

// DrawList is the opaque, CPU-side submission produced by one call to
// World.Render. Nothing in this core issues a GPU draw call; a
// concrete backend (out of scope per spec.md §1) would walk a DrawList
// and submit it.
type DrawList struct {
	View, Proj lin.M4

	Meshes  []MeshSubmission
	Sprites []SpriteSubmission
	Lights  []LightSubmission

	Skydome     *MeshSubmission // nil when no skydome unit is set.
	SkydomeView lin.M4          // depth-neutral view used only for Skydome.
	Post        PostSettings
	DebugLines  []DebugLine
}

// World is the RenderWorld: owner of the mesh/sprite/light
// sub-managers plus shared post-process settings (spec.md §4.4).
type World struct {
	Mesh   *MeshManager
	Sprite *SpriteManager
	Light  *LightManager
	Post   PostSettings
	Debug  DebugLines

	skydomeOwner OwnerID
	hasSkydome   bool
}

// NewWorld creates an empty RenderWorld.
func NewWorld() *World {
	return &World{
		Mesh:   NewMeshManager(),
		Sprite: NewSpriteManager(),
		Light:  NewLightManager(),
	}
}

// SetSkydome designates owner's mesh instance as the skydome, drawn
// with a depth-neutral (translation-stripped) view matrix so it always
// renders behind everything else.
func (w *World) SetSkydome(owner OwnerID) {
	w.skydomeOwner, w.hasSkydome = owner, true
}

// ClearSkydome removes the skydome designation.
func (w *World) ClearSkydome() { w.hasSkydome = false }

// UpdateTransforms forwards new world matrices to every sub-manager
// that has an instance for the given owners (spec.md §4.4
// update_transforms).
func (w *World) UpdateTransforms(owners []OwnerID, worlds []lin.M4) {
	w.Mesh.UpdateTransforms(owners, worlds)
	w.Sprite.UpdateTransforms(owners, worlds)
	w.Light.UpdateTransforms(owners, worlds)
}

// depthNeutral strips the translation row from view, so a skydome
// drawn with it never moves relative to the camera (spec.md §4.4
// "draws the skydome ... with a depth-neutral matrix").
func depthNeutral(view lin.M4) lin.M4 {
	v := view
	v.Wx, v.Wy, v.Wz = 0, 0, 0
	return v
}

// Render composes one frame's DrawList: opaque meshes and sprites,
// lights, the skydome (if set) with a depth-neutral view, post-process
// settings, then debug lines appended last (spec.md §4.4).
func (w *World) Render(view, proj lin.M4, perspForSkybox bool) *DrawList {
	dl := &DrawList{
		View:    view,
		Proj:    proj,
		Meshes:  w.Mesh.submissions(),
		Sprites: w.Sprite.submissions(),
		Lights:  w.Light.submissions(),
		Post:    w.Post,
	}
	if w.hasSkydome {
		if mi := w.Mesh.Instance(w.skydomeOwner); mi != nilMeshInstance {
			sub := w.Mesh.data[mi]
			skyView := view
			if perspForSkybox {
				skyView = depthNeutral(view)
			}
			s := MeshSubmission{Owner: sub.owner, Mesh: sub.desc.MeshName, Material: sub.desc.MaterialName, World: sub.world}
			dl.Skydome = &s
			dl.SkydomeView = skyView
		}
	}
	dl.DebugLines = w.Debug.Submit()
	return dl
}
