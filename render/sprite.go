// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package render

import "github.com/galvanized/worldcore/math/lin"

// SpriteInstance is a dense index into SpriteManager's arrays.
type SpriteInstance uint32

const nilSpriteInstance = SpriteInstance(0xffffffff)

// SpriteDesc is one compiled sprite component.
type SpriteDesc struct {
	AtlasName string
	FrameNum  int
}

type spriteInstanceData struct {
	owner OwnerID
	desc  SpriteDesc
	world lin.M4
}

// SpriteManager owns every live sprite renderable.
type SpriteManager struct {
	data    []spriteInstanceData
	byOwner map[OwnerID]SpriteInstance
}

// NewSpriteManager creates an empty sprite manager.
func NewSpriteManager() *SpriteManager {
	return &SpriteManager{byOwner: map[OwnerID]SpriteInstance{}}
}

// CreateInstances bulk-creates one sprite renderable per (owner, desc)
// pair.
func (m *SpriteManager) CreateInstances(owners []OwnerID, descs []SpriteDesc) []SpriteInstance {
	out := make([]SpriteInstance, len(owners))
	for i, owner := range owners {
		si := SpriteInstance(len(m.data))
		m.data = append(m.data, spriteInstanceData{owner: owner, desc: descs[i]})
		m.byOwner[owner] = si
		out[i] = si
	}
	return out
}

// Instance returns the SpriteInstance for owner, or nilSpriteInstance.
func (m *SpriteManager) Instance(owner OwnerID) SpriteInstance {
	if si, ok := m.byOwner[owner]; ok {
		return si
	}
	return nilSpriteInstance
}

// Destroy swap-removes si.
func (m *SpriteManager) Destroy(si SpriteInstance) {
	last := SpriteInstance(len(m.data) - 1)
	delete(m.byOwner, m.data[si].owner)
	if si != last {
		m.data[si] = m.data[last]
		m.byOwner[m.data[si].owner] = si
	}
	m.data = m.data[:last]
}

// UpdateTransforms propagates new world matrices, O(k) via byOwner.
func (m *SpriteManager) UpdateTransforms(owners []OwnerID, worlds []lin.M4) {
	for i, owner := range owners {
		if si, ok := m.byOwner[owner]; ok {
			m.data[si].world = worlds[i]
		}
	}
}

// SetFrame changes the uv rect used on the next submission (spec.md
// §4.4 sprite_set_frame).
func (m *SpriteManager) SetFrame(si SpriteInstance, frameNum int) {
	m.data[si].desc.FrameNum = frameNum
}

func (m *SpriteManager) submissions() []SpriteSubmission {
	out := make([]SpriteSubmission, len(m.data))
	for i, d := range m.data {
		out[i] = SpriteSubmission{Owner: d.owner, Atlas: d.desc.AtlasName, FrameNum: d.desc.FrameNum, World: d.world}
	}
	return out
}

// SpriteSubmission is one opaque sprite draw entry in a DrawList.
type SpriteSubmission struct {
	Owner    OwnerID
	Atlas    string
	FrameNum int
	World    lin.M4
}
