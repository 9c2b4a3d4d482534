// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package render

import "github.com/galvanized/worldcore/math/lin"

// LightInstance is a dense index into LightManager's arrays.
type LightInstance uint32

const nilLightInstance = LightInstance(0xffffffff)

// LightKind selects a light's falloff model.
type LightKind int

const (
	LightPoint LightKind = iota
	LightDirectional
	LightSpot
)

// LightDesc is one compiled light component.
type LightDesc struct {
	Kind      LightKind
	Color     lin.V3
	Intensity float64
	Range     float64 // point/spot only.
}

type lightData struct {
	owner OwnerID
	desc  LightDesc
	world lin.M4
}

// LightManager owns every live light.
type LightManager struct {
	data    []lightData
	byOwner map[OwnerID]LightInstance
}

// NewLightManager creates an empty light manager.
func NewLightManager() *LightManager {
	return &LightManager{byOwner: map[OwnerID]LightInstance{}}
}

// CreateInstances bulk-creates one light per (owner, desc) pair.
func (m *LightManager) CreateInstances(owners []OwnerID, descs []LightDesc) []LightInstance {
	out := make([]LightInstance, len(owners))
	for i, owner := range owners {
		li := LightInstance(len(m.data))
		m.data = append(m.data, lightData{owner: owner, desc: descs[i]})
		m.byOwner[owner] = li
		out[i] = li
	}
	return out
}

// Instance returns the LightInstance for owner, or nilLightInstance.
func (m *LightManager) Instance(owner OwnerID) LightInstance {
	if li, ok := m.byOwner[owner]; ok {
		return li
	}
	return nilLightInstance
}

// Destroy swap-removes li.
func (m *LightManager) Destroy(li LightInstance) {
	last := LightInstance(len(m.data) - 1)
	delete(m.byOwner, m.data[li].owner)
	if li != last {
		m.data[li] = m.data[last]
		m.byOwner[m.data[li].owner] = li
	}
	m.data = m.data[:last]
}

// UpdateTransforms propagates new world matrices, O(k) via byOwner.
func (m *LightManager) UpdateTransforms(owners []OwnerID, worlds []lin.M4) {
	for i, owner := range owners {
		if li, ok := m.byOwner[owner]; ok {
			m.data[li].world = worlds[i]
		}
	}
}

func (m *LightManager) submissions() []LightSubmission {
	out := make([]LightSubmission, len(m.data))
	for i, d := range m.data {
		out[i] = LightSubmission{Owner: d.owner, Kind: d.desc.Kind, Color: d.desc.Color, Intensity: d.desc.Intensity, Range: d.desc.Range, World: d.world}
	}
	return out
}

// LightSubmission is one opaque light entry in a DrawList.
type LightSubmission struct {
	Owner     OwnerID
	Kind      LightKind
	Color     lin.V3
	Intensity float64
	Range     float64
	World     lin.M4
}
