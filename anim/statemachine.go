// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package anim

import (
	"github.com/galvanized/worldcore/math/lin"
)

// OwnerID is an opaque handle to the owning unit, supplied by the
// root world. anim never imports the world package, mirroring
// physics.World's OwnerID convention.
type OwnerID uint32

// Instance is a dense index into Players' instance arrays.
type Instance uint32

const nilInstance = Instance(0xffffffff)

// TransformSink receives sampled bone poses. node is an opaque local
// index (the root world's TransformInstance, passed through as a raw
// uint32) into whatever scene graph the caller maintains.
type TransformSink interface {
	SetLocalPosition(node uint32, pos lin.V3)
	SetLocalRotation(node uint32, rot lin.Q)
}

// State is one named animation state: a clip plus whether it loops at
// its end.
type State struct {
	Name string
	Clip *Clip
	Loop bool
}

// Transition fires when Predicate(vars) is true while the state
// machine is in state From, blending to To over BlendDuration seconds.
type Transition struct {
	From          string
	To            string
	Predicate     func(vars map[string]float64) bool
	BlendDuration float64
}

// Desc describes a new state machine instance.
type Desc struct {
	States      map[string]State
	Transitions []Transition
	StartState  string
	// BoneNodes maps a clip's track id to the scene-graph node driven
	// by that track, for every state sharing a common skeleton.
	BoneNodes map[uint16]uint32
}

type playerData struct {
	owner OwnerID

	states      map[string]State
	transitions []Transition
	boneNodes   map[uint16]uint32

	current string
	pending string
	time    float64
	blend   float64
	blendOn bool
	activeBlendDuration float64

	vars           map[string]float64
	cursors        map[uint16]*cursor
	pendingCursors map[uint16]*cursor
}

// trackPose is one track's sampled local transform; isRot distinguishes
// a rotation sample (slerped) from a position sample (lerped).
type trackPose struct {
	node  uint32
	pos   lin.V3
	rot   lin.Q
	isRot bool
}

// SpriteFrameChangeEvent is emitted when a sprite player's frame index
// changes, drained by the world at frame end (spec.md §3 Sprite
// animation).
type SpriteFrameChangeEvent struct {
	Owner    OwnerID
	FrameNum int
}

// Players owns every live AnimationStateMachine instance.
type Players struct {
	instances []playerData
	free      []uint32
	byOwner   map[OwnerID]Instance
}

// NewPlayers creates an empty Players component.
func NewPlayers() *Players {
	return &Players{byOwner: map[OwnerID]Instance{}}
}

// Create allocates a new state machine instance for owner, starting in
// desc.StartState.
func (p *Players) Create(owner OwnerID, desc Desc) Instance {
	pd := playerData{
		owner:       owner,
		states:      desc.States,
		transitions: desc.Transitions,
		boneNodes:   desc.BoneNodes,
		current:     desc.StartState,
		vars:        map[string]float64{},
		cursors:     map[uint16]*cursor{},
	}
	var idx uint32
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
		p.instances[idx] = pd
	} else {
		idx = uint32(len(p.instances))
		p.instances = append(p.instances, pd)
	}
	inst := Instance(idx)
	p.byOwner[owner] = inst
	return inst
}

// Destroy frees instance ti; it is then absent from Instance(owner).
func (p *Players) Destroy(ti Instance) {
	if int(ti) >= len(p.instances) {
		return
	}
	pd := &p.instances[ti]
	delete(p.byOwner, pd.owner)
	*pd = playerData{}
	p.free = append(p.free, uint32(ti))
}

// Instance returns owner's live state machine, or nilInstance.
func (p *Players) Instance(owner OwnerID) Instance {
	if ti, ok := p.byOwner[owner]; ok {
		return ti
	}
	return nilInstance
}

// SetVar sets a named transition variable used by Predicate functions.
func (p *Players) SetVar(ti Instance, name string, value float64) {
	p.instances[ti].vars[name] = value
}

// Update advances every instance's clock, samples the current (and, if
// blending, pending) clip forward from its cached cursor, writes the
// blended bone pose to sink, and evaluates transition predicates
// (spec.md §4.5).
func (p *Players) Update(dt float64, sink TransformSink) {
	for i := range p.instances {
		pd := &p.instances[i]
		if pd.states == nil {
			continue // free slot.
		}
		pd.time += dt

		state, ok := pd.states[pd.current]
		if !ok {
			continue
		}
		if state.Clip != nil && !pd.blendOn {
			total := float64(state.Clip.TotalTime())
			if total > 0 && pd.time > total {
				if state.Loop {
					pd.time -= total
					pd.cursors = map[uint16]*cursor{}
				} else {
					pd.time = total
				}
			}
		}

		curPoses := p.sampleState(pd, state, pd.time, pd.cursors)

		if pd.blendOn {
			pending, ok := pd.states[pd.pending]
			if ok {
				if pd.pendingCursors == nil {
					pd.pendingCursors = map[uint16]*cursor{}
				}
				pendPoses := p.sampleState(pd, pending, pd.time, pd.pendingCursors)
				p.writeBlended(pd, curPoses, pendPoses, pd.blend, sink)
			} else {
				p.writeBlended(pd, curPoses, nil, 0, sink)
			}
			pd.blend += dt / pd.blendDurationOr(0.001)
			if pd.blend >= 1 {
				pd.current = pd.pending
				pd.pending = ""
				pd.blend = 0
				pd.blendOn = false
				pd.time = 0
				pd.cursors = pd.pendingCursors
				pd.pendingCursors = nil
			}
		} else {
			p.writeBlended(pd, curPoses, nil, 0, sink)
		}

		p.evaluateTransitions(pd)
	}
}

// blendDurationOr returns the active transition's configured blend
// duration, defaulting to def when none is set (guards a zero divide).
func (pd *playerData) blendDurationOr(def float64) float64 {
	if pd.activeBlendDuration > 0 {
		return pd.activeBlendDuration
	}
	return def
}

func (p *Players) evaluateTransitions(pd *playerData) {
	if pd.blendOn {
		return
	}
	for _, tr := range pd.transitions {
		if tr.From != pd.current {
			continue
		}
		if tr.Predicate == nil || !tr.Predicate(pd.vars) {
			continue
		}
		pd.pending = tr.To
		pd.blend = 0
		pd.blendOn = true
		pd.activeBlendDuration = tr.BlendDuration
		return
	}
}

// sampleState samples every track of state's clip at timeSeconds,
// advancing cursors (per spec.md §4.5 "cursor only advances"), and
// returns each track's interpolated local pose keyed by track id.
func (p *Players) sampleState(pd *playerData, state State, timeSeconds float64, cursors map[uint16]*cursor) map[uint16]trackPose {
	out := map[uint16]trackPose{}
	if state.Clip == nil {
		return out
	}
	timeMs := uint16(timeSeconds * 1000)
	for trackID, node := range pd.boneNodes {
		cur := cursors[trackID]
		if cur == nil {
			cur = &cursor{}
			cursors[trackID] = cur
		}
		lo, hi, ok := state.Clip.sample(trackID, cur, timeMs)
		if !ok {
			continue
		}
		t := blendFactor(lo, hi, timeMs)
		switch lo.Type {
		case 0: // KeyPosition
			out[trackID] = trackPose{node: node, pos: lerpV3(lo.Pos, hi.Pos, t)}
		default: // KeyRotation
			out[trackID] = trackPose{node: node, rot: slerpQ(lo.Rot, hi.Rot, t), isRot: true}
		}
	}
	return out
}

// writeBlended linearly blends cur and pend (weighted by weight, the
// progress toward pend) per track and writes the result to sink. A
// track present only in cur is written verbatim.
func (p *Players) writeBlended(pd *playerData, cur, pend map[uint16]trackPose, weight float64, sink TransformSink) {
	for trackID, c := range cur {
		pose := c
		if pend != nil {
			if b, ok := pend[trackID]; ok {
				if c.isRot {
					pose.rot = slerpQ(c.rot, b.rot, weight)
				} else {
					pose.pos = lerpV3(c.pos, b.pos, weight)
				}
			}
		}
		if pose.isRot {
			sink.SetLocalRotation(pose.node, pose.rot)
		} else {
			sink.SetLocalPosition(pose.node, pose.pos)
		}
	}
}
