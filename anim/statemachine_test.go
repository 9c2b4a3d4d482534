// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package anim

import (
	"testing"

	"github.com/galvanized/worldcore/load"
	"github.com/galvanized/worldcore/math/lin"
)

type recordingSink struct {
	positions map[uint32]lin.V3
}

func (r *recordingSink) SetLocalPosition(node uint32, pos lin.V3) {
	if r.positions == nil {
		r.positions = map[uint32]lin.V3{}
	}
	r.positions[node] = pos
}
func (r *recordingSink) SetLocalRotation(node uint32, rot lin.Q) {}

func testClip() *Clip {
	res := &load.AnimationResource{
		NumTracks: 1,
		TotalTime: 2.0,
		BoneIDs:   []uint16{0},
		Keys: []load.AnimationKey{
			{Type: load.KeyPosition, TrackID: 0, TimeMs: 0, Pos: lin.V3{X: 0}},
			{Type: load.KeyPosition, TrackID: 0, TimeMs: 1000, Pos: lin.V3{X: 10}},
			{Type: load.KeyPosition, TrackID: 0, TimeMs: 2000, Pos: lin.V3{X: 20}},
		},
	}
	return NewClip(res)
}

func TestPlayersUpdateSamplesMidpoint(t *testing.T) {
	p := NewPlayers()
	clip := testClip()
	inst := p.Create(OwnerID(1), Desc{
		States:     map[string]State{"idle": {Name: "idle", Clip: clip, Loop: true}},
		StartState: "idle",
		BoneNodes:  map[uint16]uint32{0: 42},
	})
	if inst == nilInstance {
		t.Fatal("expected a valid instance")
	}
	sink := &recordingSink{}
	p.Update(0.5, sink) // halfway between key 0 (t=0) and key 1 (t=1s).
	pos, ok := sink.positions[42]
	if !ok {
		t.Fatal("expected a position write for node 42")
	}
	if pos.X < 4.9 || pos.X > 5.1 {
		t.Errorf("expected interpolated x near 5.0, got %v", pos.X)
	}
}

func TestPlayersDestroyRemovesInstance(t *testing.T) {
	p := NewPlayers()
	inst := p.Create(OwnerID(7), Desc{States: map[string]State{}, StartState: ""})
	p.Destroy(inst)
	if p.Instance(OwnerID(7)) != nilInstance {
		t.Error("expected instance to be gone after destroy")
	}
}

func TestSpritePlayersEmitsFrameChange(t *testing.T) {
	s := NewSpritePlayers()
	s.Create(OwnerID(3), SpriteDesc{NumFrames: 4, Fps: 10, Loop: true})
	s.Update(0.15) // 1.5 frames in at 10fps -> frame 1.
	events := s.Events()
	if len(events) != 1 || events[0].FrameNum != 1 {
		t.Errorf("expected one frame-change event to frame 1, got %+v", events)
	}
	if more := s.Events(); len(more) != 0 {
		t.Error("Events should drain, returning nothing on second call")
	}
}
