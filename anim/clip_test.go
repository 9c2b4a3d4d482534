// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package anim

import (
	"testing"

	"github.com/galvanized/worldcore/load"
	"github.com/galvanized/worldcore/math/lin"
)

func twoKeyClip() *Clip {
	res := &load.AnimationResource{
		NumTracks: 1,
		TotalTime: 1.0,
		BoneIDs:   []uint16{0},
		Keys: []load.AnimationKey{
			{Type: load.KeyPosition, TrackID: 0, TimeMs: 0, Pos: lin.V3{X: 0}},
			{Type: load.KeyPosition, TrackID: 0, TimeMs: 1000, Pos: lin.V3{X: 10}},
		},
	}
	return NewClip(res)
}

// TestClipSamplingIsMonotonicAndLinear walks a two-key clip in 250ms
// steps and checks the interpolated positions land where a linear ramp
// from (0,0,0) to (10,0,0) over one second predicts, with the cursor
// never rewinding between steps.
func TestClipSamplingIsMonotonicAndLinear(t *testing.T) {
	clip := twoKeyClip()
	cur := &cursor{}
	want := []float64{2.5, 5.0, 7.5, 10.0}

	lastPos := -1
	for i, ms := range []uint16{250, 500, 750, 1000} {
		lo, hi, ok := clip.sample(0, cur, ms)
		if !ok {
			t.Fatalf("expected a bracket at t=%dms", ms)
		}
		if cur.pos < lastPos {
			t.Fatalf("cursor rewound: was %d, now %d", lastPos, cur.pos)
		}
		lastPos = cur.pos

		f := blendFactor(lo, hi, ms)
		pos := lerpV3(lo.Pos, hi.Pos, f)
		if diff := pos.X - want[i]; diff > 1e-4 || diff < -1e-4 {
			t.Errorf("t=%dms: expected x=%v, got %v", ms, want[i], pos.X)
		}
	}
}

func TestSpritePlayersNoDuplicateEventsHeldOnLastFrame(t *testing.T) {
	s := NewSpritePlayers()
	s.Create(OwnerID(1), SpriteDesc{NumFrames: 2, Fps: 10, Loop: false})

	s.Update(0.3) // well past frame 1, non-looping clamps there.
	first := s.Events()
	if len(first) != 1 || first[0].FrameNum != 1 {
		t.Fatalf("expected a single frame-change event to frame 1, got %+v", first)
	}

	s.Update(0.1) // still held on the last frame.
	if more := s.Events(); len(more) != 0 {
		t.Errorf("expected no further frame-change events once held on the last frame, got %+v", more)
	}
}
