// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package anim is the AnimationStateMachine + Players component
// (spec.md §4.5): skeletal clip sampling plus sprite frame playback,
// both writing into a caller-provided TransformSink rather than
// importing the root world's SceneGraph, following the no-import-cycle
// convention established by physics.World and sound.World.
package anim

import (
	"math"

	"github.com/galvanized/worldcore/load"
	"github.com/galvanized/worldcore/math/lin"
)

// Clip is a runtime-ready mesh-animation clip: the globally
// time-sorted key stream from load.AnimationResource, plus a per-track
// secondary index so a track's own keys can be walked independently of
// the others (spec.md §3 Animation clip: "Per track, keys are also
// reachable via a secondary index listing {first, count}"). The index
// here is a list of positions into the shared Keys slice rather than a
// contiguous range, since Keys itself stays globally time-ordered for
// the state machine's own forward cursor scan.
type Clip struct {
	res   *load.AnimationResource
	Keys  []load.AnimationKey
	track map[uint16][]uint32 // track id -> ascending indices into Keys.
}

// NewClip builds a Clip from a compiled animation resource. Panics if
// res is nil; callers are expected to have already validated the
// resource loaded successfully.
func NewClip(res *load.AnimationResource) *Clip {
	c := &Clip{res: res, Keys: res.Keys, track: map[uint16][]uint32{}}
	for i, k := range res.Keys {
		c.track[k.TrackID] = append(c.track[k.TrackID], uint32(i))
	}
	return c
}

// TotalTime is the clip's duration in seconds.
func (c *Clip) TotalTime() float32 { return c.res.TotalTime }

// BoneID maps a track id to the skeleton bone it drives.
func (c *Clip) BoneID(trackID uint16) uint16 {
	if int(trackID) >= len(c.res.BoneIDs) {
		return 0
	}
	return c.res.BoneIDs[trackID]
}

// cursor tracks per-track sampling progress: the index (into
// track[id]) of the last key whose time was <= the current playhead.
// Cursor only ever advances, per spec.md §4.5's "no key is ever
// sampled twice for the same frame's time; cursor only advances".
type cursor struct {
	pos int
}

// sample advances the track's cursor to bracket timeMs and returns the
// bracketing keys (lo, hi) plus whether a valid bracket exists. If
// timeMs is before the first key, lo == hi == the first key.
func (c *Clip) sample(trackID uint16, cur *cursor, timeMs uint16) (lo, hi load.AnimationKey, ok bool) {
	idxs := c.track[trackID]
	if len(idxs) == 0 {
		return lo, hi, false
	}
	for cur.pos+1 < len(idxs) && c.Keys[idxs[cur.pos+1]].TimeMs <= timeMs {
		cur.pos++
	}
	lo = c.Keys[idxs[cur.pos]]
	if timeMs < lo.TimeMs {
		return lo, lo, true
	}
	if cur.pos+1 < len(idxs) {
		hi = c.Keys[idxs[cur.pos+1]]
		return lo, hi, true
	}
	return lo, lo, true
}

// blendFactor is (t - lo.TimeMs) / (hi.TimeMs - lo.TimeMs), clamped to
// [0,1]; equal times (or a single bracketing key) yield 0.
func blendFactor(lo, hi load.AnimationKey, timeMs uint16) float64 {
	if hi.TimeMs <= lo.TimeMs {
		return 0
	}
	t := float64(timeMs-lo.TimeMs) / float64(hi.TimeMs-lo.TimeMs)
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func lerpV3(a, b lin.V3, t float64) lin.V3 {
	return lin.V3{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t, Z: a.Z + (b.Z-a.Z)*t}
}

// slerpQ spherically interpolates two unit quaternions, taking the
// shorter arc (negating b when the dot product is negative).
func slerpQ(a, b lin.Q, t float64) lin.Q {
	dot := a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
	if dot < 0 {
		b = lin.Q{X: -b.X, Y: -b.Y, Z: -b.Z, W: -b.W}
		dot = -dot
	}
	if dot > 1 {
		dot = 1
	}
	const epsilon = 1e-6
	if dot > 1-epsilon {
		q := lin.Q{
			X: a.X + (b.X-a.X)*t,
			Y: a.Y + (b.Y-a.Y)*t,
			Z: a.Z + (b.Z-a.Z)*t,
			W: a.W + (b.W-a.W)*t,
		}
		return *lin.NewQ().Set(&q).Unit()
	}
	theta0 := math.Acos(dot)
	theta := theta0 * t
	sinTheta0 := math.Sin(theta0)
	s0 := math.Cos(theta) - dot*math.Sin(theta)/sinTheta0
	s1 := math.Sin(theta) / sinTheta0
	return lin.Q{
		X: a.X*s0 + b.X*s1,
		Y: a.Y*s0 + b.Y*s1,
		Z: a.Z*s0 + b.Z*s1,
		W: a.W*s0 + b.W*s1,
	}
}
