// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package anim

// SpriteInstance is a dense index into SpritePlayers' instance array.
type SpriteInstance uint32

const nilSpriteInstance = SpriteInstance(0xffffffff)

// SpriteDesc describes a new sprite animation player: a fixed frame
// rate cycling through NumFrames frames starting at frame 0.
type SpriteDesc struct {
	NumFrames int
	Fps       float64
	Loop      bool
}

type spriteData struct {
	owner OwnerID

	numFrames int
	fps       float64
	loop      bool

	time  float64
	frame int
}

// SpritePlayers owns every live sprite-frame animation instance
// (spec.md §3 "Sprite animation").
type SpritePlayers struct {
	instances []spriteData
	free      []uint32
	byOwner   map[OwnerID]SpriteInstance
	events    []SpriteFrameChangeEvent
}

// NewSpritePlayers creates an empty SpritePlayers component.
func NewSpritePlayers() *SpritePlayers {
	return &SpritePlayers{byOwner: map[OwnerID]SpriteInstance{}}
}

// Create allocates a sprite player for owner.
func (s *SpritePlayers) Create(owner OwnerID, desc SpriteDesc) SpriteInstance {
	sd := spriteData{owner: owner, numFrames: desc.NumFrames, fps: desc.Fps, loop: desc.Loop}
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
		s.instances[idx] = sd
	} else {
		idx = uint32(len(s.instances))
		s.instances = append(s.instances, sd)
	}
	inst := SpriteInstance(idx)
	s.byOwner[owner] = inst
	return inst
}

// Destroy frees instance si.
func (s *SpritePlayers) Destroy(si SpriteInstance) {
	if int(si) >= len(s.instances) {
		return
	}
	sd := &s.instances[si]
	delete(s.byOwner, sd.owner)
	*sd = spriteData{}
	s.free = append(s.free, uint32(si))
}

// Instance returns owner's live sprite player, or nilSpriteInstance.
func (s *SpritePlayers) Instance(owner OwnerID) SpriteInstance {
	if si, ok := s.byOwner[owner]; ok {
		return si
	}
	return nilSpriteInstance
}

// Update advances every sprite player's clock by dt and appends a
// SpriteFrameChangeEvent whenever the computed frame index changes.
func (s *SpritePlayers) Update(dt float64) {
	for i := range s.instances {
		sd := &s.instances[i]
		if sd.numFrames == 0 || sd.fps <= 0 {
			continue
		}
		sd.time += dt
		period := 1.0 / sd.fps
		total := period * float64(sd.numFrames)
		t := sd.time
		if sd.loop {
			for t >= total {
				t -= total
			}
		} else if t > total-period {
			t = total - period
		}
		frame := int(t / period)
		if frame >= sd.numFrames {
			frame = sd.numFrames - 1
		}
		if frame != sd.frame {
			sd.frame = frame
			s.events = append(s.events, SpriteFrameChangeEvent{Owner: sd.owner, FrameNum: frame})
		}
	}
}

// Events drains and returns every SpriteFrameChangeEvent queued since
// the last call.
func (s *SpritePlayers) Events() []SpriteFrameChangeEvent {
	out := s.events
	s.events = nil
	return out
}
