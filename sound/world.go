// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package sound is the SoundWorld: instanced 3D sound playback,
// streaming OGG decode, distance attenuation, and named volume groups
// (spec.md §4.6). Backed by github.com/gopxl/beep/speaker for
// device output, matching lixenwraith-vi-fighter's audio/sound_manager.go
// use of a single beep.Mixer feeding the speaker.
package sound

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/vorbis"

	"github.com/galvanized/worldcore/load"
	"github.com/galvanized/worldcore/math/lin"
)

// Flags bit values for a sound instance (spec.md §3 Sound instance).
const (
	FlagNone            = 0
	FlagEnableAttenuation = 1 << 0
)

const mixSampleRate = beep.SampleRate(44100)

// SoundInstanceId is a generational handle: low 16 bits slot, high 16
// bits generation, per SPEC_FULL.md's "audio instance pool with
// index-generation handles" design note.
type SoundInstanceId uint32

const noInstance = SoundInstanceId(0xffffffff)

func makeInstanceId(slot uint32, generation uint16) SoundInstanceId {
	return SoundInstanceId(uint32(generation)<<16 | (slot & 0xffff))
}
func (id SoundInstanceId) slot() uint32      { return uint32(id) & 0xffff }
func (id SoundInstanceId) generation() uint16 { return uint16(id >> 16) }

type group struct {
	volume float64
}

type instance struct {
	generation uint16
	active     bool

	name      string
	loop      bool
	volume    float64
	rangeM    float64
	flags     uint32
	group     string
	pos       lin.V3
	streaming bool

	ctrl   *beep.Ctrl
	vol    *volumeEffect
	pcm    *pcmStreamer
	ogg    *oggStreamer
	closer io.Closer
}

// World is the SoundWorld: owner of every live sound instance and
// named volume group, fed into one beep.Mixer routed to the speaker.
type World struct {
	mu sync.Mutex

	loader load.Loader
	mixer  *beep.Mixer

	degraded bool // true when the audio device could not be opened.

	instances []instance
	freelist  []uint32

	groups       map[string]*group
	listenerPos  lin.V3
	listenerSet  bool
}

// NewWorld opens the audio device and creates an empty SoundWorld. On
// device failure it degrades to a null world: every method becomes a
// no-op and Play returns a sentinel id (spec.md §4.6/§7).
func NewWorld(loader load.Loader) *World {
	w := &World{
		loader: loader,
		mixer:  &beep.Mixer{},
		groups: map[string]*group{},
	}
	if err := speaker.Init(mixSampleRate, mixSampleRate.N(defaultBufferDuration)); err != nil {
		w.degraded = true
		return w
	}
	speaker.Play(w.mixer)
	return w
}

const defaultBufferDuration = 100 * time.Millisecond

// PlayDesc describes a new sound instance (spec.md §4.6 play).
type PlayDesc struct {
	Name   string
	Loop   bool
	Volume float64
	Range  float64
	Flags  uint32
	Pos    lin.V3
	Group  string
}

// Play allocates an instance, loads (and for streamed formats, opens)
// the named sound resource, and starts playback. Returns noInstance
// if the world is degraded or the resource cannot be loaded.
func (w *World) Play(desc PlayDesc) SoundInstanceId {
	if w.degraded {
		return noInstance
	}
	res, err := w.loader.Snd(desc.Name)
	if err != nil {
		return noInstance
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.groups[desc.Group]; !ok {
		w.groups[desc.Group] = &group{volume: 1.0}
	}

	var strm beep.Streamer
	var format beep.Format
	var closer io.Closer
	var pcm *pcmStreamer
	var ogg *oggStreamer

	if res.StreamFormat == load.StreamOGG {
		sc, fmt2, derr := vorbis.Decode(readCloserFromBytes(res.Pcm))
		if derr != nil {
			return noInstance
		}
		ogg = &oggStreamer{s: sc, loop: desc.Loop}
		strm, format, closer = ogg, fmt2, sc
	} else {
		s, fmt2, derr := decodePCM(res)
		if derr != nil {
			return noInstance
		}
		p := s.(*pcmStreamer)
		p.loop = desc.Loop
		pcm = p
		strm, format = p, fmt2
	}

	if format.SampleRate != mixSampleRate {
		strm = beep.Resample(4, format.SampleRate, mixSampleRate, strm)
	}

	vol := &volumeEffect{streamer: strm, gain: 1.0}
	ctrl := &beep.Ctrl{Streamer: vol, Paused: false}

	slot, generation := w.allocate()
	w.instances[slot] = instance{
		generation: generation,
		active:     true,
		name:       desc.Name,
		loop:       desc.Loop,
		volume:     desc.Volume,
		rangeM:     desc.Range,
		flags:      desc.Flags,
		group:      desc.Group,
		pos:        desc.Pos,
		streaming:  res.StreamFormat == load.StreamOGG,
		ctrl:       ctrl,
		vol:        vol,
		pcm:        pcm,
		ogg:        ogg,
		closer:     closer,
	}
	w.mixer.Add(ctrl)
	return makeInstanceId(slot, generation)
}

// allocate pops a free slot, extending the slot table if none is free.
func (w *World) allocate() (slot uint32, generation uint16) {
	if n := len(w.freelist); n > 0 {
		slot = w.freelist[n-1]
		w.freelist = w.freelist[:n-1]
		return slot, w.instances[slot].generation
	}
	slot = uint32(len(w.instances))
	w.instances = append(w.instances, instance{})
	return slot, 0
}

func (w *World) get(id SoundInstanceId) *instance {
	s := id.slot()
	if int(s) >= len(w.instances) {
		return nil
	}
	in := &w.instances[s]
	if !in.active || in.generation != id.generation() {
		return nil
	}
	return in
}

// Stop stops and frees a single instance.
func (w *World) Stop(id SoundInstanceId) {
	w.mu.Lock()
	defer w.mu.Unlock()
	in := w.get(id)
	if in == nil {
		return
	}
	w.free(id.slot(), in)
}

func (w *World) free(slot uint32, in *instance) {
	in.ctrl.Paused = true
	if in.closer != nil {
		in.closer.Close()
	}
	in.generation++
	in.active = false
	w.freelist = append(w.freelist, slot)
}

// StopAll stops and frees every instance.
func (w *World) StopAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.instances {
		if w.instances[i].active {
			w.free(uint32(i), &w.instances[i])
		}
	}
}

// PauseAll pauses every active instance without freeing it.
func (w *World) PauseAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.instances {
		if w.instances[i].active {
			w.instances[i].ctrl.Paused = true
		}
	}
}

// ResumeAll resumes every active instance.
func (w *World) ResumeAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.instances {
		if w.instances[i].active {
			w.instances[i].ctrl.Paused = false
		}
	}
}

// SetPosition updates an instance's world position.
func (w *World) SetPosition(id SoundInstanceId, pos lin.V3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if in := w.get(id); in != nil {
		in.pos = pos
	}
}

// SetRange updates an instance's audible range.
func (w *World) SetRange(id SoundInstanceId, rangeM float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if in := w.get(id); in != nil {
		in.rangeM = rangeM
	}
}

// SetVolume updates an instance's pre-group-gain volume.
func (w *World) SetVolume(id SoundInstanceId, volume float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if in := w.get(id); in != nil {
		in.volume = volume
	}
}

// SetListenerPose positions the listener used for range attenuation.
func (w *World) SetListenerPose(pos lin.V3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listenerPos, w.listenerSet = pos, true
}

// SetGroupVolume rescales every instance in group next Update.
func (w *World) SetGroupVolume(name string, volume float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if g, ok := w.groups[name]; ok {
		g.volume = volume
	} else {
		w.groups[name] = &group{volume: volume}
	}
}

// Update frees finished non-looping instances, then sets every other
// instance's gain from its volume and group volume, zeroed when range
// attenuation puts it out of range (spec.md §4.6 update). Streamed
// instances are decoded as the mixer pulls samples; Update does not
// refill them.
func (w *World) Update() {
	if w.degraded {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	for slot := range w.instances {
		in := &w.instances[slot]
		if !in.active {
			continue
		}
		if in.streaming && in.ogg.finished && !in.loop {
			w.free(uint32(slot), in)
			continue
		}
		if in.pcm != nil && in.pcm.finishedNonLoop {
			w.free(uint32(slot), in)
			continue
		}

		gain := in.volume * w.groups[in.group].volume
		if w.listenerSet && in.flags&FlagEnableAttenuation != 0 && in.rangeM > 0 {
			d := lin.NewV3().Sub(&in.pos, &w.listenerPos).Len()
			if d > in.rangeM {
				gain = 0
			}
		}
		in.vol.setGain(gain)
	}
}

func (vf *volumeEffect) setGain(gain float64) {
	vf.mu.Lock()
	vf.gain = math.Max(0, gain)
	vf.mu.Unlock()
}

// volumeEffect scales an underlying streamer's samples by a gain
// factor that Update() recomputes every frame from range/group state.
type volumeEffect struct {
	mu       sync.Mutex
	streamer beep.Streamer
	gain     float64
}

func (v *volumeEffect) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = v.streamer.Stream(samples)
	v.mu.Lock()
	gain := v.gain
	v.mu.Unlock()
	for i := 0; i < n; i++ {
		samples[i][0] *= gain
		samples[i][1] *= gain
	}
	return n, ok
}

func (v *volumeEffect) Err() error { return v.streamer.Err() }

// oggStreamer wraps a decoded OGG stream, rewinding to the start on
// EOF when looping (spec.md §4.6 streaming contract) instead of
// relying on beep's own Loop helper, so World.Update can observe
// end-of-stream directly.
type oggStreamer struct {
	s        beep.StreamSeekCloser
	loop     bool
	finished bool
}

func (o *oggStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = o.s.Stream(samples)
	if !ok {
		if o.loop {
			o.s.Seek(0)
			return o.s.Stream(samples)
		}
		o.finished = true
	}
	return n, ok
}

func (o *oggStreamer) Err() error { return o.s.Err() }

// readCloserFromBytes adapts an in-memory byte slice to io.ReadCloser
// for vorbis.Decode, which expects to own and close its reader.
func readCloserFromBytes(b []byte) io.ReadCloser { return &byteReadCloser{data: b} }

type byteReadCloser struct {
	data []byte
	pos  int
}

func (r *byteReadCloser) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
func (r *byteReadCloser) Close() error { return nil }
