// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package sound

import (
	"testing"

	"github.com/gopxl/beep"
)

// fakeSeekCloser is a minimal beep.StreamSeekCloser stand-in that
// always reports end-of-stream, letting tests drive oggStreamer's
// refill/finish logic without a real OGG payload or an audio device.
type fakeSeekCloser struct{ seeks int }

func (f *fakeSeekCloser) Stream(samples [][2]float64) (n int, ok bool) { return 0, false }
func (f *fakeSeekCloser) Err() error                                   { return nil }
func (f *fakeSeekCloser) Len() int                                     { return 1 }
func (f *fakeSeekCloser) Position() int                                { return 1 }
func (f *fakeSeekCloser) Seek(p int) error                             { f.seeks++; return nil }
func (f *fakeSeekCloser) Close() error                                 { return nil }

func newStreamingInstance(loop bool) (*World, *fakeSeekCloser) {
	w := &World{groups: map[string]*group{"": {volume: 1}}}
	fake := &fakeSeekCloser{}
	og := &oggStreamer{s: fake, loop: loop}
	vol := &volumeEffect{streamer: og, gain: 1}
	w.instances = []instance{{
		generation: 0,
		active:     true,
		loop:       loop,
		streaming:  true,
		group:      "",
		ogg:        og,
		vol:        vol,
		ctrl:       &beep.Ctrl{Streamer: vol},
	}}
	return w, fake
}

// TestStreamingInstanceAutoRemovedWhenFinished mirrors a non-looping
// OGG instance running past its stream's end: once Stream reports
// end-of-stream, the next Update frees the slot.
func TestStreamingInstanceAutoRemovedWhenFinished(t *testing.T) {
	w, _ := newStreamingInstance(false)
	og := w.instances[0].ogg
	og.Stream(make([][2]float64, 1)) // drives finished=true, matching the mixer's own pull.

	w.Update()

	if w.instances[0].active {
		t.Fatal("expected the finished non-looping instance to be freed")
	}
}

// TestLoopingStreamingInstanceNeverStops keeps reporting end-of-stream
// on every pull; a looping instance must reseek instead of finishing,
// so repeated Updates never free it.
func TestLoopingStreamingInstanceNeverStops(t *testing.T) {
	w, fake := newStreamingInstance(true)
	og := w.instances[0].ogg

	for i := 0; i < 5; i++ {
		og.Stream(make([][2]float64, 1))
		w.Update()
	}

	if !w.instances[0].active {
		t.Fatal("expected a looping instance to survive repeated end-of-stream pulls")
	}
	if fake.seeks == 0 {
		t.Error("expected the looping instance to seek back to the start on end-of-stream")
	}
}
