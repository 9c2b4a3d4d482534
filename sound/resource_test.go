// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package sound

import (
	"encoding/binary"
	"testing"
)

func TestUnpackSamples16BitStereo(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint16(data[0:2], uint16(int16(16384)))  // left, frame 0
	binary.LittleEndian.PutUint16(data[2:4], uint16(int16(-16384))) // right, frame 0
	binary.LittleEndian.PutUint16(data[4:6], uint16(int16(0)))      // left, frame 1
	binary.LittleEndian.PutUint16(data[6:8], uint16(int16(0)))      // right, frame 1

	frames, err := unpackSamples(data, 16, 2)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0][0] != 0.5 || frames[0][1] != -0.5 {
		t.Errorf("unexpected frame 0: %v", frames[0])
	}
	if frames[1][0] != 0 || frames[1][1] != 0 {
		t.Errorf("unexpected frame 1: %v", frames[1])
	}
}

func TestUnpackSamplesMonoDuplicatesChannel(t *testing.T) {
	data := []byte{128, 255, 0}
	frames, err := unpackSamples(data, 8, 1)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f[0] != f[1] {
			t.Errorf("frame %d: mono sample not duplicated to both channels: %v", i, f)
		}
	}
}

func TestUnpackSamplesRejectsMisalignedData(t *testing.T) {
	if _, err := unpackSamples([]byte{0, 1, 2}, 16, 2); err == nil {
		t.Error("expected error for data size not a multiple of frame size")
	}
}

func TestUnpackSamplesRejectsUnsupportedBitDepth(t *testing.T) {
	if _, err := unpackSamples([]byte{0, 1}, 24, 1); err == nil {
		t.Error("expected error for unsupported bit depth")
	}
}

func TestPcmStreamerStopsAtEndWhenNotLooping(t *testing.T) {
	s := &pcmStreamer{samples: [][2]float64{{0.1, 0.1}, {0.2, 0.2}}}
	buf := make([][2]float64, 4)
	n, ok := s.Stream(buf)
	if !ok || n != 2 {
		t.Fatalf("expected 2 samples ok, got n=%d ok=%v", n, ok)
	}
	n, ok = s.Stream(buf)
	if ok || n != 0 {
		t.Fatalf("expected stream exhausted, got n=%d ok=%v", n, ok)
	}
	if !s.finishedNonLoop {
		t.Error("expected finishedNonLoop to be set")
	}
}

func TestPcmStreamerRewindsWhenLooping(t *testing.T) {
	s := &pcmStreamer{samples: [][2]float64{{0.1, 0.1}, {0.2, 0.2}}, loop: true}
	buf := make([][2]float64, 2)
	s.Stream(buf)
	n, ok := s.Stream(buf)
	if !ok || n != 2 {
		t.Fatalf("expected loop to replay 2 samples, got n=%d ok=%v", n, ok)
	}
	if buf[0][0] != 0.1 {
		t.Errorf("expected rewound stream to start at first sample, got %v", buf[0])
	}
	if s.finishedNonLoop {
		t.Error("looping streamer should never report finishedNonLoop")
	}
}
