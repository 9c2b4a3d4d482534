// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package sound

// resource.go decodes the PCM payload of a load.SoundResource into a
// beep.Streamer, matching lixenwraith-vi-fighter's audio/sound_manager.go
// pattern of feeding hand-built beep.Streamer implementations into a
// beep.Mixer rather than going through an OS audio API directly.

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gopxl/beep"

	"github.com/galvanized/worldcore/load"
)

// decodePCM converts a non-streamed SoundResource's raw PCM bytes into
// a beep.Streamer, per SPEC_FULL.md §6's supported bit depths.
func decodePCM(res *load.SoundResource) (beep.Streamer, beep.Format, error) {
	format := beep.Format{
		SampleRate:  beep.SampleRate(res.SampleRate),
		NumChannels: int(res.Channels),
		Precision:   int(res.BitDepth / 8),
	}
	samples, err := unpackSamples(res.Pcm, res.BitDepth, int(res.Channels))
	if err != nil {
		return nil, format, err
	}
	return &pcmStreamer{samples: samples}, format, nil
}

// unpackSamples converts raw little-endian PCM bytes to [-1, 1] float64
// stereo frames, one [2]float64 per frame; a mono sample is copied to
// both channels.
func unpackSamples(data []byte, bitDepth uint32, channels int) ([][2]float64, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	var bytesPerSample int
	var decode func([]byte) float64
	switch bitDepth {
	case 8:
		bytesPerSample = 1
		decode = func(b []byte) float64 { return (float64(b[0]) - 128) / 128 }
	case 16:
		bytesPerSample = 2
		decode = func(b []byte) float64 { return float64(int16(binary.LittleEndian.Uint16(b))) / 32768 }
	case 32:
		bytesPerSample = 4
		decode = func(b []byte) float64 { return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))) }
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	frameSize := bytesPerSample * channels
	if frameSize == 0 || len(data)%frameSize != 0 {
		return nil, fmt.Errorf("pcm data size %d not a multiple of frame size %d", len(data), frameSize)
	}
	frames := make([][2]float64, len(data)/frameSize)
	for i := range frames {
		off := i * frameSize
		left := decode(data[off : off+bytesPerSample])
		right := left
		if channels == 2 {
			right = decode(data[off+bytesPerSample : off+2*bytesPerSample])
		}
		frames[i] = [2]float64{left, right}
	}
	return frames, nil
}

// pcmStreamer replays a fully decoded, non-streamed sound clip,
// rewinding to the start on EOF when loop is set.
type pcmStreamer struct {
	samples         [][2]float64
	pos             int
	loop            bool
	finishedNonLoop bool
}

func (s *pcmStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.pos >= len(s.samples) {
		if s.loop {
			s.rewind()
		} else {
			s.finishedNonLoop = true
			return 0, false
		}
	}
	n = copy(samples, s.samples[s.pos:])
	s.pos += n
	return n, true
}

func (s *pcmStreamer) Err() error { return nil }

// rewind resets playback to the start, used when a looping
// non-streamed instance reaches the end of its samples.
func (s *pcmStreamer) rewind() { s.pos = 0 }
