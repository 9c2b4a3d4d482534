// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package load

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WavHdr describes a loaded .wav file's PCM format, matching the
// Loader interface's Wav method.
// The wave PCM soundfile format is from:
//     https://ccrma.stanford.edu/courses/422/projects/WaveFormat
type WavHdr struct {
	Channels   uint16 // Number of audio channels.
	Frequency  uint32 // 8000, 44100, etc.
	SampleBits uint16 // 8 bits = 8, 16 bits = 16, etc.
	DataSize   uint32 // Size of audio data (total file size minus header size).
}

// wav reads in a WAV based audio file and returns its header along
// with the raw PCM data bytes. The Reader opened here is closed
// before returning.
func (l *loader) wav(name string) (wh *WavHdr, data []byte, err error) {
	filename := name + ".wav"
	var file io.ReadCloser
	if file, err = l.getResource(l.dir[snd], filename); err != nil {
		return nil, nil, fmt.Errorf("Could not load audio from %s: %s", filename, err)
	}
	defer file.Close()

	hdr := &wavHeader{}
	if err = binary.Read(file, binary.LittleEndian, hdr); err != nil {
		return nil, nil, fmt.Errorf("Invalid .wav audio file: %s", err)
	}
	riff, wave := string(hdr.RiffID[:]), string(hdr.WaveID[:])
	if riff != "RIFF" || wave != "WAVE" {
		return nil, nil, fmt.Errorf("Invalid .wav audio file")
	}

	bytesRead := uint32(0)
	inbuff := make([]byte, hdr.DataSize)
	for bytesRead < hdr.DataSize {
		n, readErr := file.Read(inbuff[bytesRead:])
		if readErr != nil {
			return nil, nil, fmt.Errorf("Corrupt .wav audio file")
		}
		bytesRead += uint32(n)
	}
	wh = &WavHdr{Channels: hdr.Channels, Frequency: hdr.Frequency,
		SampleBits: hdr.SampleBits, DataSize: hdr.DataSize}
	return wh, inbuff, nil
}

// wavHeader is the on-disk RIFF/WAVE header layout.
type wavHeader struct {
	RiffID      [4]byte // "RIFF"
	FileSize    uint32  // Total file size minus 8 bytes.
	WaveID      [4]byte // "WAVE"
	Fmt         [4]byte // "fmt "
	FmtSize     uint32  // Will be 16 for PCM.
	AudioFormat uint16  // Will be 1 for PCM.
	Channels    uint16  // Number of audio channels.
	Frequency   uint32  // 8000, 44100, etc.
	ByteRate    uint32  // SampleRate * NumChannels * BitsPerSample/8.
	BlockAlign  uint16  // NumChannels * BitsPerSample/8.
	SampleBits  uint16  // 8 bits = 8, 16 bits = 16, etc.
	DataID      [4]byte // "data"
	DataSize    uint32  // Size of audio data: total file size minus 44 bytes.
}
