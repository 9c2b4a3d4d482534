// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package load

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Stream format identifiers for SoundResource.StreamFormat.
const (
	StreamNone = iota
	StreamOGG
)

// SoundResource is the on-disk layout for a playable sound clip
// (SPEC_FULL.md §6 Sound resource). Non-streamed clips carry their
// whole PCM payload in Pcm; streamed clips (StreamFormat == StreamOGG)
// carry codec headers in StreamMetadata and the remainder of the OGG
// container is read on demand by the caller from the same file.
type SoundResource struct {
	SampleRate   uint32
	Channels     uint32
	BitDepth     uint32
	StreamFormat uint32

	StreamMetadata []byte
	Pcm            []byte
}

// soundResourceVersion is the only version this loader understands.
const soundResourceVersion = 1

type soundHeader struct {
	Version            uint32
	SampleRate         uint32
	Channels           uint32
	BitDepth           uint32
	StreamFormat       uint32
	StreamMetadataSize uint32
	PcmOffset          uint32
	PcmSize            uint32
	Pad                uint32
}

// snd reads a compiled sound resource (SPEC_FULL.md §6).
func (l *loader) snd(name string) (res *SoundResource, err error) {
	filename := name + ".snd"
	var file io.ReadCloser
	if file, err = l.getResource(l.dir[snd], filename); err != nil {
		return nil, fmt.Errorf("could not load sound resource %s: %s", filename, err)
	}
	defer file.Close()

	hdr := &soundHeader{}
	if err = binary.Read(file, binary.LittleEndian, hdr); err != nil {
		return nil, fmt.Errorf("invalid sound resource %s: %s", filename, err)
	}
	if hdr.Version != soundResourceVersion {
		return nil, fmt.Errorf("unsupported sound resource version %d in %s", hdr.Version, filename)
	}

	metadata := make([]byte, hdr.StreamMetadataSize)
	if hdr.StreamMetadataSize > 0 {
		if _, err = io.ReadFull(file, metadata); err != nil {
			return nil, fmt.Errorf("truncated sound resource %s: %s", filename, err)
		}
	}
	pcm := make([]byte, hdr.PcmSize)
	if _, err = io.ReadFull(file, pcm); err != nil {
		return nil, fmt.Errorf("truncated sound resource %s: %s", filename, err)
	}
	return &SoundResource{
		SampleRate:     hdr.SampleRate,
		Channels:       hdr.Channels,
		BitDepth:       hdr.BitDepth,
		StreamFormat:   hdr.StreamFormat,
		StreamMetadata: metadata,
		Pcm:            pcm,
	}, nil
}

// OGGStreamMetadata is the per-stream OGG metadata block that follows
// a SoundResource header when StreamFormat == StreamOGG.
type OGGStreamMetadata struct {
	AllocBufferSize int32
	HeadersSize     int32
	MaxFrameSize    int32
	NumSamplesSkip  int32
}

// DecodeOGGStreamMetadata parses the fixed-size metadata block
// prefixing an OGG stream's container bytes.
func DecodeOGGStreamMetadata(data []byte) (*OGGStreamMetadata, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("ogg stream metadata truncated: %d bytes", len(data))
	}
	return &OGGStreamMetadata{
		AllocBufferSize: int32(binary.LittleEndian.Uint32(data[0:4])),
		HeadersSize:     int32(binary.LittleEndian.Uint32(data[4:8])),
		MaxFrameSize:    int32(binary.LittleEndian.Uint32(data[8:12])),
		NumSamplesSkip:  int32(binary.LittleEndian.Uint32(data[12:16])),
	}, nil
}
