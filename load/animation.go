// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package load

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/galvanized/worldcore/math/lin"
)

// KeyType distinguishes a mesh-animation key's payload kind.
type KeyType uint8

const (
	KeyPosition KeyType = iota
	KeyRotation
)

// AnimationKey is one sampled bone key, expanded from the packed
// on-disk header (SPEC_FULL.md §6 `{type:1 | track_id:10 | time:16}`).
type AnimationKey struct {
	Type    KeyType
	TrackID uint16
	TimeMs  uint16
	Pos     lin.V3 // valid when Type == KeyPosition.
	Rot     lin.Q  // valid when Type == KeyRotation.
}

// AnimationResource is the on-disk layout for a mesh-animation clip
// (SPEC_FULL.md §6 Mesh-animation resource): a sorted key stream plus
// the track_id → bone_id mapping.
type AnimationResource struct {
	NumTracks      uint32
	TotalTime      float32
	TargetSkeleton uint64
	BoneIDs        []uint16 // indexed by track_id.
	Keys           []AnimationKey
}

const animationResourceVersion = 1

type animationHeader struct {
	Version        uint32
	NumTracks      uint32
	TotalTime      float32
	NumKeys        uint32
	KeysOffset     uint32
	Pad            uint32
	TargetSkeleton uint64
	NumBones       uint32
	BoneIdsOffset  uint32
}

// unpackKeyHeader splits the packed 32-bit key header into its type,
// track id, and millisecond time fields.
func unpackKeyHeader(h uint32) (KeyType, uint16, uint16) {
	ktype := KeyType(h & 0x1)
	trackID := uint16((h >> 1) & 0x3ff)
	timeMs := uint16((h >> 11) & 0xffff)
	return ktype, trackID, timeMs
}

// anm reads a compiled mesh-animation resource. Keys are read in
// on-disk order, which must already be sorted by time per
// SPEC_FULL.md §3 (ascending time, ties broken by ascending track id).
func (l *loader) anm(name string) (res *AnimationResource, err error) {
	filename := name + ".anm"
	var file io.ReadCloser
	if file, err = l.getResource(l.dir[mod], filename); err != nil {
		return nil, fmt.Errorf("could not load animation resource %s: %s", filename, err)
	}
	defer file.Close()

	hdr := &animationHeader{}
	if err = binary.Read(file, binary.LittleEndian, hdr); err != nil {
		return nil, fmt.Errorf("invalid animation resource %s: %s", filename, err)
	}
	if hdr.Version != animationResourceVersion {
		return nil, fmt.Errorf("unsupported animation resource version %d in %s", hdr.Version, filename)
	}

	keys := make([]AnimationKey, hdr.NumKeys)
	var lastTime uint16
	var lastTrack uint16
	haveLast := false
	for i := range keys {
		var header uint32
		if err = binary.Read(file, binary.LittleEndian, &header); err != nil {
			return nil, fmt.Errorf("truncated animation resource %s: %s", filename, err)
		}
		ktype, trackID, timeMs := unpackKeyHeader(header)
		if haveLast && (timeMs < lastTime || (timeMs == lastTime && trackID < lastTrack)) {
			return nil, fmt.Errorf("animation resource %s keys not sorted by time/track", filename)
		}
		lastTime, lastTrack, haveLast = timeMs, trackID, true

		key := AnimationKey{Type: ktype, TrackID: trackID, TimeMs: timeMs}
		switch ktype {
		case KeyPosition:
			var p wireVec3
			if err = binary.Read(file, binary.LittleEndian, &p); err != nil {
				return nil, fmt.Errorf("truncated animation resource %s: %s", filename, err)
			}
			key.Pos = p.v3()
		case KeyRotation:
			var q wireQuat
			if err = binary.Read(file, binary.LittleEndian, &q); err != nil {
				return nil, fmt.Errorf("truncated animation resource %s: %s", filename, err)
			}
			key.Rot = q.q()
		}
		keys[i] = key
	}

	boneIDs := make([]uint16, hdr.NumBones)
	if hdr.NumBones > 0 {
		if err = binary.Read(file, binary.LittleEndian, boneIDs); err != nil {
			return nil, fmt.Errorf("truncated animation resource %s: %s", filename, err)
		}
	}

	return &AnimationResource{
		NumTracks:      hdr.NumTracks,
		TotalTime:      hdr.TotalTime,
		TargetSkeleton: hdr.TargetSkeleton,
		BoneIDs:        boneIDs,
		Keys:           keys,
	}, nil
}
