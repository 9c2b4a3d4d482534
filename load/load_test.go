// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package load

import (
	"encoding/binary"
	"testing"
)

func TestUnpackKeyHeader(t *testing.T) {
	var header uint32
	header |= uint32(KeyRotation) & 0x1
	header |= (uint32(7) & 0x3ff) << 1
	header |= (uint32(1500) & 0xffff) << 11

	ktype, trackID, timeMs := unpackKeyHeader(header)
	if ktype != KeyRotation {
		t.Errorf("expected KeyRotation, got %v", ktype)
	}
	if trackID != 7 {
		t.Errorf("expected track 7, got %d", trackID)
	}
	if timeMs != 1500 {
		t.Errorf("expected time 1500ms, got %d", timeMs)
	}
}

func TestDecodeOGGStreamMetadata(t *testing.T) {
	data := make([]byte, 16)
	// alloc_buffer_size=1024, headers_size=64, max_frame_size=512, num_samples_skip=312
	for i, v := range []int32{1024, 64, 512, 312} {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(v))
	}
	meta, err := DecodeOGGStreamMetadata(data)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if meta.AllocBufferSize != 1024 || meta.HeadersSize != 64 || meta.MaxFrameSize != 512 || meta.NumSamplesSkip != 312 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}

func TestDecodeOGGStreamMetadataTruncated(t *testing.T) {
	if _, err := DecodeOGGStreamMetadata(make([]byte, 4)); err == nil {
		t.Error("expected error for truncated metadata")
	}
}

func TestSetDirUnknownType(t *testing.T) {
	l := newLoader()
	// Unknown asset type is logged and ignored, not fatal.
	l.setDir(99, "/tmp")
	if l.dir[snd] != "audio" {
		t.Error("setDir should not disturb existing directories on an unknown type")
	}
}
