// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package load

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/galvanized/worldcore/math/lin"
)

// MaxBones caps a skeleton's bone count (SPEC_FULL.md §3 Skeleton).
const MaxBones = 1024

// NoParent marks a skeleton's root bone (no parent bone).
const NoParent = 0xffff

// BoneTransform is one bone's local-space bind transform.
type BoneTransform struct {
	Position lin.V3
	Rotation lin.Q
	Scale    lin.V3
}

// SkeletonResource is the on-disk layout for a mesh skeleton
// (SPEC_FULL.md §6 Mesh-skeleton resource): per-bone local transform,
// parent index, and binding (inverse bind pose) matrix.
type SkeletonResource struct {
	Locals   []BoneTransform
	Parents  []uint32
	Bindings []lin.M4
}

const skeletonResourceVersion = 1

type skeletonHeader struct {
	Version                uint32
	NumBones               uint32
	LocalTransformsOffset  uint32
	ParentsOffset          uint32
	BindingMatricesOffset  uint32
}

type wireVec3 struct{ X, Y, Z float32 }
type wireQuat struct{ X, Y, Z, W float32 }

func (w wireVec3) v3() lin.V3 { return lin.V3{X: float64(w.X), Y: float64(w.Y), Z: float64(w.Z)} }
func (w wireQuat) q() lin.Q   { return lin.Q{X: float64(w.X), Y: float64(w.Y), Z: float64(w.Z), W: float64(w.W)} }

// ske reads a compiled mesh-skeleton resource.
func (l *loader) ske(name string) (res *SkeletonResource, err error) {
	filename := name + ".ske"
	var file io.ReadCloser
	if file, err = l.getResource(l.dir[mod], filename); err != nil {
		return nil, fmt.Errorf("could not load skeleton resource %s: %s", filename, err)
	}
	defer file.Close()

	hdr := &skeletonHeader{}
	if err = binary.Read(file, binary.LittleEndian, hdr); err != nil {
		return nil, fmt.Errorf("invalid skeleton resource %s: %s", filename, err)
	}
	if hdr.Version != skeletonResourceVersion {
		return nil, fmt.Errorf("unsupported skeleton resource version %d in %s", hdr.Version, filename)
	}
	if hdr.NumBones > MaxBones {
		return nil, fmt.Errorf("skeleton resource %s exceeds max bones: %d", filename, hdr.NumBones)
	}

	locals := make([]BoneTransform, hdr.NumBones)
	for i := range locals {
		var pos, scale wireVec3
		var rot wireQuat
		if err = binary.Read(file, binary.LittleEndian, &pos); err != nil {
			return nil, fmt.Errorf("truncated skeleton resource %s: %s", filename, err)
		}
		if err = binary.Read(file, binary.LittleEndian, &rot); err != nil {
			return nil, fmt.Errorf("truncated skeleton resource %s: %s", filename, err)
		}
		if err = binary.Read(file, binary.LittleEndian, &scale); err != nil {
			return nil, fmt.Errorf("truncated skeleton resource %s: %s", filename, err)
		}
		locals[i] = BoneTransform{Position: pos.v3(), Rotation: rot.q(), Scale: scale.v3()}
	}

	parents := make([]uint32, hdr.NumBones)
	if err = binary.Read(file, binary.LittleEndian, parents); err != nil {
		return nil, fmt.Errorf("truncated skeleton resource %s: %s", filename, err)
	}

	bindings := make([]lin.M4, hdr.NumBones)
	for i := range bindings {
		var m [16]float32
		if err = binary.Read(file, binary.LittleEndian, &m); err != nil {
			return nil, fmt.Errorf("truncated skeleton resource %s: %s", filename, err)
		}
		bindings[i] = lin.M4{
			Xx: float64(m[0]), Xy: float64(m[1]), Xz: float64(m[2]), Xw: float64(m[3]),
			Yx: float64(m[4]), Yy: float64(m[5]), Yz: float64(m[6]), Yw: float64(m[7]),
			Zx: float64(m[8]), Zy: float64(m[9]), Zz: float64(m[10]), Zw: float64(m[11]),
			Wx: float64(m[12]), Wy: float64(m[13]), Wz: float64(m[14]), Ww: float64(m[15]),
		}
	}

	return &SkeletonResource{Locals: locals, Parents: parents, Bindings: bindings}, nil
}
