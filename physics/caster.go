// Copyright © 2014-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

// caster contains ray casting logic, separate from full collision
// tracking. Used to answer "what is under the cursor" and "what is in
// front of this actor" queries (physics.World's CastRay/CastSphere/
// CastBox). Operates on plain vectors rather than Body so a query can
// be run against any candidate without allocating a simulation body.

import (
	"math"

	"github.com/galvanized/worldcore/math/lin"
)

// castRaySphere calculates the nearest point of contact between a ray
// (origin, dir) and a sphere (center, radius).
// http://www.scratchapixel.com/lessons/3d-basic-lessons/lesson-7-intersecting-simple-shapes/ray-sphere-intersection/
func castRaySphere(origin, dir, center lin.V3, radius float64) (hit bool, x, y, z float64) {
	sc := lin.NewV3().Sub(&center, &origin)
	rdir := lin.NewV3().Set(&dir).Unit()
	d0 := rdir.Dot(sc)
	if d0 < 0 {
		return false, 0, 0, 0 // sphere is behind the ray.
	}
	radius2 := radius * radius
	d1 := sc.Dot(sc) - d0*d0
	if d1 > radius2 {
		return false, 0, 0, 0 // ray misses the sphere.
	}
	dlen := d0 - math.Sqrt(radius2-d1)
	x, y, z = rdir.X*dlen+origin.X, rdir.Y*dlen+origin.Y, rdir.Z*dlen+origin.Z
	return true, x, y, z
}

// castRayPlane calculates the point of collision between a ray
// (origin, dir) and a plane through planePoint with the given
// (unit) normal. http://en.wikipedia.org/wiki/Line-plane_intersection
func castRayPlane(origin, dir, planePoint, normal lin.V3) (hit bool, x, y, z float64) {
	rdir := lin.NewV3().Set(&dir).Unit()
	nrm := lin.NewV3().Set(&normal).Unit()
	denom := rdir.Dot(nrm)
	if lin.AeqZ(denom) || denom < 0 {
		return false, 0, 0, 0 // plane is behind ray or ray is parallel to plane.
	}
	diff := lin.NewV3().Sub(&planePoint, &origin)
	dlen := diff.Dot(nrm) / denom
	if dlen < 0 {
		return false, 0, 0, 0
	}
	x, y, z = rdir.X*dlen+origin.X, rdir.Y*dlen+origin.Y, rdir.Z*dlen+origin.Z
	return true, x, y, z
}

// castRayBox calculates the nearest point of contact between a ray
// (origin, dir) and an axis-aligned box given by its world center and
// half-extents. Rotated boxes are tested in the box's local space by
// having the caller rotate origin/dir into that space first.
// https://truesculpt.googlecode.com/hg-history/Release%25200.8/Doc/ray_box_intersect.pdf
func castRayBox(origin, dir, center lin.V3, hx, hy, hz float64) (hit bool, x, y, z float64) {
	rdir := lin.NewV3().Set(&dir).Unit()
	lo, hi := math.Inf(-1), math.Inf(1)
	mins := [3]float64{center.X - hx, center.Y - hy, center.Z - hz}
	maxs := [3]float64{center.X + hx, center.Y + hy, center.Z + hz}
	o := [3]float64{origin.X, origin.Y, origin.Z}
	d := [3]float64{rdir.X, rdir.Y, rdir.Z}
	for i := 0; i < 3; i++ {
		if lin.AeqZ(d[i]) {
			if o[i] < mins[i] || o[i] > maxs[i] {
				return false, 0, 0, 0
			}
			continue
		}
		t0, t1 := (mins[i]-o[i])/d[i], (maxs[i]-o[i])/d[i]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		lo = math.Max(lo, t0)
		hi = math.Min(hi, t1)
		if lo > hi {
			return false, 0, 0, 0
		}
	}
	if hi < 0 {
		return false, 0, 0, 0 // box is behind the ray.
	}
	dlen := lo
	if dlen < 0 {
		dlen = hi // ray origin is inside the box.
	}
	x, y, z = o[0]+d[0]*dlen, o[1]+d[1]*dlen, o[2]+d[2]*dlen
	return true, x, y, z
}
